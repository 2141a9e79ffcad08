// Package router turns one inbound chat message into replies. It is
// stateless across messages; the ledger is the only memory.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
	registryx "github.com/tinyagents/tinyagents-bot/bot/registry"
)

var creditsSpent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bot_credits_spent_total",
	Help: "Credits deducted for agent invocations",
})

const (
	// The success redirect is an unauthenticated deep link; it must not
	// assert that money moved. Only the verified webhook credits the ledger.
	msgPaymentPending = "Thanks! Your payment is being processed. Credits will appear shortly - check with /credits."
	msgPaymentCancel  = "Payment cancelled. You can try again any time with /buy."

	msgExhausted   = "You are out of credits! Buy more with /buy to keep using the agents."
	msgSpendFailed = "Could not deduct a credit right now. Please try again or contact support."
	msgUnknown     = "Unrecognized command. Use /start to see the list of available agents."
	msgInternal    = "An internal error occurred. Please try again later."
)

// Router dispatches parsed commands to the ledger, the payment gateway and
// the inference gateway, and renders every reply.
type Router struct {
	ledger    contractx.Ledger
	generator contractx.Generator
	checkout  contractx.Checkout
	messenger contractx.Messenger
}

func New(ledger contractx.Ledger, generator contractx.Generator, checkout contractx.Checkout, messenger contractx.Messenger) *Router {
	return &Router{
		ledger:    ledger,
		generator: generator,
		checkout:  checkout,
		messenger: messenger,
	}
}

// HandleMessage routes one text message. It never returns an error and never
// panics: whatever happens inside, the transport layer acknowledges the
// delivery exactly once.
func (r *Router) HandleMessage(ctx context.Context, chatID, userID int64, text string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Any("panic", rec).Int64("user_id", userID).Msg("panic while routing message")
			r.send(ctx, chatID, msgInternal)
		}
	}()

	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, chatID, text)
	case strings.HasPrefix(text, "/credits"):
		r.handleCredits(ctx, chatID, userID)
	case strings.HasPrefix(text, "/buy"):
		r.handleBuy(ctx, chatID, userID)
	case strings.HasPrefix(text, "/"):
		r.handleAgentCommand(ctx, chatID, userID, text)
	default:
		// Plain text carries no command; acknowledge silently.
	}
}

func (r *Router) handleStart(ctx context.Context, chatID int64, text string) {
	switch {
	case strings.Contains(text, "success"):
		r.send(ctx, chatID, msgPaymentPending)
	case strings.Contains(text, "cancel"):
		r.send(ctx, chatID, msgPaymentCancel)
	default:
		r.sendMarkdown(ctx, chatID, welcomeText())
	}
}

func (r *Router) handleCredits(ctx context.Context, chatID, userID int64) {
	balance, err := r.ledger.Balance(ctx, userID)
	if err != nil {
		// Fail closed: an unreachable ledger reads as an empty balance.
		log.Error().Err(err).Int64("user_id", userID).Msg("balance read failed")
		balance = 0
	}
	r.sendMarkdown(ctx, chatID, fmt.Sprintf("Your current balance is *%d* credits. Use /buy to top up.", balance))
}

func (r *Router) handleBuy(ctx context.Context, chatID, userID int64) {
	url, err := r.checkout.CreateSession(ctx, userID)
	if err != nil {
		// The error text is written front-facing; show it verbatim.
		r.send(ctx, chatID, err.Error())
		return
	}
	r.sendMarkdown(ctx, chatID, fmt.Sprintf("Click here to buy credits: [Buy Credits](%s)", url))
}

func (r *Router) handleAgentCommand(ctx context.Context, chatID, userID int64, text string) {
	command, arg := parseCommand(text)

	agent, ok := registryx.Lookup(command)
	if !ok {
		r.send(ctx, chatID, msgUnknown)
		return
	}
	if arg == "" {
		r.sendMarkdown(ctx, chatID, fmt.Sprintf("Usage: `/%s [your request]`", command))
		return
	}

	// Spend strictly before invoking the paid call; a user with no balance
	// must never reach the provider. The pre-spend balance is informational.
	balance, err := r.ledger.Balance(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("balance read failed")
		balance = 0
	}
	if balance <= 0 {
		r.sendMarkdown(ctx, chatID, msgExhausted)
		return
	}

	spent, err := r.ledger.Spend(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("credit spend failed")
	}
	if !spent {
		r.send(ctx, chatID, msgSpendFailed)
		return
	}
	creditsSpent.Inc()

	r.sendMarkdown(ctx, chatID, fmt.Sprintf("Credit used. Remaining balance: *%d*.\nWorking on your request...", balance-1))

	reply := r.generator.Generate(ctx, agent, arg)
	r.send(ctx, chatID, reply)
}

// parseCommand splits "/name rest of text" into the keyword without the
// marker and the trimmed argument.
func parseCommand(text string) (command, arg string) {
	parts := strings.SplitN(text, " ", 2)
	command = strings.TrimPrefix(parts[0], "/")
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	return command, arg
}

func welcomeText() string {
	var b strings.Builder
	b.WriteString("Welcome to Tiny Agents!\n\n")
	b.WriteString("Pick a micro-agent for a specific task:\n\n")
	for _, agent := range registryx.All() {
		fmt.Fprintf(&b, "`/%s` - %s\n", agent.Name, agent.Description)
	}
	b.WriteString("\nUse a command followed by your request. Example:\n`/meme_persona cat playing the piano`\n\n")
	b.WriteString("Use /credits to see your balance and /buy to purchase more uses.")
	return b.String()
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if err := r.messenger.Send(ctx, chatID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

func (r *Router) sendMarkdown(ctx context.Context, chatID int64, text string) {
	if err := r.messenger.SendMarkdown(ctx, chatID, text); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

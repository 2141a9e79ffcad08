// Package payment brokers the Stripe side of the bot: hosted checkout
// session creation and the signature-verified confirmation events that are
// the only path allowed to credit the ledger.
package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

const metadataUserIDKey = "telegram_user_id"

type Config struct {
	SecretKey          string `envconfig:"SECRET_KEY" split_words:"true"`
	WebhookSecret      string `envconfig:"WEBHOOK_SECRET" split_words:"true"`
	PriceID            string `envconfig:"PRICE_ID" split_words:"true"`
	BotUsername        string `envconfig:"BOT_USERNAME" split_words:"true" default:"TinyAgents_bot"`
	CreditsPerPurchase int64  `envconfig:"CREDITS_PER_PURCHASE" split_words:"true" default:"100"`
}

// MissingConfig lists the payment variables that are unset. Checked at
// startup for an operator warning and again on every /buy, where the
// resulting error text is shown to the user.
func (c Config) MissingConfig() []string {
	var missing []string
	if strings.TrimSpace(c.SecretKey) == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if strings.TrimSpace(c.PriceID) == "" {
		missing = append(missing, "STRIPE_PRICE_ID")
	}
	if strings.TrimSpace(c.WebhookSecret) == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	return missing
}

// Checkout creates single-item, one-time-payment sessions tagged with the
// buyer's user ID for later correlation.
type Checkout struct {
	cfg Config
	sc  *stripeclient.API
}

var _ contractx.Checkout = (*Checkout)(nil)

// NewCheckout builds the session creator. backends is nil outside of tests.
func NewCheckout(cfg Config, backends *stripe.Backends) *Checkout {
	sc := &stripeclient.API{}
	sc.Init(strings.TrimSpace(cfg.SecretKey), backends)
	return &Checkout{cfg: cfg, sc: sc}
}

// CreateSession opens a hosted checkout for one credit pack. Success and
// cancel redirects deep-link back into the chat so the router can show a
// notice; the authoritative credit grant still arrives via webhook only.
func (c *Checkout) CreateSession(ctx context.Context, userID int64) (string, error) {
	if strings.TrimSpace(c.cfg.SecretKey) == "" || strings.TrimSpace(c.cfg.PriceID) == "" {
		return "", fmt.Errorf("%w: payment is not configured, check STRIPE_SECRET_KEY and STRIPE_PRICE_ID", contractx.ErrConfig)
	}

	uid := strconv.FormatInt(userID, 10)
	botURL := "https://t.me/" + strings.TrimSpace(c.cfg.BotUsername)

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(strings.TrimSpace(c.cfg.PriceID)),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(botURL + "?start=success_" + uid),
		CancelURL:         stripe.String(botURL + "?start=cancel_" + uid),
		ClientReferenceID: stripe.String(uid),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserIDKey, uid)

	session, err := c.sc.CheckoutSessions.New(params)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("stripe checkout session creation failed")
		return "", fmt.Errorf("%w: could not create a payment session, please try again later", contractx.ErrGateway)
	}
	return session.URL, nil
}

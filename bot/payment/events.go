package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

var creditsGranted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bot_credits_granted_total",
	Help: "Credits granted through confirmed checkouts",
})

// Events turns Stripe webhook deliveries into ledger credits. Each delivery
// walks received -> signature-verified -> classified -> credited/ignored and
// ends in exactly one status code; at most one increment is attempted.
type Events struct {
	ledger contractx.Ledger
	secret string
	grant  int64
}

func NewEvents(cfg Config, ledger contractx.Ledger) *Events {
	grant := cfg.CreditsPerPurchase
	if grant <= 0 {
		grant = 100
	}
	return &Events{
		ledger: ledger,
		secret: strings.TrimSpace(cfg.WebhookSecret),
		grant:  grant,
	}
}

// Handle processes one delivery and returns the status to acknowledge with:
// 400 for anything the sender must not retry (bad signature, bad payload,
// missing correlation reference), 500 when the ledger write failed and a
// retry can still succeed, 200 otherwise.
func (e *Events) Handle(ctx context.Context, payload []byte, sigHeader string) int {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, e.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn().Err(err).Msg("stripe event rejected before verification")
		return http.StatusBadRequest
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		// Acknowledge so the sender does not retry events we ignore.
		log.Debug().Str("type", string(event.Type)).Msg("ignoring stripe event")
		return http.StatusOK
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID).Msg("malformed checkout session payload")
		return http.StatusBadRequest
	}

	ref := strings.TrimSpace(session.ClientReferenceID)
	if ref == "" {
		log.Warn().Str("event_id", event.ID).Msg("checkout session has no client reference id, nothing to credit")
		return http.StatusBadRequest
	}
	userID, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		log.Warn().Str("event_id", event.ID).Str("ref", ref).Msg("client reference id is not a user id")
		return http.StatusBadRequest
	}

	if err := e.ledger.Credit(ctx, userID, e.grant); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("event_id", event.ID).Msg("ledger credit failed")
		return http.StatusInternalServerError
	}

	creditsGranted.Add(float64(e.grant))
	log.Info().Int64("user_id", userID).Int64("amount", e.grant).Str("event_id", event.ID).Msg("credits granted")
	return http.StatusOK
}

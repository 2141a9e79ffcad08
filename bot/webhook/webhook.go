// Package webhook exposes the two inbound HTTP entry points: the chat
// transport update feed and the payment confirmation feed.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/tinyagents/tinyagents-bot/bot/payment"
	"github.com/tinyagents/tinyagents-bot/bot/router"
	"github.com/tinyagents/tinyagents-bot/pkg/telegram"
)

const maxBodyBytes = 1 << 20

var webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bot_webhook_requests_total",
	Help: "Inbound webhook deliveries",
}, []string{"endpoint", "status"})

// TelegramHandler feeds chat updates into the command router. It always
// acknowledges 200 so Telegram never redelivers an update, whatever happened
// while routing it.
type TelegramHandler struct {
	router *router.Router
}

func NewTelegramHandler(r *router.Router) *TelegramHandler {
	return &TelegramHandler{router: r}
}

func (h *TelegramHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer webhookRequests.WithLabelValues("telegram", "200").Inc()
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("read telegram update failed")
		w.WriteHeader(http.StatusOK)
		return
	}

	var update telegram.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Warn().Err(err).Msg("malformed telegram update")
		w.WriteHeader(http.StatusOK)
		return
	}

	if !update.IsTextMessage() {
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := update.Message
	h.router.HandleMessage(r.Context(), msg.Chat.ID, msg.From.ID, msg.Text)
	w.WriteHeader(http.StatusOK)
}

// StripeHandler verifies and applies payment confirmation events. The status
// code is the one decided by the event state machine: 400 tells Stripe to
// stop, 500 tells it to retry, 200 acknowledges.
type StripeHandler struct {
	events *payment.Events
}

func NewStripeHandler(e *payment.Events) *StripeHandler {
	return &StripeHandler{events: e}
}

func (h *StripeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("read stripe payload failed")
		webhookRequests.WithLabelValues("stripe", "400").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	status := h.events.Handle(r.Context(), body, r.Header.Get("Stripe-Signature"))
	webhookRequests.WithLabelValues("stripe", strconv.Itoa(status)).Inc()
	w.WriteHeader(status)
}

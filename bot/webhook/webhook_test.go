package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinyagents/tinyagents-bot/bot/payment"
	"github.com/tinyagents/tinyagents-bot/bot/router"
)

type nopLedger struct{}

func (nopLedger) Balance(ctx context.Context, userID int64) (int64, error) { return 0, nil }

func (nopLedger) Spend(ctx context.Context, userID int64) (bool, error) { return false, nil }

func (nopLedger) Credit(ctx context.Context, userID int64, amount int64) error { return nil }

type recordingMessenger struct {
	sent []string
}

func (m *recordingMessenger) Send(ctx context.Context, chatID int64, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func (m *recordingMessenger) SendMarkdown(ctx context.Context, chatID int64, text string) error {
	m.sent = append(m.sent, text)
	return nil
}

func newTelegramHandler(m *recordingMessenger) *TelegramHandler {
	r := router.New(nopLedger{}, nil, nil, m)
	return NewTelegramHandler(r)
}

func TestTelegramHandlerAcksMalformedJSON(t *testing.T) {
	t.Parallel()

	h := newTelegramHandler(&recordingMessenger{})
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 to stop redelivery", rec.Code)
	}
}

func TestTelegramHandlerAcksNonTextUpdate(t *testing.T) {
	t.Parallel()

	m := &recordingMessenger{}
	h := newTelegramHandler(m)
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(`{"update_id":1,"edited_message":{}}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(m.sent) != 0 {
		t.Fatalf("non-text update produced replies: %v", m.sent)
	}
}

func TestTelegramHandlerRoutesTextMessage(t *testing.T) {
	t.Parallel()

	m := &recordingMessenger{}
	h := newTelegramHandler(m)
	body := `{"update_id":1,"message":{"message_id":5,"from":{"id":42},"chat":{"id":77},"text":"/credits"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(m.sent) != 1 || !strings.Contains(m.sent[0], "balance") {
		t.Fatalf("replies = %v, want one balance reply", m.sent)
	}
}

func TestStripeHandlerReturnsStateMachineStatus(t *testing.T) {
	t.Parallel()

	events := payment.NewEvents(payment.Config{WebhookSecret: "whsec_x"}, nopLedger{})
	h := NewStripeHandler(events)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe", strings.NewReader(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unverifiable event", rec.Code)
	}
}

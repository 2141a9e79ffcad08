package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSendPostsToBotEndpoint(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{Token: "123:abc", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if err := client.Send(context.Background(), 77, "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %q, want /bot123:abc/sendMessage", gotPath)
	}
	if gotBody.ChatID != 77 || gotBody.Text != "hello" {
		t.Fatalf("body = %+v", gotBody)
	}
	if gotBody.ParseMode != "" {
		t.Fatalf("ParseMode = %q, want empty for plain Send", gotBody.ParseMode)
	}
}

func TestSendMarkdownSetsParseMode(t *testing.T) {
	t.Parallel()

	var gotBody sendMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{Token: "t", BaseURL: server.URL})
	if err := client.SendMarkdown(context.Background(), 1, "*hi*"); err != nil {
		t.Fatalf("SendMarkdown() error = %v", err)
	}
	if gotBody.ParseMode != "Markdown" {
		t.Fatalf("ParseMode = %q, want Markdown", gotBody.ParseMode)
	}
}

func TestSendReportsAPIFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"ok":false,"description":"bot was blocked by the user"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{Token: "t", BaseURL: server.URL})
	err := client.Send(context.Background(), 1, "hi")
	if err == nil {
		t.Fatalf("Send() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("error %q does not carry the API description", err)
	}
}

func TestNewClientRejectsMissingToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{BaseURL: "https://api.telegram.org"}); err == nil {
		t.Fatalf("NewClient() error = nil, want token error")
	}
}

func TestIsTextMessage(t *testing.T) {
	t.Parallel()

	var u *Update
	if u.IsTextMessage() {
		t.Fatalf("nil update reported as text message")
	}
	u = &Update{Message: &Message{Chat: Chat{ID: 1}}}
	if u.IsTextMessage() {
		t.Fatalf("message without from/text reported as text message")
	}
	u = &Update{Message: &Message{From: &User{ID: 2}, Chat: Chat{ID: 1}, Text: "/start"}}
	if !u.IsTextMessage() {
		t.Fatalf("text message not recognized")
	}
}

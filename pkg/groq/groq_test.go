package groq

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

var testAgent = contractx.Agent{
	Name:        "meme_persona",
	Instruction: "You are a meme generator.",
}

func TestGenerateReturnsCompletionContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3-8b-8192",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "  a caption  "},
				"finish_reason": "stop"
			}]
		}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Model: "llama3-8b-8192"})
	if client == nil {
		t.Fatalf("NewClient() = nil")
	}

	got := client.Generate(context.Background(), testAgent, "cat playing piano")
	if got != "a caption" {
		t.Fatalf("Generate() = %q, want trimmed completion content", got)
	}
}

func TestGenerateFallsBackOnProviderError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	if got := client.Generate(context.Background(), testAgent, "hi"); got != FallbackMessage {
		t.Fatalf("Generate() = %q, want fallback", got)
	}
}

func TestGenerateFallsBackOnEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-2","object":"chat.completion","choices":[]}`)
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL})
	if got := client.Generate(context.Background(), testAgent, "hi"); got != FallbackMessage {
		t.Fatalf("Generate() = %q, want fallback", got)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if client := NewClient(Config{}); client != nil {
		t.Fatalf("NewClient() without key = %v, want nil", client)
	}

	var nilClient *Client
	if got := nilClient.Generate(context.Background(), testAgent, "hi"); got != FallbackMessage {
		t.Fatalf("nil client Generate() = %q, want fallback", got)
	}
}

// Package groq wraps Groq's OpenAI-compatible completion API behind the
// Generator contract. Callers always get a string back: provider failures
// are logged and replaced with a user-safe fallback.
package groq

import (
	"context"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

// FallbackMessage is returned for any inference failure.
const FallbackMessage = "Oops! Something went wrong on the AI side. Please try again in a moment."

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.groq.com/openai/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"llama3-8b-8192"`
	MaxCompletionToken int64         `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"150"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	sdk         openaisdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

var _ contractx.Generator = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Client{
		sdk:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxCompletionToken,
		temperature: cfg.Temperature,
	}
}

func MustNew(cfg Config) *Client {
	client := NewClient(cfg)
	if client == nil {
		panic("groq: api key is required")
	}
	return client
}

// Generate runs a two-turn exchange: the agent's fixed instruction as the
// system message and the user's free text as the user message.
func (c *Client) Generate(ctx context.Context, agent contractx.Agent, input string) string {
	if c == nil {
		log.Error().Str("agent", agent.Name).Msg("groq client is not configured")
		return FallbackMessage
	}

	completion, err := c.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(agent.Instruction),
			openaisdk.UserMessage(input),
		},
		MaxTokens:   openaisdk.Int(c.maxTokens),
		Temperature: openaisdk.Float(c.temperature),
	})
	if err != nil {
		log.Error().Err(err).Str("agent", agent.Name).Msg("groq completion failed")
		return FallbackMessage
	}

	if len(completion.Choices) == 0 {
		log.Error().Str("agent", agent.Name).Msg("groq completion returned no choices")
		return FallbackMessage
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		log.Error().Str("agent", agent.Name).Msg("groq completion returned empty content")
		return FallbackMessage
	}
	return content
}

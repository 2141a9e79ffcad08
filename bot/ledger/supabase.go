// Package ledger persists per-user credit balances. Two backends are
// provided: Supabase over PostgREST and direct Postgres via bun. Both apply
// mutations as single server-side conditional statements, never as a client
// read followed by a write.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

const maxResponseSizeBytes = 1 << 20

type SupabaseConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Key     string        `envconfig:"KEY" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// SupabaseStore talks to the Supabase REST surface. Balance reads use the
// table endpoint; Spend and Credit call the SQL functions in schema.sql so
// the conditional update runs atomically server-side.
type SupabaseStore struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

var _ contractx.Ledger = (*SupabaseStore)(nil)

// SupabaseOption customizes SupabaseStore.
type SupabaseOption func(*SupabaseStore)

func WithHTTPClient(client *http.Client) SupabaseOption {
	return func(s *SupabaseStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func NewSupabaseStore(cfg SupabaseConfig, opts ...SupabaseOption) (*SupabaseStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}

	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		return nil, errors.New("supabase key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &SupabaseStore{
		baseURL: baseURL,
		key:     key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

type creditsRow struct {
	Credits int64 `json:"credits"`
}

// Balance returns the user's balance, inserting a zero row on first sight.
func (s *SupabaseStore) Balance(ctx context.Context, userID int64) (int64, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/users?id=eq.%d&select=credits", s.baseURL, userID)
	raw, _, err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: read balance: %v", contractx.ErrLedger, err)
	}

	var rows []creditsRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, fmt.Errorf("%w: decode balance: %v", contractx.ErrLedger, err)
	}
	if len(rows) > 0 {
		return rows[0].Credits, nil
	}

	if err := s.createRow(ctx, userID); err != nil {
		return 0, err
	}
	return 0, nil
}

func (s *SupabaseStore) createRow(ctx context.Context, userID int64) error {
	body := map[string]int64{"id": userID, "credits": 0}
	endpoint := s.baseURL + "/rest/v1/users"
	_, status, err := s.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Prefer": "return=minimal",
	})
	// A concurrent insert of the same user is not a failure.
	if err != nil && status != http.StatusConflict {
		return fmt.Errorf("%w: create user row: %v", contractx.ErrLedger, err)
	}
	return nil
}

// Spend calls spend_credit, which decrements only while credits > 0 and
// reports whether a row changed.
func (s *SupabaseStore) Spend(ctx context.Context, userID int64) (bool, error) {
	endpoint := s.baseURL + "/rest/v1/rpc/spend_credit"
	raw, _, err := s.do(ctx, http.MethodPost, endpoint, map[string]int64{"uid": userID}, nil)
	if err != nil {
		return false, fmt.Errorf("%w: spend credit: %v", contractx.ErrLedger, err)
	}

	var spent bool
	if err := json.Unmarshal(bytes.TrimSpace(raw), &spent); err != nil {
		return false, fmt.Errorf("%w: decode spend result: %v", contractx.ErrLedger, err)
	}
	return spent, nil
}

// Credit calls add_credits, an upsert that adds amount to the user's row.
func (s *SupabaseStore) Credit(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive, got %d", contractx.ErrLedger, amount)
	}

	endpoint := s.baseURL + "/rest/v1/rpc/add_credits"
	body := map[string]int64{"uid": userID, "amount": amount}
	if _, _, err := s.do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
		return fmt.Errorf("%w: add credits: %v", contractx.ErrLedger, err)
	}
	return nil
}

func (s *SupabaseStore) do(ctx context.Context, method, endpoint string, body any, headers map[string]string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resp.StatusCode, fmt.Errorf("supabase http status=%d body=%s", resp.StatusCode, string(raw))
	}
	return raw, resp.StatusCode, nil
}

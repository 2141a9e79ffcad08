package contract

import "context"

// Ledger is the authoritative per-user credit balance store.
type Ledger interface {
	// Balance returns the current balance, creating the record at 0 on
	// first sight of the user.
	Balance(ctx context.Context, userID int64) (int64, error)

	// Spend atomically deducts one credit. It reports false with a nil
	// error when the balance is already exhausted; no write happens then.
	Spend(ctx context.Context, userID int64) (bool, error)

	// Credit atomically adds amount, creating the record at amount if the
	// user is unknown.
	Credit(ctx context.Context, userID int64, amount int64) error
}

// Generator produces a completion for an agent instruction and user input.
// Implementations never fail the caller: any provider error is converted to
// a user-safe fallback string.
type Generator interface {
	Generate(ctx context.Context, agent Agent, input string) string
}

// Checkout creates hosted payment sessions. The error text of a failed call
// is shown to the requesting user verbatim.
type Checkout interface {
	CreateSession(ctx context.Context, userID int64) (string, error)
}

// Messenger delivers replies back over the chat transport.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
	SendMarkdown(ctx context.Context, chatID int64, text string) error
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID      int64 `bun:"id,pk"`
	Credits int64 `bun:"credits,notnull,default:0"`
}

// PostgresStore keeps the ledger in a users table reached directly over
// pgdriver, for deployments that skip the hosted REST layer.
type PostgresStore struct {
	db *bun.DB
}

var _ contractx.Ledger = (*PostgresStore)(nil)

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Balance(ctx context.Context, userID int64) (int64, error) {
	row := new(userRow)
	err := s.db.NewSelect().
		Model(row).
		Column("credits").
		Where("id = ?", userID).
		Scan(ctx)
	if err == nil {
		return row.Credits, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: read balance: %v", contractx.ErrLedger, err)
	}

	_, err = s.db.NewInsert().
		Model(&userRow{ID: userID}).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: create user row: %v", contractx.ErrLedger, err)
	}
	return 0, nil
}

func (s *PostgresStore) Spend(ctx context.Context, userID int64) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("credits = credits - 1").
		Where("id = ? AND credits > 0", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: spend credit: %v", contractx.ErrLedger, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: spend credit result: %v", contractx.ErrLedger, err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) Credit(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive, got %d", contractx.ErrLedger, amount)
	}

	_, err := s.db.NewInsert().
		Model(&userRow{ID: userID, Credits: amount}).
		On("CONFLICT (id) DO UPDATE").
		Set("credits = users.credits + EXCLUDED.credits").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: add credits: %v", contractx.ErrLedger, err)
	}
	return nil
}

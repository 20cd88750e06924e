// Package crm persists call-summary records to the external CRM log store.
package crm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/grandhotel/aria/agent/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// CallLog is one appended row in the CRM call log.
type CallLog struct {
	bun.BaseModel `bun:"table:call_logs,alias:cl"`

	ID             int64     `bun:"id,pk,autoincrement"`
	LoggedAt       time.Time `bun:"logged_at,notnull"`
	GuestName      string    `bun:"guest_name,notnull"`
	Intent         string    `bun:"intent,notnull"`
	Summary        string    `bun:"summary"`
	ActionRequired string    `bun:"action_required,notnull"`
}

// PostgresSink appends call records to Postgres through bun.
type PostgresSink struct {
	db *bun.DB
}

var _ contractx.Sink = (*PostgresSink)(nil)

// NewPostgresSink connects and pings the CRM database. Callers treat a
// connection failure as degraded mode, not a boot failure.
func NewPostgresSink(cfg Config) (*PostgresSink, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: crm dsn is required", contractx.ErrValidation)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping crm database: %w", err)
	}

	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Append(ctx context.Context, rec contractx.Record) error {
	row := &CallLog{
		LoggedAt:       rec.LoggedAt,
		GuestName:      rec.GuestName,
		Intent:         rec.Intent,
		Summary:        rec.Summary,
		ActionRequired: rec.ActionRequired,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append call log: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

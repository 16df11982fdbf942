package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

// EnsureSchema creates the tables the shop needs if they do not exist yet.
// The layout mirrors the ledger contract: payment_id is unique and status is
// constrained to the three legal values so nothing can sneak past the
// conditional updates.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			payment_id TEXT UNIQUE NOT NULL,
			user_id BIGINT NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending','paid','failed')),
			amount_requested DOUBLE PRECISION NOT NULL,
			amount_received DOUBLE PRECISION,
			received_currency TEXT,
			payment_method TEXT,
			metadata JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status_created
			ON transactions (status, created_at)`,
		`CREATE TABLE IF NOT EXISTS bot_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			total_spent DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_months INT NOT NULL DEFAULT 0,
			trial_used BOOLEAN NOT NULL DEFAULT FALSE,
			agreed_to_terms BOOLEAN NOT NULL DEFAULT FALSE,
			banned BOOLEAN NOT NULL DEFAULT FALSE,
			referred_by BIGINT,
			referral_balance DOUBLE PRECISION NOT NULL DEFAULT 0,
			registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS xui_hosts (
			host_name TEXT PRIMARY KEY,
			host_url TEXT NOT NULL,
			host_username TEXT NOT NULL,
			host_pass TEXT NOT NULL,
			host_inbound_id INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			plan_id BIGSERIAL PRIMARY KEY,
			host_name TEXT NOT NULL REFERENCES xui_hosts (host_name) ON DELETE CASCADE,
			plan_name TEXT NOT NULL,
			months INT NOT NULL,
			price DOUBLE PRECISION NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			uid TEXT NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
			day SMALLINT NOT NULL CHECK (day BETWEEN 1 AND 31),
			frequency TEXT NOT NULL DEFAULT 'Monthly',
			category TEXT NOT NULL DEFAULT 'Entertainment',
			status TEXT NOT NULL DEFAULT 'Active',
			color TEXT NOT NULL DEFAULT '#0A84FF',
			logo TEXT NOT NULL DEFAULT '',
			weekday SMALLINT CHECK (weekday BETWEEN 0 AND 6),
			month SMALLINT CHECK (month BETWEEN 0 AND 11),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_subscriptions_uid ON subscriptions(uid)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_uid_day ON subscriptions(uid, day)`,

		`ALTER TABLE subscriptions ADD COLUMN IF NOT EXISTS reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE subscriptions ADD COLUMN IF NOT EXISTS reminder_end_date DATE`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_status ON subscriptions(status)`,

		`CREATE TABLE IF NOT EXISTS user_preferences (
			uid TEXT PRIMARY KEY,
			currency TEXT NOT NULL DEFAULT 'USD',
			telegram_chat_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

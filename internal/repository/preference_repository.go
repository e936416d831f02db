package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/subday/internal/database"
	"gitlab.com/yelinaung/subday/internal/models"
)

// PreferenceRepository handles per-user settings.
type PreferenceRepository struct {
	db database.PGXDB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db database.PGXDB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the preferences of uid, or the defaults when none are stored.
func (r *PreferenceRepository) Get(ctx context.Context, uid string) (models.Preferences, error) {
	prefs := models.Preferences{UID: uid, Currency: models.DefaultCurrency}
	var currency string
	err := r.db.QueryRow(ctx, `
		SELECT currency, telegram_chat_id, updated_at
		FROM user_preferences WHERE uid = $1
	`, uid).Scan(&currency, &prefs.TelegramChatID, &prefs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return models.Preferences{}, fmt.Errorf("failed to get preferences: %w", err)
	}
	prefs.Currency = models.Currency(currency)
	return prefs, nil
}

// Upsert stores prefs. UpdatedAt is written back.
func (r *PreferenceRepository) Upsert(ctx context.Context, prefs *models.Preferences) error {
	if prefs.Currency == "" {
		prefs.Currency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO user_preferences (uid, currency, telegram_chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (uid) DO UPDATE SET
			currency = EXCLUDED.currency,
			telegram_chat_id = EXCLUDED.telegram_chat_id,
			updated_at = NOW()
		RETURNING updated_at
	`, prefs.UID, string(prefs.Currency), prefs.TelegramChatID).Scan(&prefs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}
	return nil
}

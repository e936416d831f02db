// Package repository persists subscriptions and user preferences in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/subday/internal/database"
	"gitlab.com/yelinaung/subday/internal/models"
)

// ErrNotFound is returned when no row matches the id and owner.
var ErrNotFound = errors.New("not found")

const subscriptionColumns = `id, uid, name, price, day, frequency, category, status, color, logo,
	weekday, month, reminder_enabled, reminder_end_date, created_at, updated_at`

// patchColumns maps patchable fields to their column and value.
var patchColumns = map[models.Field]struct {
	column string
	value  func(models.Subscription) any
}{
	models.FieldName:            {"name", func(s models.Subscription) any { return s.Name }},
	models.FieldPrice:           {"price", func(s models.Subscription) any { return s.Price }},
	models.FieldDay:             {"day", func(s models.Subscription) any { return s.Day }},
	models.FieldFrequency:       {"frequency", func(s models.Subscription) any { return string(s.Frequency) }},
	models.FieldCategory:        {"category", func(s models.Subscription) any { return string(s.Category) }},
	models.FieldStatus:          {"status", func(s models.Subscription) any { return string(s.Status) }},
	models.FieldColor:           {"color", func(s models.Subscription) any { return s.Color }},
	models.FieldLogo:            {"logo", func(s models.Subscription) any { return s.Logo }},
	models.FieldWeekday:         {"weekday", func(s models.Subscription) any { return s.Weekday }},
	models.FieldMonth:           {"month", func(s models.Subscription) any { return s.Month }},
	models.FieldReminderEnabled: {"reminder_enabled", func(s models.Subscription) any { return s.ReminderEnabled }},
	models.FieldReminderEndDate: {"reminder_end_date", func(s models.Subscription) any { return s.ReminderEndDate }},
}

// SubscriptionRepository handles subscription database operations.
type SubscriptionRepository struct {
	db database.PGXDB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db database.PGXDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a subscription. An empty ID is replaced with a new UUID.
// ID, CreatedAt and UpdatedAt are written back into sub.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, uid, name, price, day, frequency, category, status, color, logo,
			weekday, month, reminder_enabled, reminder_end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`, insertArgs(sub)...).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// Save writes the full record, inserting it if it does not exist yet.
// A row with the same id owned by someone else is left untouched and
// reported as ErrNotFound.
func (r *SubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		return r.Create(ctx, sub)
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, uid, name, price, day, frequency, category, status, color, logo,
			weekday, month, reminder_enabled, reminder_end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			day = EXCLUDED.day,
			frequency = EXCLUDED.frequency,
			category = EXCLUDED.category,
			status = EXCLUDED.status,
			color = EXCLUDED.color,
			logo = EXCLUDED.logo,
			weekday = EXCLUDED.weekday,
			month = EXCLUDED.month,
			reminder_enabled = EXCLUDED.reminder_enabled,
			reminder_end_date = EXCLUDED.reminder_end_date,
			updated_at = NOW()
		WHERE subscriptions.uid = EXCLUDED.uid
		RETURNING created_at, updated_at
	`, insertArgs(sub)...).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to save subscription: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func insertArgs(sub *models.Subscription) []any {
	return []any{
		sub.ID, sub.UID, sub.Name, sub.Price, sub.Day,
		string(sub.Frequency), string(sub.Category), string(sub.Status), sub.Color, sub.Logo,
		sub.Weekday, sub.Month, sub.ReminderEnabled, sub.ReminderEndDate,
	}
}

// Update writes only the given fields of sub. UpdatedAt is written back.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription, fields []models.Field) error {
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := []any{sub.ID, sub.UID}
	for _, f := range fields {
		col, ok := patchColumns[f]
		if !ok {
			return fmt.Errorf("failed to update subscription: unknown field %q", f)
		}
		args = append(args, col.value(*sub))
		sets = append(sets, fmt.Sprintf("%s = $%d", col.column, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	query := "UPDATE subscriptions SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND uid = $2 RETURNING updated_at"
	err := r.db.QueryRow(ctx, query, args...).Scan(&sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to update subscription: %w", ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription owned by uid.
func (r *SubscriptionRepository) Delete(ctx context.Context, uid, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND uid = $2`, id, uid)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete subscription: %w", ErrNotFound)
	}
	return nil
}

// GetByID retrieves a subscription owned by uid.
func (r *SubscriptionRepository) GetByID(ctx context.Context, uid, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := scanSubscription(r.db.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE id = $1 AND uid = $2
	`, id, uid), &sub)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get subscription: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// ListByUser returns every subscription of uid ordered by due day.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, uid string) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE uid = $1
		ORDER BY day ASC, created_at ASC, id ASC
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := scanSubscription(rows, &sub); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}

// ListUIDsWithActive returns the owners of at least one active subscription.
func (r *SubscriptionRepository) ListUIDsWithActive(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT uid FROM subscriptions
		WHERE status = $1
		ORDER BY uid
	`, string(models.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription owners: %w", err)
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("failed to scan subscription owner: %w", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription owners: %w", err)
	}
	return uids, nil
}

func scanSubscription(row pgx.Row, sub *models.Subscription) error {
	var frequency, category, status string
	err := row.Scan(
		&sub.ID, &sub.UID, &sub.Name, &sub.Price, &sub.Day,
		&frequency, &category, &status, &sub.Color, &sub.Logo,
		&sub.Weekday, &sub.Month, &sub.ReminderEnabled, &sub.ReminderEndDate,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return err
	}
	sub.Frequency = models.Frequency(frequency)
	sub.Category = models.Category(category)
	sub.Status = models.Status(status)
	return nil
}

// Package notify announces upcoming payments. A cron job scans every user
// with active subscriptions and hands a Notice to one or more dispatchers.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
)

// Title heads every notification.
const Title = "SubDay Alert"

// Notice is one user's due-soon announcement for one day.
type Notice struct {
	UID        string   `json:"uid"`
	Date       string   `json:"date"`
	Count      int      `json:"count"`
	Due        []string `json:"due"`
	EndingSoon []string `json:"ending_soon,omitempty"`
}

// Message renders the notice body.
func (n Notice) Message() string {
	var lines []string
	if n.Count > 0 {
		lines = append(lines, fmt.Sprintf("You have %d payments due soon!", n.Count))
	}
	if len(n.EndingSoon) > 0 {
		lines = append(lines, "Reminders ending soon: "+strings.Join(n.EndingSoon, ", "))
	}
	return strings.Join(lines, "\n")
}

// BuildNotice runs the due-soon scan for today. EndingSoon lists active
// subscriptions whose reminder is on and ends today or tomorrow. The bool
// is false when there is nothing to announce.
func BuildNotice(eval billing.Evaluator, uid string, subs []models.Subscription, today time.Time) (Notice, bool) {
	n := Notice{UID: uid, Date: today.Format(time.DateOnly)}

	for _, sub := range eval.DueSoon(subs, today) {
		n.Due = append(n.Due, sub.Name)
	}
	n.Count = len(n.Due)

	tomorrow := today.AddDate(0, 0, 1).Format(time.DateOnly)
	for _, sub := range billing.Active(subs) {
		if !sub.ReminderEnabled || sub.ReminderEndDate == nil {
			continue
		}
		end := sub.ReminderEndDate.Format(time.DateOnly)
		if end == n.Date || end == tomorrow {
			n.EndingSoon = append(n.EndingSoon, sub.Name)
		}
	}

	return n, n.Count > 0 || len(n.EndingSoon) > 0
}

// Dispatcher delivers a notice.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notice) error
}

// LogDispatcher writes notices to the log.
type LogDispatcher struct{}

// Dispatch implements Dispatcher.
func (LogDispatcher) Dispatch(_ context.Context, n Notice) error {
	logger.Log.Info().
		Str("user", logger.HashUserID(n.UID)).
		Str("date", n.Date).
		Int("due", n.Count).
		Int("ending_soon", len(n.EndingSoon)).
		Msg("Due-soon notice")
	return nil
}

// Multi sends a notice to every dispatcher and joins their errors.
type Multi []Dispatcher

// Dispatch implements Dispatcher.
func (m Multi) Dispatch(ctx context.Context, n Notice) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

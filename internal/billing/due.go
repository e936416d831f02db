package billing

import (
	"time"

	"gitlab.com/yelinaung/subday/internal/models"
)

// maxScanDays bounds NextDueDate. Every valid schedule fires within a year
// except a monthly day 31 or yearly Feb 29/30/31, which may never fire.
const maxScanDays = 366

// Evaluator decides due dates. Now and Location replace the wall clock and
// local zone used when a subscription has no creation timestamp to anchor
// its weekday or month. The zero value uses time.Now and time.Local.
type Evaluator struct {
	Now      func() time.Time
	Location *time.Location
}

// Default is the evaluator used by the package-level helpers.
var Default = Evaluator{}

func (e Evaluator) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func (e Evaluator) now() time.Time {
	if e.Now == nil {
		return time.Now().In(e.location())
	}
	return e.Now().In(e.location())
}

// Today returns midnight of the current day in the evaluator's location.
func (e Evaluator) Today() time.Time {
	return truncateDay(e.now())
}

// anchor is the instant the weekday or month falls back to.
func (e Evaluator) anchor(sub models.Subscription) time.Time {
	if sub.CreatedAt.IsZero() {
		return e.now()
	}
	return sub.CreatedAt.In(e.location())
}

// Weekday resolves the weekday a weekly subscription bills on (0 = Sunday).
// A day of 1 to 7 doubles as a weekday code, one-based.
func (e Evaluator) Weekday(sub models.Subscription) int {
	if sub.Weekday != nil {
		return *sub.Weekday
	}
	if sub.Day >= 1 && sub.Day <= 7 {
		return sub.Day - 1
	}
	return int(e.anchor(sub).Weekday())
}

// Month resolves the month a yearly subscription bills in (0 = January).
func (e Evaluator) Month(sub models.Subscription) int {
	if sub.Month != nil {
		return *sub.Month
	}
	return int(e.anchor(sub).Month()) - 1
}

// Anchored reports whether the schedule is stable over time. It is false
// when the weekday or month is derived from the current clock, which makes
// the answer drift from one day to the next.
func (e Evaluator) Anchored(sub models.Subscription) bool {
	if !sub.CreatedAt.IsZero() {
		return true
	}
	switch sub.Frequency {
	case models.FrequencyWeekly:
		return sub.Weekday != nil || (sub.Day >= 1 && sub.Day <= 7)
	case models.FrequencyYearly:
		return sub.Month != nil
	default:
		return true
	}
}

// IsDueOn reports whether a payment for sub falls on the calendar date of
// date. Only the date's year, month, day and weekday are read; its time of
// day and zone are ignored.
func (e Evaluator) IsDueOn(sub models.Subscription, date time.Time) bool {
	if sub.IsCanceled() {
		return false
	}
	switch sub.Frequency {
	case models.FrequencyWeekly:
		return int(date.Weekday()) == e.Weekday(sub)
	case models.FrequencyYearly:
		return date.Day() == sub.Day && int(date.Month())-1 == e.Month(sub)
	default:
		return date.Day() == sub.Day
	}
}

// NextDueDate returns the first date on or after from when sub is due.
// The bool is false if nothing falls within a year or sub is canceled.
func (e Evaluator) NextDueDate(sub models.Subscription, from time.Time) (time.Time, bool) {
	if sub.IsCanceled() {
		return time.Time{}, false
	}
	start := truncateDay(from)
	for i := range maxScanDays {
		d := start.AddDate(0, 0, i)
		if e.IsDueOn(sub, d) {
			return d, true
		}
	}
	return time.Time{}, false
}

// DaysUntilDue counts whole days from today to the next due date.
func (e Evaluator) DaysUntilDue(sub models.Subscription, today time.Time) (int, bool) {
	next, ok := e.NextDueDate(sub, today)
	if !ok {
		return 0, false
	}
	start := truncateDay(today)
	days := 0
	for d := start; d.Before(next); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days, true
}

// IsDueOn reports whether sub is due on date using the Default evaluator.
func IsDueOn(sub models.Subscription, date time.Time) bool {
	return Default.IsDueOn(sub, date)
}

// NextDueDate uses the Default evaluator.
func NextDueDate(sub models.Subscription, from time.Time) (time.Time, bool) {
	return Default.NextDueDate(sub, from)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

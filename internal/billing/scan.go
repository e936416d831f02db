package billing

import (
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subday/internal/models"
)

// DueSoon returns the subscriptions due today or tomorrow, in input order.
// Each subscription appears at most once.
func (e Evaluator) DueSoon(subs []models.Subscription, today time.Time) []models.Subscription {
	tomorrow := truncateDay(today).AddDate(0, 0, 1)
	var due []models.Subscription
	for _, sub := range subs {
		if e.IsDueOn(sub, today) || e.IsDueOn(sub, tomorrow) {
			due = append(due, sub)
		}
	}
	return due
}

// DueOn returns the subscriptions due on date, in input order.
func (e Evaluator) DueOn(subs []models.Subscription, date time.Time) []models.Subscription {
	var due []models.Subscription
	for _, sub := range subs {
		if e.IsDueOn(sub, date) {
			due = append(due, sub)
		}
	}
	return due
}

// MonthCalendar maps each day of the given month to what is due that day.
// Days with nothing due are omitted.
func (e Evaluator) MonthCalendar(subs []models.Subscription, year int, month time.Month) map[int][]models.Subscription {
	loc := e.location()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	calendar := make(map[int][]models.Subscription)
	for day := 1; day <= days; day++ {
		if due := e.DueOn(subs, first.AddDate(0, 0, day-1)); len(due) > 0 {
			calendar[day] = due
		}
	}
	return calendar
}

// TotalDue converts and sums the listed prices of subs. Each price is
// rounded after conversion, matching what the user sees per item.
func TotalDue(subs []models.Subscription, code models.Currency) Display {
	info := currencyInfo(code)
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(ToDisplay(sub.Price, code).Amount)
	}
	return Display{Currency: code, Symbol: info.Symbol, Amount: total}
}

// DueSoon uses the Default evaluator.
func DueSoon(subs []models.Subscription, today time.Time) []models.Subscription {
	return Default.DueSoon(subs, today)
}

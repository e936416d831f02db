// Package billing holds the recurring-payment schedule and cost model: which
// subscriptions are due on a date, and what each costs per month in USD.
// Everything here is pure and safe for concurrent use.
package billing

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subday/internal/models"
)

var (
	twelve = decimal.NewFromInt(12)
	four   = decimal.NewFromInt(4)
)

// MonthlyCostUSD normalizes a subscription's price to a monthly USD figure.
// Canceled subscriptions cost nothing. The result is not rounded.
func MonthlyCostUSD(sub models.Subscription) decimal.Decimal {
	if sub.IsCanceled() {
		return decimal.Zero
	}
	switch sub.Frequency {
	case models.FrequencyYearly:
		return sub.Price.Div(twelve)
	case models.FrequencyWeekly:
		return sub.Price.Mul(four)
	default:
		return sub.Price
	}
}

// TotalMonthlyUSD sums MonthlyCostUSD over subs.
func TotalMonthlyUSD(subs []models.Subscription) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range subs {
		total = total.Add(MonthlyCostUSD(sub))
	}
	return total
}

// Active filters out canceled subscriptions.
func Active(subs []models.Subscription) []models.Subscription {
	active := make([]models.Subscription, 0, len(subs))
	for _, sub := range subs {
		if !sub.IsCanceled() {
			active = append(active, sub)
		}
	}
	return active
}

package billing

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subday/internal/models"
)

// DefaultForecastMonths is the horizon of the stats forecast.
const DefaultForecastMonths = 6

// CategorySlice is one category's share of the monthly cost.
type CategorySlice struct {
	Category models.Category `json:"category"`
	Color    string          `json:"color"`
	Amount   Display         `json:"amount"`
}

// CategorySplit groups active subscriptions by category and converts each
// category's monthly cost to code. Empty slices are dropped. Slices are
// ordered by amount, largest first, then by category name.
func CategorySplit(subs []models.Subscription, code models.Currency) []CategorySlice {
	totals := make(map[models.Category]decimal.Decimal)
	colors := make(map[models.Category]string)
	for _, sub := range Active(subs) {
		totals[sub.Category] = totals[sub.Category].Add(MonthlyCostUSD(sub))
		if _, ok := colors[sub.Category]; !ok {
			colors[sub.Category] = sub.Color
		}
	}

	out := make([]CategorySlice, 0, len(totals))
	for cat, usd := range totals {
		amount := ToDisplay(usd, code)
		if amount.Amount.IsZero() {
			continue
		}
		out = append(out, CategorySlice{Category: cat, Color: colors[cat], Amount: amount})
	}
	sortSlices(out)
	return out
}

func sortSlices(s []CategorySlice) {
	slices.SortFunc(s, func(a, b CategorySlice) int {
		if c := b.Amount.Amount.Cmp(a.Amount.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
}

// ForecastPoint is the projected spend for one month.
type ForecastPoint struct {
	Month  string    `json:"month"`
	Start  time.Time `json:"start"`
	Amount Display   `json:"amount"`
}

// Forecast projects the converted monthly total over the next months,
// starting with the month of from. A non-positive months uses the default.
func Forecast(subs []models.Subscription, code models.Currency, from time.Time, months int) []ForecastPoint {
	if months <= 0 {
		months = DefaultForecastMonths
	}
	amount := ToDisplay(TotalMonthlyUSD(subs), code)
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())

	points := make([]ForecastPoint, months)
	for i := range points {
		start := first.AddDate(0, i, 0)
		points[i] = ForecastPoint{Month: start.Format("Jan"), Start: start, Amount: amount}
	}
	return points
}

// SortKey selects the list ordering.
type SortKey string

// Supported sort keys.
const (
	SortByPrice SortKey = "price"
	SortByName  SortKey = "name"
	SortByDay   SortKey = "day"
)

// SortOrder is ascending or descending.
type SortOrder string

// Supported sort orders.
const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ListOptions control the list view.
type ListOptions struct {
	ShowArchived bool
	SortBy       SortKey
	Order        SortOrder
}

// Sorted filters and orders subs for the list view. Canceled subscriptions
// are hidden unless ShowArchived is set. The zero options sort by price,
// most expensive first. The input slice is not modified.
func Sorted(subs []models.Subscription, opts ListOptions) []models.Subscription {
	var out []models.Subscription
	if opts.ShowArchived {
		out = slices.Clone(subs)
	} else {
		out = Active(subs)
	}
	if opts.SortBy == "" {
		opts.SortBy = SortByPrice
	}
	if opts.Order == "" {
		opts.Order = OrderDesc
	}

	compare := func(a, b models.Subscription) int {
		switch opts.SortBy {
		case SortByName:
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByDay:
			return cmp.Compare(a.Day, b.Day)
		default:
			return a.Price.Cmp(b.Price)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Subscription) int {
		if opts.Order == OrderDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// Stats is the stats view.
type Stats struct {
	MonthlyUSD decimal.Decimal `json:"monthlyUsd"`
	Monthly    Display         `json:"monthly"`
	Active     int             `json:"active"`
	Categories []CategorySlice `json:"categories"`
	Forecast   []ForecastPoint `json:"forecast"`
}

// Summarize builds the stats view as of now.
func Summarize(subs []models.Subscription, code models.Currency, now time.Time) Stats {
	usd := TotalMonthlyUSD(subs)
	return Stats{
		MonthlyUSD: usd.Round(2),
		Monthly:    ToDisplay(usd, code),
		Active:     len(Active(subs)),
		Categories: CategorySplit(subs, code),
		Forecast:   Forecast(subs, code, now, DefaultForecastMonths),
	}
}

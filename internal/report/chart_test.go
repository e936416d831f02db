package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/models"
)

func requirePNG(t *testing.T, buf []byte) {
	t.Helper()
	require.GreaterOrEqual(t, len(buf), 4)
	// PNG files start with magic bytes: 89 50 4E 47
	require.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, buf[:4])
}

func sampleSubs() []models.Subscription {
	return []models.Subscription{
		{Name: "Netflix", Price: decimal.RequireFromString("15.49"), Day: 5, Frequency: models.FrequencyMonthly,
			Category: models.CategoryEntertainment, Status: models.StatusActive, Color: "#E50914"},
		{Name: "Adobe", Price: decimal.NewFromInt(120), Day: 12, Frequency: models.FrequencyYearly,
			Category: models.CategoryWork, Status: models.StatusActive, Color: "#FF0000"},
		{Name: "Gym", Price: decimal.NewFromInt(10), Day: 1, Frequency: models.FrequencyWeekly,
			Category: models.CategoryHealth, Status: models.StatusActive, Color: "#00FF00"},
	}
}

func TestGenerateCategoryChart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		subs    []models.Subscription
		code    models.Currency
		wantErr bool
	}{
		{name: "multiple categories", subs: sampleSubs(), code: models.CurrencyUSD},
		{name: "single category in EUR", subs: sampleSubs()[:1], code: models.CurrencyEUR},
		{name: "no subscriptions", subs: nil, code: models.CurrencyUSD, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf, err := GenerateCategoryChart(billing.CategorySplit(tt.subs, tt.code))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoData)
				return
			}
			require.NoError(t, err)
			requirePNG(t, buf)
		})
	}
}

func TestGenerateForecastChart(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	t.Run("renders six months", func(t *testing.T) {
		t.Parallel()

		points := billing.Forecast(sampleSubs(), models.CurrencyGBP, from, 0)
		require.Len(t, points, billing.DefaultForecastMonths)

		buf, err := GenerateForecastChart(points)
		require.NoError(t, err)
		requirePNG(t, buf)
	})

	t.Run("empty forecast", func(t *testing.T) {
		t.Parallel()

		_, err := GenerateForecastChart(nil)
		require.ErrorIs(t, err, ErrNoData)
	})
}

package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subday/internal/models"
)

func TestGenerateSubscriptionsCSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		subs []models.Subscription
		want string
	}{
		{
			name: "header only for empty list",
			subs: nil,
			want: "Name,Price(USD),Frequency,Category,Status,Due Day\n",
		},
		{
			name: "one row per subscription",
			subs: []models.Subscription{
				{
					Name: "Netflix", Price: decimal.RequireFromString("15.49"), Day: 5,
					Frequency: models.FrequencyMonthly, Category: models.CategoryEntertainment, Status: models.StatusActive,
				},
				{
					Name: "Adobe", Price: decimal.NewFromInt(120), Day: 12,
					Frequency: models.FrequencyYearly, Category: models.CategoryWork, Status: models.StatusCanceled,
				},
			},
			want: "Name,Price(USD),Frequency,Category,Status,Due Day\n" +
				"Netflix,15.49,Monthly,Entertainment,Active,5\n" +
				"Adobe,120.00,Yearly,Work,Canceled,12\n",
		},
		{
			name: "missing status defaults to Active",
			subs: []models.Subscription{
				{Name: "Gym", Price: decimal.NewFromInt(10), Day: 1, Frequency: models.FrequencyWeekly, Category: models.CategoryHealth},
			},
			want: "Name,Price(USD),Frequency,Category,Status,Due Day\n" +
				"Gym,10.00,Weekly,Health,Active,1\n",
		},
		{
			name: "names with commas are quoted",
			subs: []models.Subscription{
				{Name: "Foo, Inc", Price: decimal.NewFromInt(1), Day: 2, Frequency: models.FrequencyMonthly, Category: models.CategoryShopping},
			},
			want: "Name,Price(USD),Frequency,Category,Status,Due Day\n" +
				"\"Foo, Inc\",1.00,Monthly,Shopping,Active,2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := GenerateSubscriptionsCSV(tt.subs)
			require.NoError(t, err)
			require.Equal(t, tt.want, string(got))
		})
	}
}

func TestCSVFilename(t *testing.T) {
	t.Parallel()
	require.True(t, strings.HasSuffix(CSVFilename, ".csv"))
	require.Equal(t, "subday_export.csv", CSVFilename)
}

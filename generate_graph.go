//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/report"
)

func sample(name, price string, freq models.Frequency, category models.Category) models.Subscription {
	return models.Subscription{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Day:       1,
		Frequency: freq,
		Category:  category,
		Status:    models.StatusActive,
	}
}

func main() {
	subs := []models.Subscription{
		sample("Netflix", "15.49", models.FrequencyMonthly, models.CategoryEntertainment),
		sample("Spotify", "11.99", models.FrequencyMonthly, models.CategoryEntertainment),
		sample("Notion", "96", models.FrequencyYearly, models.CategoryProductivity),
		sample("Gym", "12", models.FrequencyWeekly, models.CategoryHealth),
		sample("Xbox Game Pass", "16.99", models.FrequencyMonthly, models.CategoryGaming),
	}

	chartData, err := report.GenerateCategoryChart(billing.CategorySplit(subs, models.CurrencyEUR))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Created graph.png - Example category breakdown chart")
}

package report

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/subday/internal/billing"
)

// ErrNoData is returned when there is nothing to chart.
var ErrNoData = errors.New("no subscriptions to chart")

// GenerateCategoryChart creates a pie chart of the monthly cost per category.
// Returns PNG image as bytes.
func GenerateCategoryChart(split []billing.CategorySlice) ([]byte, error) {
	if len(split) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(split))
	names := make([]string, len(split))
	for i, s := range split {
		values[i] = s.Amount.Amount.InexactFloat64()
		names[i] = fmt.Sprintf("%s %s", s.Category, s.Amount)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Monthly Spend by Category (%s)", split[0].Amount.Currency),
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// GenerateForecastChart creates a line chart of the projected monthly spend.
// Returns PNG image as bytes.
func GenerateForecastChart(points []billing.ForecastPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		values[i] = pt.Amount.Amount.InexactFloat64()
		labels[i] = pt.Month
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Spend Forecast (%s)", points[0].Amount.Currency),
		}),
		charts.XAxisLabelsOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Projected"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

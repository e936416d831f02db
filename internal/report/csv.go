// Package report renders subscription exports and charts.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"gitlab.com/yelinaung/subday/internal/models"
)

// CSVFilename is the download name of the export.
const CSVFilename = "subday_export.csv"

var csvHeader = []string{"Name", "Price(USD)", "Frequency", "Category", "Status", "Due Day"}

// GenerateSubscriptionsCSV generates a CSV file from a list of subscriptions.
func GenerateSubscriptionsCSV(subs []models.Subscription) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range subs {
		status := subs[i].Status
		if status == "" {
			status = models.StatusActive
		}

		row := []string{
			subs[i].Name,
			subs[i].Price.StringFixed(2),
			string(subs[i].Frequency),
			string(subs[i].Category),
			string(status),
			strconv.Itoa(subs[i].Day),
		}

		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

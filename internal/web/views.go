package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/report"
)

type calendarResponse struct {
	Year  int                           `json:"year"`
	Month int                           `json:"month"`
	Days  map[int][]models.Subscription `json:"days"`
}

type dueResponse struct {
	Date          string                `json:"date"`
	Subscriptions []models.Subscription `json:"subscriptions"`
	Total         billing.Display       `json:"total"`
}

type dueSoonResponse struct {
	Subscriptions []models.Subscription `json:"subscriptions"`
	Count         int                   `json:"count"`
}

type presetResponse struct {
	models.Preset
	Logo string `json:"logo"`
}

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	eval := h.ledgers.Evaluator()
	today := eval.Today()
	year, month := today.Year(), int(today.Month())

	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			h.fail(w, r, badRequest("year must be a number between 1 and 9999"))
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			h.fail(w, r, badRequest("month must be a number between 1 and 12"))
			return
		}
		month = m
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	days := eval.MonthCalendar(l.Subscriptions(), year, time.Month(month))
	writeJSON(w, http.StatusOK, calendarResponse{Year: year, Month: month, Days: days})
}

func (h *Handler) due(w http.ResponseWriter, r *http.Request) {
	eval := h.ledgers.Evaluator()
	date := eval.Today()
	if v := r.URL.Query().Get("date"); v != "" {
		loc := date.Location()
		d, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			h.fail(w, r, badRequest("date must be formatted YYYY-MM-DD"))
			return
		}
		date = d
	}

	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	due := eval.DueOn(l.Subscriptions(), date)
	writeJSON(w, http.StatusOK, dueResponse{
		Date:          date.Format(time.DateOnly),
		Subscriptions: nonNil(due),
		Total:         billing.TotalDue(due, currency),
	})
}

func (h *Handler) dueSoon(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	eval := h.ledgers.Evaluator()
	due := eval.DueSoon(l.Subscriptions(), eval.Today())
	writeJSON(w, http.StatusOK, dueSoonResponse{Subscriptions: nonNil(due), Count: len(due)})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, billing.Summarize(l.Subscriptions(), currency, h.ledgers.Evaluator().Today()))
}

func (h *Handler) categoryChart(w http.ResponseWriter, r *http.Request) {
	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	png, err := report.GenerateCategoryChart(billing.CategorySplit(l.Subscriptions(), currency))
	h.writePNG(w, r, png, err)
}

func (h *Handler) forecastChart(w http.ResponseWriter, r *http.Request) {
	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	points := billing.Forecast(l.Subscriptions(), currency, h.ledgers.Evaluator().Today(), billing.DefaultForecastMonths)
	png, err := report.GenerateForecastChart(points)
	h.writePNG(w, r, png, err)
}

func (h *Handler) writePNG(w http.ResponseWriter, r *http.Request, png []byte, err error) {
	if errors.Is(err, report.ErrNoData) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write chart")
	}
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	data, err := report.GenerateSubscriptionsCSV(l.Subscriptions())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write CSV export")
	}
}

func (h *Handler) presets(w http.ResponseWriter, r *http.Request) {
	matches := models.SearchPresets(r.URL.Query().Get("q"))
	out := make([]presetResponse, len(matches))
	for i, p := range matches {
		out[i] = presetResponse{Preset: p, Logo: models.LogoURL(p.Domain)}
	}
	writeJSON(w, http.StatusOK, map[string][]presetResponse{"presets": out})
}

func nonNil(subs []models.Subscription) []models.Subscription {
	if subs == nil {
		return []models.Subscription{}
	}
	return subs
}

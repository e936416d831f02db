package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/tracker"
)

type subscriptionRequest struct {
	Name            string      `json:"name" validate:"notblank,max=100"`
	Price           json.Number `json:"price" validate:"required"`
	Day             int         `json:"day" validate:"min=1,max=31"`
	Frequency       string      `json:"frequency"`
	Category        string      `json:"category"`
	Status          string      `json:"status"`
	Color           string      `json:"color" validate:"omitempty,hexcolor"`
	Logo            string      `json:"logo" validate:"omitempty,url"`
	Weekday         *int        `json:"weekday" validate:"omitempty,min=0,max=6"`
	Month           *int        `json:"month" validate:"omitempty,min=0,max=11"`
	ReminderEnabled bool        `json:"reminderEnabled"`
	ReminderEndDate string      `json:"reminderEndDate" validate:"omitempty,isodate"`
}

func (req subscriptionRequest) draft() models.Draft {
	return models.Draft{
		Name:            req.Name,
		Price:           req.Price.String(),
		Day:             req.Day,
		Frequency:       req.Frequency,
		Category:        req.Category,
		Status:          req.Status,
		Color:           req.Color,
		Logo:            req.Logo,
		Weekday:         req.Weekday,
		Month:           req.Month,
		ReminderEnabled: req.ReminderEnabled,
		ReminderEndDate: parseDate(req.ReminderEndDate),
	}
}

type patchRequest struct {
	Name            *string      `json:"name" validate:"omitempty,notblank,max=100"`
	Price           *json.Number `json:"price"`
	Day             *int         `json:"day" validate:"omitempty,min=1,max=31"`
	Frequency       *string      `json:"frequency"`
	Category        *string      `json:"category"`
	Status          *string      `json:"status"`
	Color           *string      `json:"color" validate:"omitempty,hexcolor"`
	Logo            *string      `json:"logo"`
	Weekday         *int         `json:"weekday" validate:"omitempty,min=0,max=6"`
	Month           *int         `json:"month" validate:"omitempty,min=0,max=11"`
	ReminderEnabled *bool        `json:"reminderEnabled"`
	ReminderEndDate *string      `json:"reminderEndDate" validate:"omitempty,isodate"`
}

func (req patchRequest) patch() models.Patch {
	p := models.Patch{
		Name:            req.Name,
		Day:             req.Day,
		Frequency:       req.Frequency,
		Category:        req.Category,
		Status:          req.Status,
		Color:           req.Color,
		Logo:            req.Logo,
		Weekday:         req.Weekday,
		Month:           req.Month,
		ReminderEnabled: req.ReminderEnabled,
	}
	if req.Price != nil {
		price := req.Price.String()
		p.Price = &price
	}
	if req.ReminderEndDate != nil {
		p.ReminderEndDate = parseDate(*req.ReminderEndDate)
	}
	return p
}

type reminderRequest struct {
	Enabled *bool  `json:"enabled" validate:"required"`
	EndDate string `json:"endDate" validate:"omitempty,isodate"`
}

type listResponse struct {
	Subscriptions []tracker.Record `json:"subscriptions"`
	Count         int              `json:"count"`
}

type revertResponse struct {
	Record  *tracker.Record `json:"record,omitempty"`
	Removed bool            `json:"removed"`
}

// parseDate parses a validated YYYY-MM-DD value. Empty yields nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &d
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := billing.ListOptions{
		SortBy: billing.SortKey(q.Get("sort")),
		Order:  billing.SortOrder(q.Get("order")),
	}
	if v := q.Get("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(w, r, badRequest("archived must be true or false"))
			return
		}
		opts.ShowArchived = archived
	}
	switch opts.SortBy {
	case "", billing.SortByPrice, billing.SortByName, billing.SortByDay:
	default:
		h.fail(w, r, badRequest("sort must be one of price, name, day"))
		return
	}
	switch opts.Order {
	case "", billing.OrderAsc, billing.OrderDesc:
	default:
		h.fail(w, r, badRequest("order must be asc or desc"))
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	records := l.Records()
	byID := make(map[string]tracker.Record, len(records))
	subs := make([]models.Subscription, len(records))
	for i, rec := range records {
		byID[rec.ID] = rec
		subs[i] = rec.Subscription
	}

	sorted := billing.Sorted(subs, opts)
	out := make([]tracker.Record, len(sorted))
	for i, sub := range sorted {
		out[i] = byID[sub.ID]
	}
	writeJSON(w, http.StatusOK, listResponse{Subscriptions: out, Count: len(out)})
}

func (h *Handler) addSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Add(r.Context(), req.draft())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) setReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.SetReminder(r.Context(), chi.URLParam(r, "id"), *req.Enabled, parseDate(req.EndDate))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) retrySubscription(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) revertSubscription(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, exists, err := l.Revert(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !exists {
		writeJSON(w, http.StatusOK, revertResponse{Removed: true})
		return
	}
	writeJSON(w, http.StatusOK, revertResponse{Record: &rec})
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	if err := l.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelGuide(w http.ResponseWriter, r *http.Request) {
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": models.CancelGuideURL(rec.Name)})
}

// Package web serves the subscription tracker's HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/gemini"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/tracker"
)

// Ledgers hands out per-user ledgers.
type Ledgers interface {
	Ledger(ctx context.Context, uid string) (*tracker.Ledger, error)
	Evaluator() billing.Evaluator
}

// PreferenceStore reads and writes user preferences.
type PreferenceStore interface {
	Get(ctx context.Context, uid string) (models.Preferences, error)
	Upsert(ctx context.Context, prefs *models.Preferences) error
}

// Assistant answers budget questions and reads documents.
type Assistant interface {
	Ask(ctx context.Context, question string, subs []models.Subscription, currency models.Currency) (string, error)
	NegotiationScript(ctx context.Context, sub models.Subscription, notes string, subs []models.Subscription, currency models.Currency) (string, error)
	ExtractSubscription(ctx context.Context, data []byte, mimeType string) (*gemini.ExtractedSubscription, error)
}

// Compile-time check that the Gemini client satisfies Assistant.
var _ Assistant = (*gemini.Client)(nil)

// Handler implements the API endpoints.
type Handler struct {
	ledgers   Ledgers
	prefs     PreferenceStore
	assistant Assistant
}

// NewHandler creates a Handler. A nil assistant makes the assistant
// endpoints answer 503.
func NewHandler(ledgers Ledgers, prefs PreferenceStore, assistant Assistant) *Handler {
	return &Handler{ledgers: ledgers, prefs: prefs, assistant: assistant}
}

type errorResponse struct {
	Error  string          `json:"error"`
	Record *tracker.Record `json:"record,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

var validationErrors = []error{
	models.ErrInvalidName,
	models.ErrInvalidPrice,
	models.ErrInvalidDay,
	models.ErrInvalidWeekday,
	models.ErrInvalidMonth,
	models.ErrInvalidFrequency,
	models.ErrInvalidCategory,
	models.ErrInvalidStatus,
	models.ErrInvalidCurrency,
}

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, http.StatusBadRequest, reqErr.Error())
		return
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var syncErr *tracker.SyncError
	if errors.As(err, &syncErr) {
		rec := syncErr.Record
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to save subscription", Record: &rec})
		return
	}

	switch {
	case errors.Is(err, tracker.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tracker.ErrBusy),
		errors.Is(err, tracker.ErrDeleting),
		errors.Is(err, tracker.ErrNothingToDo):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, gemini.ErrExtractTimeout):
		writeError(w, http.StatusServiceUnavailable, gemini.ErrExtractTimeout.Error())
	case errors.Is(err, gemini.ErrScriptUnavailable):
		writeError(w, http.StatusServiceUnavailable, gemini.ErrScriptUnavailable.Error())
	case errors.Is(err, gemini.ErrAssistantUnavailable):
		writeError(w, http.StatusServiceUnavailable, gemini.ErrAssistantUnavailable.Error())
	case errors.Is(err, gemini.ErrDocumentTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, gemini.ErrDocumentTooLarge.Error())
	case errors.Is(err, gemini.ErrUnsupportedDocument):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		logger.Log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// uid returns the authenticated user. The auth middleware guarantees it.
func uid(r *http.Request) string {
	id, _ := UIDFromContext(r.Context())
	return id
}

// ledger loads the caller's ledger, answering 502 when the store is down.
func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) (*tracker.Ledger, bool) {
	l, err := h.ledgers.Ledger(r.Context(), uid(r))
	if err != nil {
		logger.Log.Error().Err(err).Str("user", logger.HashUserID(uid(r))).Msg("Failed to load ledger")
		writeError(w, http.StatusBadGateway, "subscriptions are unavailable")
		return nil, false
	}
	return l, true
}

// currency picks the display currency: the currency query parameter when
// given, else the caller's preference.
func (h *Handler) currency(w http.ResponseWriter, r *http.Request) (models.Currency, bool) {
	if code := r.URL.Query().Get("currency"); code != "" {
		c, err := models.ParseCurrency(code)
		if err != nil {
			h.fail(w, r, err)
			return "", false
		}
		return c, true
	}

	prefs, err := h.prefs.Get(r.Context(), uid(r))
	if err != nil {
		logger.Log.Warn().Err(err).Str("user", logger.HashUserID(uid(r))).Msg("Failed to load preferences, using default currency")
		return models.DefaultCurrency, true
	}
	if _, ok := models.SupportedCurrencies[prefs.Currency]; !ok {
		return models.DefaultCurrency, true
	}
	return prefs.Currency, true
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

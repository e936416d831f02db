package web

import (
	"net/http"

	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
)

type preferencesRequest struct {
	Currency       string `json:"currency" validate:"required"`
	TelegramChatID *int64 `json:"telegramChatId"`
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Get(r.Context(), uid(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	currency, err := models.ParseCurrency(req.Currency)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	prefs := models.Preferences{UID: uid(r), Currency: currency, TelegramChatID: req.TelegramChatID}
	if err := h.prefs.Upsert(r.Context(), &prefs); err != nil {
		h.fail(w, r, err)
		return
	}

	logger.Log.Info().
		Str("user", logger.HashUserID(prefs.UID)).
		Str("currency", string(prefs.Currency)).
		Bool("telegram_linked", prefs.TelegramChatID != nil).
		Msg("Preferences updated")
	writeJSON(w, http.StatusOK, prefs)
}

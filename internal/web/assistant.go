package web

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"gitlab.com/yelinaung/subday/internal/gemini"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
)

// uploadOverhead leaves room for the multipart envelope around the file.
const uploadOverhead = 64 << 10

type chatRequest struct {
	Message string `json:"message" validate:"notblank,max=1000"`
}

type negotiateRequest struct {
	SubscriptionID string `json:"subscriptionId" validate:"required"`
	Notes          string `json:"notes" validate:"max=500"`
}

type extractedDraft struct {
	Name      string          `json:"name"`
	Price     string          `json:"price"`
	Frequency string          `json:"frequency"`
	Day       int             `json:"day"`
	Category  models.Category `json:"category,omitempty"`
	Color     string          `json:"color,omitempty"`
	Logo      string          `json:"logo,omitempty"`
}

func newExtractedDraft(e *gemini.ExtractedSubscription) *extractedDraft {
	d := &extractedDraft{
		Name:      e.Name,
		Price:     e.Price,
		Frequency: string(e.Frequency),
		Day:       e.Day,
	}
	if p, ok := models.LookupPreset(e.Name); ok {
		d.Category = p.Category
		d.Color = p.Color
		d.Logo = models.LogoURL(p.Domain)
	}
	return d
}

// requireAssistant answers 503 when no model is configured.
func (h *Handler) requireAssistant(w http.ResponseWriter) bool {
	if h.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, gemini.ErrAssistantUnavailable.Error())
		return false
	}
	return true
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w) {
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}

	reply, err := h.assistant.Ask(r.Context(), req.Message, l.Subscriptions(), currency)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("user", logger.HashUserID(uid(r))).
			Str("question", logger.SanitizeText(req.Message)).
			Msg("Assistant request failed")
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *Handler) negotiate(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w) {
		return
	}
	var req negotiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	currency, ok := h.currency(w, r)
	if !ok {
		return
	}
	l, ok := h.ledger(w, r)
	if !ok {
		return
	}
	rec, err := l.Get(req.SubscriptionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	script, err := h.assistant.NegotiationScript(r.Context(), rec.Subscription, req.Notes, l.Subscriptions(), currency)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("user", logger.HashUserID(uid(r))).
			Str("subscription", logger.SanitizeName(rec.Name)).
			Msg("Negotiation script failed")
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"script": script})
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	if !h.requireAssistant(w) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, gemini.MaxDocumentSize+uploadOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(w, r, gemini.ErrDocumentTooLarge)
			return
		}
		h.fail(w, r, badRequest("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, gemini.MaxDocumentSize+1))
	if err != nil {
		h.fail(w, r, badRequest("failed to read file"))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffMIMEType(header.Filename, data)
	}

	found, err := h.assistant.ExtractSubscription(r.Context(), data, mimeType)
	if err != nil {
		logger.Log.Warn().Err(err).
			Str("user", logger.HashUserID(uid(r))).
			Str("mime_type", mimeType).
			Int("size", len(data)).
			Msg("Document extraction failed")
		h.fail(w, r, err)
		return
	}

	var draft *extractedDraft
	if found != nil {
		draft = newExtractedDraft(found)
	}
	writeJSON(w, http.StatusOK, map[string]*extractedDraft{"draft": draft})
}

// sniffMIMEType guesses the type of an upload sent without one, first from
// the file extension and then from its content.
func sniffMIMEType(filename string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" {
		return "text/csv"
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	mt, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return mt
}

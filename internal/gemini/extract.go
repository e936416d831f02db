package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"google.golang.org/genai"
)

// ExtractTimeout bounds a single extraction call.
const ExtractTimeout = 30 * time.Second

// MaxDocumentSize is the largest document accepted for extraction.
const MaxDocumentSize = 10 * 1024 * 1024

var (
	// ErrExtractTimeout is returned when extraction takes longer than ExtractTimeout.
	ErrExtractTimeout = errors.New("subscription extraction timed out")

	// ErrDocumentTooLarge is returned for documents above MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document too large")

	// ErrUnsupportedDocument is returned for MIME types Gemini cannot read.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

var supportedMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/heic":      true,
	"application/pdf": true,
	"text/csv":        true,
}

// ExtractedSubscription is a subscription found in a document. Fields the
// model could not read are left at their zero value.
type ExtractedSubscription struct {
	Name      string
	Price     string
	Frequency models.Frequency
	Day       int
}

// Draft converts the extraction into a draft for the user to confirm.
func (e ExtractedSubscription) Draft() models.Draft {
	return models.Draft{
		Name:      e.Name,
		Price:     e.Price,
		Day:       e.Day,
		Frequency: string(e.Frequency),
	}
}

type extractResponse struct {
	Found     bool   `json:"found"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Frequency string `json:"frequency"`
	Day       int    `json:"day"`
}

// ExtractSubscription reads a receipt, invoice or screenshot and returns the
// subscription it shows. It returns nil with no error when nothing usable
// was found.
func (c *Client) ExtractSubscription(ctx context.Context, data []byte, mimeType string) (*ExtractedSubscription, error) {
	if len(data) > MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !supportedMIMETypes[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}

	ctx, cancel := context.WithTimeout(ctx, ExtractTimeout)
	defer cancel()

	frequencies := make([]string, len(models.Frequencies))
	for i, f := range models.Frequencies {
		frequencies[i] = string(f)
	}

	temp := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature:      &temp,
		MaxOutputTokens:  512,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"found":     {Type: genai.TypeBoolean},
				"name":      {Type: genai.TypeString},
				"price":     {Type: genai.TypeString},
				"frequency": {Type: genai.TypeString, Enum: frequencies},
				"day":       {Type: genai.TypeInteger},
			},
			Required: []string{"found"},
		},
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{Text: buildExtractionPrompt()},
			},
		},
	}

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrExtractTimeout
		}
		return nil, fmt.Errorf("failed to extract subscription: %w: %w", ErrAssistantUnavailable, err)
	}

	if resp == nil {
		return nil, nil
	}
	return parseExtractResponse(resp.Text()), nil
}

func parseExtractResponse(text string) *ExtractedSubscription {
	raw := extractJSON(text)
	if raw == "" {
		logger.Log.Debug().Msg("Extraction response contained no JSON")
		return nil
	}

	var parsed extractResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Log.Debug().Err(err).Msg("Failed to parse extraction response")
		return nil
	}
	if !parsed.Found {
		return nil
	}

	out := &ExtractedSubscription{
		Name: SanitizeForPrompt(parsed.Name, models.MaxNameLength),
	}
	if price, err := models.ParsePrice(parsed.Price); err == nil {
		out.Price = price.StringFixed(2)
	}
	if f, err := models.ParseFrequency(parsed.Frequency); err == nil {
		out.Frequency = f
	}
	if parsed.Day >= 1 && parsed.Day <= 31 {
		out.Day = parsed.Day
	}
	if out.Name == "" && out.Price == "" {
		return nil
	}
	return out
}

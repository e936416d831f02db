package gemini

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/models"
)

// MaxQuestionLength caps user text embedded in prompts.
const MaxQuestionLength = 1000

// MaxNotesLength caps negotiation notes embedded in prompts.
const MaxNotesLength = 500

func buildAssistantPrompt(question string, subs []models.Subscription, currency models.Currency) string {
	active := billing.Active(subs)
	total := billing.TotalMonthlyUSD(active).StringFixed(2)

	lines := make([]string, 0, len(active))
	for _, s := range active {
		lines = append(lines, fmt.Sprintf("- %s (%s): $%s",
			SanitizeForPrompt(s.Name, models.MaxNameLength), s.Frequency, s.Price.StringFixed(2)))
	}

	return fmt.Sprintf(`Act as a financial assistant. User Currency: %s. Total Monthly (USD base): $%s. Active Subs: %s. Question: "%s". Keep it short.`,
		currency, total, strings.Join(lines, "\n"), SanitizeForPrompt(question, MaxQuestionLength))
}

func buildNegotiationPrompt(sub models.Subscription, notes string) string {
	notes = SanitizeForPrompt(notes, MaxNotesLength)
	if notes == "" {
		notes = "None"
	}
	return fmt.Sprintf(`Write a short, polite negotiation script to ask for a better price on the %s subscription. Current price: $%s. Frequency: %s. Notes: %s.`,
		SanitizeForPrompt(sub.Name, models.MaxNameLength), sub.Price.StringFixed(2), sub.Frequency, notes)
}

func buildExtractionPrompt() string {
	frequencies := make([]string, len(models.Frequencies))
	for i, f := range models.Frequencies {
		frequencies[i] = string(f)
	}
	return fmt.Sprintf(`Look at this document (a receipt, invoice, bank statement or screenshot) and decide whether it shows a recurring subscription.
Return ONLY a JSON object with no additional text or markdown formatting.

Fields:
- found: true if a subscription is shown, false otherwise
- name: the service name, e.g. "Netflix"
- price: the charge per billing period as a numeric string, e.g. "15.49"
- frequency: one of %s
- day: the day of month the charge recurs (1-31), 0 if unknown

Example response:
{"found": true, "name": "Spotify", "price": "11.99", "frequency": "Monthly", "day": 14}`, strings.Join(frequencies, ", "))
}

// extractJSON extracts a JSON object from text that may contain preamble.
// Gemini sometimes returns responses like "Here is the JSON:\n{...}" even
// when ResponseMIMEType is set to application/json.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// SanitizeForPrompt sanitizes user input to prevent prompt injection attacks.
// It removes or escapes characters that could break prompt structure,
// and truncates to maxLength characters.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")

	input = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)

	// Collapses newlines too, so user text cannot start a new prompt line.
	input = strings.Join(strings.Fields(input), " ")

	if utf8.RuneCountInString(input) > maxLength {
		input = strings.TrimSpace(string([]rune(input)[:maxLength]))
	}

	return input
}

package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"google.golang.org/genai"
)

// ChatTimeout bounds a single assistant call.
const ChatTimeout = 20 * time.Second

var (
	// ErrAssistantUnavailable is returned when the assistant cannot answer.
	// Its text is shown to the user as is.
	ErrAssistantUnavailable = errors.New("Connection error.")

	// ErrScriptUnavailable is returned when no negotiation script could be written.
	ErrScriptUnavailable = errors.New("Unable to generate a script right now.")
)

// Ask answers a budget question using the user's active subscriptions as context.
func (c *Client) Ask(ctx context.Context, question string, subs []models.Subscription, currency models.Currency) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ChatTimeout)
	defer cancel()

	prompt := buildAssistantPrompt(question, subs, currency)
	temp := float32(0.7)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 1024,
	}
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := c.generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Assistant request failed")
		return "", ErrAssistantUnavailable
	}

	if resp == nil {
		return "", ErrAssistantUnavailable
	}
	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		logger.Log.Warn().Msg("Assistant returned an empty answer")
		return "", ErrAssistantUnavailable
	}

	logger.Log.Debug().Int("answer_length", len(answer)).Msg("Assistant answered")
	return answer, nil
}

// NegotiationScript drafts a polite request for a better price on sub.
// The request goes through the assistant with the user's portfolio as context.
func (c *Client) NegotiationScript(
	ctx context.Context,
	sub models.Subscription,
	notes string,
	subs []models.Subscription,
	currency models.Currency,
) (string, error) {
	script, err := c.Ask(ctx, buildNegotiationPrompt(sub, notes), subs, currency)
	if err != nil {
		return "", ErrScriptUnavailable
	}
	return script, nil
}

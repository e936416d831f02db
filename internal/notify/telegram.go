package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"gitlab.com/yelinaung/subday/internal/logger"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/notify/mocks"
)

// MessageSender is the part of the Telegram API the dispatcher needs.
type MessageSender = mocks.MessageSender

// Compile-time check that the real bot satisfies the interface.
var _ MessageSender = (*tgbot.Bot)(nil)

// PreferenceSource looks up where a user wants to be notified.
type PreferenceSource interface {
	Get(ctx context.Context, uid string) (models.Preferences, error)
}

// TelegramDispatcher sends notices to the user's Telegram chat.
type TelegramDispatcher struct {
	sender MessageSender
	prefs  PreferenceSource
}

// NewTelegramDispatcher creates a TelegramDispatcher.
func NewTelegramDispatcher(sender MessageSender, prefs PreferenceSource) *TelegramDispatcher {
	return &TelegramDispatcher{sender: sender, prefs: prefs}
}

// Dispatch implements Dispatcher. Users without a linked chat are skipped.
func (d *TelegramDispatcher) Dispatch(ctx context.Context, n Notice) error {
	prefs, err := d.prefs.Get(ctx, n.UID)
	if err != nil {
		return fmt.Errorf("failed to get preferences: %w", err)
	}
	if prefs.TelegramChatID == nil {
		logger.Log.Debug().Str("user", logger.HashUserID(n.UID)).Msg("No Telegram chat linked, skipping notice")
		return nil
	}

	_, err = d.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: *prefs.TelegramChatID,
		Text:   Title + "\n" + n.Message(),
	})
	if err != nil {
		return fmt.Errorf("failed to send Telegram notice: %w", err)
	}

	logger.Log.Debug().
		Str("user", logger.HashUserID(n.UID)).
		Str("chat", logger.HashChatID(*prefs.TelegramChatID)).
		Msg("Sent Telegram notice")
	return nil
}

package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/require"
)

func TestMockSender_SendMessage(t *testing.T) {
	t.Parallel()

	m := NewMockSender()
	require.Nil(t, m.LastSentMessage())

	msg, err := m.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(42), Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, 1000, msg.ID)
	require.Equal(t, int64(42), msg.Chat.ID)

	msg, err = m.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 7, Text: "again"})
	require.NoError(t, err)
	require.Equal(t, 1001, msg.ID)
	require.Equal(t, int64(7), msg.Chat.ID)

	require.Len(t, m.Sent(), 2)
	require.Equal(t, "again", m.LastSentMessage().Text)
}

func TestMockSender_Error(t *testing.T) {
	t.Parallel()

	m := NewMockSender()
	m.SetError(errors.New("blocked"))

	_, err := m.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(1), Text: "x"})
	require.EqualError(t, err, "blocked")
	require.Empty(t, m.Sent())

	m.Reset()
	_, err = m.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(1), Text: "x"})
	require.NoError(t, err)
	require.Len(t, m.Sent(), 1)
}

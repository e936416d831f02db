package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestPool_IsShared(t *testing.T) {
	require.Same(t, TestPool(t), TestPool(t))
}

func TestTestTx_RollsBack(t *testing.T) {
	ctx := context.Background()
	const uid = "testtx-rollback-user"

	t.Run("writes inside the transaction", func(t *testing.T) {
		tx := TestTx(t)
		_, err := tx.Exec(ctx, `INSERT INTO user_preferences (uid, currency) VALUES ($1, 'EUR')`, uid)
		require.NoError(t, err)

		var currency string
		require.NoError(t, tx.QueryRow(ctx, `SELECT currency FROM user_preferences WHERE uid = $1`, uid).Scan(&currency))
		require.Equal(t, "EUR", currency)
	})

	var n int
	require.NoError(t, TestPool(t).QueryRow(ctx, `SELECT COUNT(*) FROM user_preferences WHERE uid = $1`, uid).Scan(&n))
	require.Zero(t, n)
}

package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// testDatabaseURL returns TEST_DATABASE_URL or skips t.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	return dbURL
}

// TestDB returns a fresh pool that is closed when t ends. The schema is not
// touched.
func TestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := Connect(context.Background(), testDatabaseURL(t))
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

var shared struct {
	once sync.Once
	pool *pgxpool.Pool
	err  error
}

// TestPool returns the pool shared by every test in the binary, migrated on
// first use.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := testDatabaseURL(t)
	shared.once.Do(func() {
		ctx := context.Background()
		if shared.pool, shared.err = Connect(ctx, dbURL); shared.err != nil {
			return
		}
		shared.err = RunMigrations(ctx, shared.pool)
	})
	if shared.err != nil {
		t.Fatalf("failed to set up test database: %v", shared.err)
	}
	return shared.pool
}

// TestTx opens a transaction on the shared pool and rolls it back when t
// ends, so parallel tests never see each other's rows.
//
//	tx := database.TestTx(t)
//	repo := repository.NewSubscriptionRepository(tx)
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

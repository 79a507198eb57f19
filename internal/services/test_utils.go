//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"simsim/internal/config"
	"simsim/internal/database"
	"simsim/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, isolated database for each integration
// test.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	observabilityLogger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(observabilityLogger)

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	db, err := dbManager.InitDB(databaseURL)
	require.NoError(t, err)

	CleanupTestDatabase(db, t)

	return db
}

// cleanupDatabase truncates every domain table and resets sequences so tests
// start from a known-empty corpus. Failures are reported through t so a dirty
// fixture is never silent.
func cleanupDatabase(db *sql.DB, t *testing.T) {
	t.Helper()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin cleanup transaction: %v", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	cleanupQueries := []string{
		"TRUNCATE TABLE game_responses CASCADE",
		"TRUNCATE TABLE game_sessions CASCADE",
		"TRUNCATE TABLE vocabulary_entries CASCADE",
		"TRUNCATE TABLE vocabulary CASCADE",
	}

	for _, query := range cleanupQueries {
		if _, execErr := tx.ExecContext(ctx, query); execErr != nil {
			t.Logf("cleanup query failed (%s): %v", query, execErr)
		}
	}

	sequenceQueries := []string{
		"ALTER SEQUENCE vocabulary_id_seq RESTART WITH 1",
		"ALTER SEQUENCE vocabulary_entries_id_seq RESTART WITH 1",
		"ALTER SEQUENCE game_sessions_id_seq RESTART WITH 1",
		"ALTER SEQUENCE game_responses_id_seq RESTART WITH 1",
	}

	for _, query := range sequenceQueries {
		if _, execErr := tx.ExecContext(ctx, query); execErr != nil {
			t.Logf("sequence reset failed (%s): %v", query, execErr)
		}
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("failed to commit cleanup transaction: %v", err)
	}
}

// CleanupTestDatabase cleans up the database for integration tests.
func CleanupTestDatabase(db *sql.DB, t *testing.T) {
	t.Helper()
	cleanupDatabase(db, t)
}

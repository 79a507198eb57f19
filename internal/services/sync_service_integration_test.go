//go:build integration

package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsim/internal/models"
	contextutils "simsim/internal/utils"
)

func seedTranslation(t *testing.T, db *sql.DB, concept string, language models.Language, text, hint string, isCorrect bool) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO vocabulary (concept, language, text, hint, is_correct, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (concept, language)
		DO UPDATE SET text = EXCLUDED.text, hint = EXCLUDED.hint, is_correct = EXCLUDED.is_correct, updated_at = NOW()`,
		concept, language, text, hint, isCorrect,
	)
	require.NoError(t, err)
}

func TestSyncConcept_EntryAppearsWhenBothSidesExist(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "a star", true)

	// One side only: no entry is written.
	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))
	_, err := svc.GetEntry(ctx, "sun")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))

	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "", true)
	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageHebrew))

	entry, err := svc.GetEntry(ctx, "sun")
	require.NoError(t, err)
	assert.Equal(t, "شمس", entry.ArabicText)
	assert.Equal(t, "שמש", entry.HebrewText)
	assert.Equal(t, "a star", entry.Hint)
	assert.Nil(t, entry.MediaURL)
}

func TestSyncConcept_IncorrectSideIsIgnored(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "", false)

	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageHebrew))

	_, err := svc.GetEntry(ctx, "sun")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordNotFound))
}

func TestSyncConcept_HintPrecedenceFollowsTrigger(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "arabic hint", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "hebrew hint", true)

	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageHebrew))
	entry, err := svc.GetEntry(ctx, "sun")
	require.NoError(t, err)
	assert.Equal(t, "hebrew hint", entry.Hint)

	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))
	entry, err = svc.GetEntry(ctx, "sun")
	require.NoError(t, err)
	assert.Equal(t, "arabic hint", entry.Hint)
}

func TestSyncConcept_PreservesMediaURL(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "", true)
	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))

	_, err := db.Exec(`UPDATE vocabulary_entries SET media_url = 'media/sun.png' WHERE concept = 'sun'`)
	require.NoError(t, err)

	// A later sync rewrite of the texts must not clobber the media reference.
	seedTranslation(t, db, "sun", models.LanguageArabic, "قمر", "", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "ירח", "", true)
	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))

	entry, err := svc.GetEntry(ctx, "sun")
	require.NoError(t, err)
	assert.Equal(t, "قمر", entry.ArabicText)
	require.NotNil(t, entry.MediaURL)
	assert.Equal(t, "media/sun.png", *entry.MediaURL)
}

func TestSyncConcept_Idempotent(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "", true)

	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))
	require.NoError(t, svc.SyncConcept(ctx, db, "sun", models.LanguageArabic))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM vocabulary_entries WHERE concept = 'sun'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSyncAll_RepairPass(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	// Two complete concepts, one half concept, one incorrect-only concept.
	seedTranslation(t, db, "sun", models.LanguageArabic, "شمس", "", true)
	seedTranslation(t, db, "sun", models.LanguageHebrew, "שמש", "", true)
	seedTranslation(t, db, "moon", models.LanguageArabic, "قمر", "", true)
	seedTranslation(t, db, "moon", models.LanguageHebrew, "ירח", "", true)
	seedTranslation(t, db, "star", models.LanguageArabic, "نجم", "", true)
	seedTranslation(t, db, "sky", models.LanguageHebrew, "שמים", "", false)

	report, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	entries, err := svc.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "moon", entries[0].Concept)
	assert.Equal(t, "sun", entries[1].Concept)
}

func TestListEntries_Empty(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSyncServiceWithLogger(db, newTestLogger())

	entries, err := svc.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

//go:build integration

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsim/internal/models"
	contextutils "simsim/internal/utils"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestGetOrCreateSession_CreatesWithServerMintedID(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	session, err := svc.GetOrCreateSession(ctx, "", models.LanguageHebrew)
	require.NoError(t, err)
	assert.NotZero(t, session.ID)
	assert.Equal(t, models.LanguageHebrew, session.LanguagePreference)

	_, err = uuid.Parse(session.SessionID)
	assert.NoError(t, err, "session id must be a server-minted UUID")
}

func TestGetOrCreateSession_ReusesExisting(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	created, err := svc.GetOrCreateSession(ctx, "", models.LanguageArabic)
	require.NoError(t, err)

	// The stored preference wins over the one on the request.
	resolved, err := svc.GetOrCreateSession(ctx, created.SessionID, models.LanguageHebrew)
	require.NoError(t, err)
	assert.Equal(t, created.SessionID, resolved.SessionID)
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, models.LanguageArabic, resolved.LanguagePreference)
}

func TestGetOrCreateSession_UnknownIDMintsNew(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	unknown := uuid.NewString()
	session, err := svc.GetOrCreateSession(ctx, unknown, models.LanguageArabic)
	require.NoError(t, err)
	assert.NotEqual(t, unknown, session.SessionID, "an unresolved id is replaced, not adopted")
}

func TestGetOrCreateSession_DefaultPreference(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())

	session, err := svc.GetOrCreateSession(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, models.LanguageArabic, session.LanguagePreference)
}

func TestGetSession_NotFound(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())

	_, err := svc.GetSession(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrSessionNotFound))
}

func TestRecordResponses_HappyPath(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	session, err := svc.GetOrCreateSession(ctx, "", models.LanguageArabic)
	require.NoError(t, err)

	submissions := []models.ResponseSubmission{
		{Concept: "sun", SelectedText: "שמש", IsCorrect: boolPtr(true), ResponseTimeMs: intPtr(850)},
		{Concept: "moon", SelectedText: "כוכב", IsCorrect: boolPtr(false), ResponseTimeMs: intPtr(2100)},
	}
	require.NoError(t, svc.RecordResponses(ctx, session.SessionID, submissions, false))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM game_responses WHERE session_id = $1`, session.SessionID).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestRecordResponses_SessionNotFound(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())

	err := svc.RecordResponses(context.Background(), uuid.NewString(), []models.ResponseSubmission{
		{Concept: "sun", SelectedText: "שמש", IsCorrect: boolPtr(true), ResponseTimeMs: intPtr(850)},
	}, false)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeSessionNotFound, contextutils.GetErrorCode(err))
}

func TestRecordResponses_InvalidSubmissionAbortsWholeBatch(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	session, err := svc.GetOrCreateSession(ctx, "", models.LanguageArabic)
	require.NoError(t, err)

	submissions := []models.ResponseSubmission{
		{Concept: "sun", SelectedText: "שמש", IsCorrect: boolPtr(true), ResponseTimeMs: intPtr(850)},
		{Concept: "moon", SelectedText: "ירח", IsCorrect: nil, ResponseTimeMs: intPtr(900)},
	}
	err = svc.RecordResponses(ctx, session.SessionID, submissions, false)
	require.Error(t, err)

	var appErr *contextutils.AppError
	require.True(t, contextutils.AsError(err, &appErr))
	assert.Equal(t, contextutils.ErrorCodeMissingRequired, appErr.Code)
	assert.Equal(t, "is_correct", appErr.Details)

	// Nothing from the batch was recorded.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM game_responses WHERE session_id = $1`, session.SessionID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRecordResponses_StrictModeRejectsInconsistentConcept(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	// Seed a mismatched pair directly, bypassing the write-time check.
	seedTranslation(t, db, "greeting", models.LanguageArabic, "سلام", "", true)
	seedTranslation(t, db, "greeting", models.LanguageHebrew, "שמש", "", true)

	session, err := svc.GetOrCreateSession(ctx, "", models.LanguageArabic)
	require.NoError(t, err)

	submissions := []models.ResponseSubmission{
		{Concept: "greeting", SelectedText: "שמש", IsCorrect: boolPtr(true), ResponseTimeMs: intPtr(500)},
	}
	err = svc.RecordResponses(ctx, session.SessionID, submissions, true)
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeLengthMismatch, contextutils.GetErrorCode(err))

	// The same batch passes without strict mode.
	require.NoError(t, svc.RecordResponses(ctx, session.SessionID, submissions, false))
}

func TestRecordResponses_StrictModePassesUnknownConcept(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	svc := NewSessionServiceWithLogger(db, newTestLogger())
	ctx := context.Background()

	session, err := svc.GetOrCreateSession(ctx, "", models.LanguageArabic)
	require.NoError(t, err)

	// A concept with no complete pair on record is not a strict-mode failure.
	submissions := []models.ResponseSubmission{
		{Concept: "unknown", SelectedText: "x", IsCorrect: boolPtr(false), ResponseTimeMs: intPtr(100)},
	}
	require.NoError(t, svc.RecordResponses(ctx, session.SessionID, submissions, true))
}

package services

import (
	"context"
	"database/sql"
	"fmt"

	"simsim/internal/models"
	"simsim/internal/observability"
	contextutils "simsim/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SessionServiceInterface defines the interface for game session tracking
type SessionServiceInterface interface {
	GetOrCreateSession(ctx context.Context, sessionID string, preference models.Language) (*models.GameSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.GameSession, error)
	RecordResponses(ctx context.Context, sessionID string, submissions []models.ResponseSubmission, strict bool) error
}

// SessionService tracks game sessions and their recorded responses.
type SessionService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSessionServiceWithLogger creates a new session service instance
func NewSessionServiceWithLogger(db *sql.DB, logger *observability.Logger) *SessionService {
	return &SessionService{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateSession resolves an existing session by its external id, or
// creates a new one with a server-minted UUID when the id is empty or unknown.
// An existing session keeps its stored language preference; the requested
// preference only applies to newly created sessions.
func (s *SessionService) GetOrCreateSession(ctx context.Context, sessionID string, preference models.Language) (result *models.GameSession, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "GetOrCreateSession",
		observability.AttributeSessionID(sessionID),
	)
	defer observability.FinishSpan(span, &err)

	if sessionID != "" {
		session, lookupErr := s.GetSession(ctx, sessionID)
		if lookupErr == nil {
			span.SetAttributes(attribute.Bool("session.created", false))
			return session, nil
		}
		if !contextutils.IsError(lookupErr, contextutils.ErrSessionNotFound) {
			err = lookupErr
			return nil, err
		}
	}

	if preference == "" {
		preference = models.LanguageArabic
	}
	if _, parseErr := models.ParseLanguage(string(preference)); parseErr != nil {
		err = parseErr
		return nil, err
	}

	session := &models.GameSession{
		SessionID:          uuid.NewString(),
		LanguagePreference: preference,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO game_sessions (session_id, language_preference, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at`,
		session.SessionID, session.LanguagePreference,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		err = contextutils.WrapError(err, "failed to create game session")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("session.created", true))
	s.logger.Info(ctx, "Created new game session", map[string]interface{}{
		"session_id":          session.SessionID,
		"language_preference": string(session.LanguagePreference),
	})
	return session, nil
}

// GetSession returns the session for the external id or ErrSessionNotFound.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (result *models.GameSession, err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "GetSession",
		observability.AttributeSessionID(sessionID),
	)
	defer observability.FinishSpan(span, &err)

	var session models.GameSession
	err = s.db.QueryRowContext(ctx, `
		SELECT id, session_id, language_preference, created_at
		FROM game_sessions
		WHERE session_id = $1`, sessionID,
	).Scan(&session.ID, &session.SessionID, &session.LanguagePreference, &session.CreatedAt)
	if err == sql.ErrNoRows {
		err = contextutils.ErrSessionNotFound
		return nil, err
	}
	if err != nil {
		err = contextutils.WrapError(err, "failed to query game session")
		return nil, err
	}
	return &session, nil
}

// RecordResponses stores a batch of quiz responses for an existing session.
// The whole batch is validated up front and inserted in one transaction, so a
// bad submission leaves nothing recorded. Strict mode re-checks the
// cross-language length invariant for each submitted concept and refuses the
// batch on a violation.
func (s *SessionService) RecordResponses(ctx context.Context, sessionID string, submissions []models.ResponseSubmission, strict bool) (err error) {
	ctx, span := observability.TraceSessionFunction(ctx, "RecordResponses",
		observability.AttributeSessionID(sessionID),
		observability.AttributeCount(len(submissions)),
		attribute.Bool("session.strict", strict),
	)
	defer observability.FinishSpan(span, &err)

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	for i := range submissions {
		if validateErr := submissions[i].Validate(); validateErr != nil {
			err = validateErr
			return err
		}
	}

	if strict {
		for i := range submissions {
			if checkErr := s.checkConceptConsistency(ctx, submissions[i].Concept); checkErr != nil {
				err = checkErr
				return err
			}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		err = contextutils.WrapError(err, "failed to begin transaction")
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	for i := range submissions {
		sub := &submissions[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO game_responses (session_id, concept, selected_text, is_correct, response_time_ms, submitted_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			session.SessionID, sub.Concept, sub.SelectedText, *sub.IsCorrect, *sub.ResponseTimeMs,
		)
		if err != nil {
			err = contextutils.WrapError(err, "failed to insert game response")
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		err = contextutils.WrapError(err, "failed to commit game responses")
		return err
	}

	s.logger.Info(ctx, "Recorded game responses", map[string]interface{}{
		"session_id": session.SessionID,
		"count":      len(submissions),
	})
	return nil
}

// checkConceptConsistency re-verifies that a submitted concept's correct
// Arabic and Hebrew texts still agree on trimmed character count. Concepts
// missing either side pass; only an actual mismatch is rejected.
func (s *SessionService) checkConceptConsistency(ctx context.Context, concept string) error {
	var arabicText, hebrewText string
	err := s.db.QueryRowContext(ctx, `
		SELECT a.text, h.text
		FROM vocabulary a
		JOIN vocabulary h ON h.concept = a.concept
		WHERE a.concept = $1
		  AND a.language = $2 AND h.language = $3
		  AND a.is_correct = TRUE AND h.is_correct = TRUE`,
		concept, models.LanguageArabic, models.LanguageHebrew,
	).Scan(&arabicText, &hebrewText)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to load concept texts for strict check")
	}

	arabicLen := models.TrimmedLength(arabicText)
	hebrewLen := models.TrimmedLength(hebrewText)
	if arabicLen != hebrewLen {
		return contextutils.NewAppError(
			contextutils.ErrorCodeLengthMismatch,
			contextutils.SeverityWarn,
			"Arabic and Hebrew texts must have the same length",
			fmt.Sprintf("concept %q: ar text %q has %d characters, he text %q has %d characters",
				concept, arabicText, arabicLen, hebrewText, hebrewLen),
		)
	}
	return nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/observability"
	contextutils "simsim/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// VocabularyServiceInterface defines the interface for the translation store
type VocabularyServiceInterface interface {
	UpsertTranslation(ctx context.Context, translation *models.Translation) (*models.Translation, error)
	GetTranslation(ctx context.Context, concept string, language models.Language) (*models.Translation, error)
	ListConcepts(ctx context.Context, filter models.ConceptFilter) ([]string, error)
}

// VocabularyService owns writes to the vocabulary table and enforces the
// cross-language length invariant on correct Arabic/Hebrew rows.
type VocabularyService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
	sync   SyncServiceInterface
}

// NewVocabularyServiceWithLogger creates a new vocabulary service instance
func NewVocabularyServiceWithLogger(db *sql.DB, cfg *config.Config, syncService SyncServiceInterface, logger *observability.Logger) *VocabularyService {
	return &VocabularyService{
		db:     db,
		cfg:    cfg,
		logger: logger,
		sync:   syncService,
	}
}

// checkLengthInvariant compares the trimmed rune counts of a correct
// counterpart text and an incoming correct text. A nil return means the pair
// is consistent.
func checkLengthInvariant(concept string, incoming, counterpart *models.Translation) error {
	incomingLen := models.TrimmedLength(incoming.Text)
	counterpartLen := models.TrimmedLength(counterpart.Text)
	if incomingLen == counterpartLen {
		return nil
	}
	return contextutils.NewAppError(
		contextutils.ErrorCodeLengthMismatch,
		contextutils.SeverityWarn,
		"Arabic and Hebrew texts must have the same length",
		fmt.Sprintf("concept %q: %s text %q has %d characters, %s text %q has %d characters",
			concept,
			incoming.Language, incoming.Text, incomingLen,
			counterpart.Language, counterpart.Text, counterpartLen),
	)
}

// UpsertTranslation inserts or replaces the translation for (concept,
// language). For a correct Arabic or Hebrew row the counterpart correct text
// is loaded in the same transaction and the trimmed character counts must
// match; a missing counterpart skips the check. The quiz entry synchronizer
// runs inside the same transaction, and its failure is logged without
// aborting the write.
func (s *VocabularyService) UpsertTranslation(ctx context.Context, translation *models.Translation) (result *models.Translation, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "UpsertTranslation",
		observability.AttributeConcept(translation.Concept),
		observability.AttributeLanguage(string(translation.Language)),
		attribute.Bool("vocabulary.is_correct", translation.IsCorrect),
	)
	defer observability.FinishSpan(span, &err)

	if translation.Concept == "" {
		err = contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn, "Missing required field", "concept")
		return nil, err
	}
	if translation.Text == "" {
		err = contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn, "Missing required field", "text")
		return nil, err
	}
	if _, parseErr := models.ParseLanguage(string(translation.Language)); parseErr != nil {
		err = parseErr
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		err = contextutils.WrapError(err, "failed to begin transaction")
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	if translation.IsCorrect && translation.Language.LengthConstrained() {
		counterpartLang, _ := translation.Language.Counterpart()
		counterpart, lookupErr := s.getCorrectTranslation(ctx, tx, translation.Concept, counterpartLang)
		switch {
		case lookupErr == nil:
			if invErr := checkLengthInvariant(translation.Concept, translation, counterpart); invErr != nil {
				err = invErr
				return nil, err
			}
		case contextutils.IsError(lookupErr, contextutils.ErrRecordNotFound):
			// Lazy validation: no counterpart yet, nothing to compare against.
		default:
			err = lookupErr
			return nil, err
		}
	}

	saved := *translation
	query := `
		INSERT INTO vocabulary (concept, language, text, hint, is_correct, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (concept, language)
		DO UPDATE SET text = EXCLUDED.text, hint = EXCLUDED.hint, is_correct = EXCLUDED.is_correct, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		translation.Concept, translation.Language, translation.Text, translation.Hint, translation.IsCorrect,
	).Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		err = contextutils.WrapError(err, "failed to upsert translation")
		return nil, err
	}

	// Best-effort synchronization inside the same transaction: a sync failure
	// never rolls back an accepted translation write.
	if syncErr := s.sync.SyncConcept(ctx, tx, translation.Concept, translation.Language); syncErr != nil {
		s.logger.Warn(ctx, "Quiz entry sync failed for accepted translation write", map[string]interface{}{
			"concept":  translation.Concept,
			"language": string(translation.Language),
			"error":    syncErr.Error(),
		})
	}

	if err = tx.Commit(); err != nil {
		err = contextutils.WrapError(err, "failed to commit translation upsert")
		return nil, err
	}

	return &saved, nil
}

// GetTranslation returns the translation for (concept, language) or
// ErrRecordNotFound.
func (s *VocabularyService) GetTranslation(ctx context.Context, concept string, language models.Language) (result *models.Translation, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "GetTranslation",
		observability.AttributeConcept(concept),
		observability.AttributeLanguage(string(language)),
	)
	defer observability.FinishSpan(span, &err)

	var t models.Translation
	query := `
		SELECT id, concept, language, text, hint, is_correct, created_at, updated_at
		FROM vocabulary
		WHERE concept = $1 AND language = $2`
	err = s.db.QueryRowContext(ctx, query, concept, language).Scan(
		&t.ID, &t.Concept, &t.Language, &t.Text, &t.Hint, &t.IsCorrect, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		err = contextutils.ErrRecordNotFound
		return nil, err
	}
	if err != nil {
		err = contextutils.WrapError(err, "failed to query translation")
		return nil, err
	}
	return &t, nil
}

// getCorrectTranslation loads the correct row for (concept, language) through
// the given querier, so the invariant check can share the write transaction.
func (s *VocabularyService) getCorrectTranslation(ctx context.Context, q DBTX, concept string, language models.Language) (*models.Translation, error) {
	var t models.Translation
	query := `
		SELECT id, concept, language, text, hint, is_correct, created_at, updated_at
		FROM vocabulary
		WHERE concept = $1 AND language = $2 AND is_correct = TRUE`
	err := q.QueryRowContext(ctx, query, concept, language).Scan(
		&t.ID, &t.Concept, &t.Language, &t.Text, &t.Hint, &t.IsCorrect, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, contextutils.ErrRecordNotFound
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query correct translation")
	}
	return &t, nil
}

// ListConcepts returns the ordered distinct concept ids, optionally filtered
// by language and correctness.
func (s *VocabularyService) ListConcepts(ctx context.Context, filter models.ConceptFilter) (result []string, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "ListConcepts",
		observability.AttributeLanguage(string(filter.Language)),
		attribute.Bool("vocabulary.correct_only", filter.CorrectOnly),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT DISTINCT concept FROM vocabulary`
	args := []interface{}{}
	where := ""
	if filter.Language != "" {
		args = append(args, filter.Language)
		where = fmt.Sprintf(" WHERE language = $%d", len(args))
	}
	if filter.CorrectOnly {
		if where == "" {
			where = " WHERE is_correct = TRUE"
		} else {
			where += " AND is_correct = TRUE"
		}
	}
	query += where + " ORDER BY concept"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		err = contextutils.WrapError(err, "failed to list concepts")
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	concepts := []string{}
	for rows.Next() {
		var concept string
		if scanErr := rows.Scan(&concept); scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan concept")
			return nil, err
		}
		concepts = append(concepts, concept)
	}
	if err = rows.Err(); err != nil {
		err = contextutils.WrapError(err, "failed to iterate concepts")
		return nil, err
	}

	span.SetAttributes(observability.AttributeCount(len(concepts)))
	return concepts, nil
}

package services

import (
	"context"
	"database/sql"

	"simsim/internal/models"
	"simsim/internal/observability"
	contextutils "simsim/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// SyncReport summarizes a repair pass over the quiz read model.
type SyncReport struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncServiceInterface defines the interface for the quiz entry synchronizer
type SyncServiceInterface interface {
	SyncConcept(ctx context.Context, q DBTX, concept string, trigger models.Language) error
	SyncAll(ctx context.Context) (*SyncReport, error)
	ListEntries(ctx context.Context) ([]models.VocabularyEntry, error)
	GetEntry(ctx context.Context, concept string) (*models.VocabularyEntry, error)
}

// SyncService is the only writer of the vocabulary_entries table. It derives
// one denormalized row per concept whose correct Arabic and Hebrew
// translations both exist.
type SyncService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewSyncServiceWithLogger creates a new sync service instance
func NewSyncServiceWithLogger(db *sql.DB, logger *observability.Logger) *SyncService {
	return &SyncService{
		db:     db,
		logger: logger,
	}
}

// SyncConcept upserts the quiz entry for a concept when both correct sides
// exist, and does nothing otherwise; no partial entries are ever written.
// The trigger language decides hint precedence: the triggering side's hint
// wins, then the counterpart's, then empty. It is idempotent and runs against
// either a transaction or the pool.
func (s *SyncService) SyncConcept(ctx context.Context, q DBTX, concept string, trigger models.Language) (err error) {
	ctx, span := observability.TraceSyncFunction(ctx, "SyncConcept",
		observability.AttributeConcept(concept),
		observability.AttributeLanguage(string(trigger)),
	)
	defer observability.FinishSpan(span, &err)

	texts := map[models.Language]string{}
	hints := map[models.Language]string{}

	rows, err := q.QueryContext(ctx, `
		SELECT language, text, hint
		FROM vocabulary
		WHERE concept = $1 AND is_correct = TRUE AND language IN ($2, $3)`,
		concept, models.LanguageArabic, models.LanguageHebrew,
	)
	if err != nil {
		err = contextutils.WrapError(err, "failed to load correct translations for sync")
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var language models.Language
		var text, hint string
		if scanErr := rows.Scan(&language, &text, &hint); scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan translation for sync")
			return err
		}
		texts[language] = text
		hints[language] = hint
	}
	if err = rows.Err(); err != nil {
		err = contextutils.WrapError(err, "failed to iterate translations for sync")
		return err
	}

	arabicText, hasArabic := texts[models.LanguageArabic]
	hebrewText, hasHebrew := texts[models.LanguageHebrew]
	if !hasArabic || !hasHebrew {
		span.SetAttributes(attribute.Bool("sync.skipped", true))
		return nil
	}

	hint := coalesceHint(trigger, hints)

	// media_url is managed out of band and must survive sync upserts.
	_, err = q.ExecContext(ctx, `
		INSERT INTO vocabulary_entries (concept, hint, arabic_text, hebrew_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (concept)
		DO UPDATE SET hint = EXCLUDED.hint, arabic_text = EXCLUDED.arabic_text, hebrew_text = EXCLUDED.hebrew_text, updated_at = NOW()`,
		concept, hint, arabicText, hebrewText,
	)
	if err != nil {
		err = contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeSyncFailed,
			contextutils.SeverityError,
			"Quiz entry synchronization failed",
			concept,
			err,
		)
		return err
	}

	return nil
}

// coalesceHint picks the entry hint: the triggering side first, then the
// other side, then empty. An unknown trigger falls back to Arabic-first.
func coalesceHint(trigger models.Language, hints map[models.Language]string) string {
	order := []models.Language{models.LanguageArabic, models.LanguageHebrew}
	if trigger == models.LanguageHebrew {
		order = []models.Language{models.LanguageHebrew, models.LanguageArabic}
	}
	for _, lang := range order {
		if hints[lang] != "" {
			return hints[lang]
		}
	}
	return ""
}

// SyncAll runs a repair pass across every concept that has both correct
// sides. Per-concept failures are counted and logged, never fatal, so one bad
// concept cannot stop the pass.
func (s *SyncService) SyncAll(ctx context.Context) (report *SyncReport, err error) {
	ctx, span := observability.TraceSyncFunction(ctx, "SyncAll")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT concept FROM vocabulary ORDER BY concept`)
	if err != nil {
		err = contextutils.WrapError(err, "failed to list concepts for repair pass")
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	concepts := []string{}
	for rows.Next() {
		var concept string
		if scanErr := rows.Scan(&concept); scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan concept for repair pass")
			return nil, err
		}
		concepts = append(concepts, concept)
	}
	if err = rows.Err(); err != nil {
		err = contextutils.WrapError(err, "failed to iterate concepts for repair pass")
		return nil, err
	}

	report = &SyncReport{}
	for _, concept := range concepts {
		eligible, checkErr := s.hasBothSides(ctx, concept)
		if checkErr != nil {
			report.Failed++
			s.logger.Error(ctx, "Repair pass failed to inspect concept", checkErr, map[string]interface{}{"concept": concept})
			continue
		}
		if !eligible {
			report.Skipped++
			continue
		}
		if syncErr := s.SyncConcept(ctx, s.db, concept, ""); syncErr != nil {
			report.Failed++
			s.logger.Error(ctx, "Repair pass failed to sync concept", syncErr, map[string]interface{}{"concept": concept})
			continue
		}
		report.Synced++
	}

	span.SetAttributes(
		attribute.Int("sync.synced", report.Synced),
		attribute.Int("sync.skipped", report.Skipped),
		attribute.Int("sync.failed", report.Failed),
	)
	s.logger.Info(ctx, "Vocabulary repair pass completed", map[string]interface{}{
		"synced":  report.Synced,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	return report, nil
}

// hasBothSides reports whether a concept has correct Arabic and Hebrew rows.
func (s *SyncService) hasBothSides(ctx context.Context, concept string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT language)
		FROM vocabulary
		WHERE concept = $1 AND is_correct = TRUE AND language IN ($2, $3)`,
		concept, models.LanguageArabic, models.LanguageHebrew,
	).Scan(&count)
	if err != nil {
		return false, contextutils.WrapError(err, "failed to count correct sides")
	}
	return count == 2, nil
}

// ListEntries returns all quiz entries ordered by concept.
func (s *SyncService) ListEntries(ctx context.Context) (result []models.VocabularyEntry, err error) {
	ctx, span := observability.TraceSyncFunction(ctx, "ListEntries")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, concept, hint, arabic_text, hebrew_text, media_url, created_at, updated_at
		FROM vocabulary_entries
		ORDER BY concept`)
	if err != nil {
		err = contextutils.WrapError(err, "failed to list quiz entries")
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []models.VocabularyEntry{}
	for rows.Next() {
		var entry models.VocabularyEntry
		var mediaURL sql.NullString
		if scanErr := rows.Scan(&entry.ID, &entry.Concept, &entry.Hint, &entry.ArabicText, &entry.HebrewText, &mediaURL, &entry.CreatedAt, &entry.UpdatedAt); scanErr != nil {
			err = contextutils.WrapError(scanErr, "failed to scan quiz entry")
			return nil, err
		}
		if mediaURL.Valid {
			entry.MediaURL = &mediaURL.String
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		err = contextutils.WrapError(err, "failed to iterate quiz entries")
		return nil, err
	}

	span.SetAttributes(observability.AttributeCount(len(entries)))
	return entries, nil
}

// GetEntry returns the quiz entry for a concept or ErrRecordNotFound.
func (s *SyncService) GetEntry(ctx context.Context, concept string) (result *models.VocabularyEntry, err error) {
	ctx, span := observability.TraceSyncFunction(ctx, "GetEntry",
		observability.AttributeConcept(concept),
	)
	defer observability.FinishSpan(span, &err)

	var entry models.VocabularyEntry
	var mediaURL sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, concept, hint, arabic_text, hebrew_text, media_url, created_at, updated_at
		FROM vocabulary_entries
		WHERE concept = $1`, concept,
	).Scan(&entry.ID, &entry.Concept, &entry.Hint, &entry.ArabicText, &entry.HebrewText, &mediaURL, &entry.CreatedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		err = contextutils.ErrRecordNotFound
		return nil, err
	}
	if err != nil {
		err = contextutils.WrapError(err, "failed to query quiz entry")
		return nil, err
	}
	if mediaURL.Valid {
		entry.MediaURL = &mediaURL.String
	}
	return &entry, nil
}

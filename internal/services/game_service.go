package services

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/observability"
	contextutils "simsim/internal/utils"
)

// QuestionPool selects which store the generator draws from.
type QuestionPool string

const (
	// PoolEntries draws from the denormalized quiz entries
	PoolEntries QuestionPool = "entries"
	// PoolTranslations draws from raw correct translation pairs
	PoolTranslations QuestionPool = "translations"
)

// ParseQuestionPool validates a raw pool mode.
func ParseQuestionPool(raw string) (QuestionPool, error) {
	switch QuestionPool(raw) {
	case PoolEntries, "":
		return PoolEntries, nil
	case PoolTranslations:
		return PoolTranslations, nil
	default:
		return "", contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Unsupported question pool",
			fmt.Sprintf("pool must be %q or %q; got %q", PoolEntries, PoolTranslations, raw),
		)
	}
}

// GameServiceInterface defines the interface for question generation
type GameServiceInterface interface {
	GenerateQuestions(ctx context.Context, language models.Language, count int, pool QuestionPool) ([]models.Question, error)
}

// GameService generates randomized multiple-choice questions from the corpus.
// Randomness is not cryptographic; the source is injectable so tests can be
// deterministic.
type GameService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger

	// rand.Rand is not safe for concurrent use.
	mu  sync.Mutex
	rng *rand.Rand
}

// conceptPair is one eligible concept oriented for a generation run: the
// prompt in the requested language and the answer in the complementary one.
type conceptPair struct {
	Concept  string
	Prompt   string
	Answer   string
	Hint     string
	MediaURL *string
}

// NewGameServiceWithLogger creates a new game service with a time-seeded
// random source
func NewGameServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *GameService {
	return NewGameServiceWithRand(db, cfg, logger, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGameServiceWithRand creates a new game service with the given random
// source
func NewGameServiceWithRand(db *sql.DB, cfg *config.Config, logger *observability.Logger, rng *rand.Rand) *GameService {
	return &GameService{
		db:     db,
		cfg:    cfg,
		logger: logger,
		rng:    rng,
	}
}

// GenerateQuestions builds count questions prompting in the requested
// language and answering in the complementary one. Concepts are sampled
// uniformly without replacement; each question carries up to the configured
// number of distractors drawn from other concepts, excluded by text equality
// with the correct answer. A pool smaller than count fails with the shortfall
// named rather than returning a short batch.
func (s *GameService) GenerateQuestions(ctx context.Context, language models.Language, count int, pool QuestionPool) (result []models.Question, err error) {
	ctx, span := observability.TraceGameFunction(ctx, "GenerateQuestions",
		observability.AttributeLanguage(string(language)),
		observability.AttributeCount(count),
		observability.AttributePool(string(pool)),
	)
	defer observability.FinishSpan(span, &err)

	answerLang, ok := language.Counterpart()
	if !ok {
		err = contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Unsupported question language",
			fmt.Sprintf("questions can be generated for ar or he; got %q", language),
		)
		return nil, err
	}
	if count <= 0 {
		err = contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Invalid question count",
			fmt.Sprintf("count must be positive; got %d", count),
		)
		return nil, err
	}

	var pairs []conceptPair
	var candidates []string
	switch pool {
	case PoolEntries:
		pairs, err = s.loadEntryPairs(ctx, language)
		if err != nil {
			return nil, err
		}
		candidates = answersOf(pairs)
	case PoolTranslations:
		pairs, err = s.loadTranslationPairs(ctx, language, answerLang)
		if err != nil {
			return nil, err
		}
		candidates, err = s.loadDistractorTexts(ctx, answerLang)
		if err != nil {
			return nil, err
		}
	default:
		err = contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Unsupported question pool",
			string(pool),
		)
		return nil, err
	}

	if len(pairs) < count {
		err = contextutils.NewAppError(
			contextutils.ErrorCodeInsufficientData,
			contextutils.SeverityWarn,
			"Not enough vocabulary for the requested question count",
			fmt.Sprintf("requested %d questions but only %d eligible concepts exist", count, len(pairs)),
		)
		return nil, err
	}

	maxDistractors := s.cfg.Quiz.MaxDistractorsOrFallback()

	s.mu.Lock()
	defer s.mu.Unlock()

	sampled := samplePairs(s.rng, pairs, count)
	questions := make([]models.Question, 0, count)
	for _, pair := range sampled {
		distractors := pickDistractors(s.rng, candidates, pair.Answer, maxDistractors)
		options, answerID := assembleOptions(s.rng, pair.Answer, distractors)
		questions = append(questions, models.Question{
			Concept:  pair.Concept,
			Prompt:   pair.Prompt,
			Options:  options,
			AnswerID: answerID,
			Hint:     pair.Hint,
			MediaURL: pair.MediaURL,
		})
	}

	return questions, nil
}

// loadEntryPairs reads the denormalized quiz entries oriented for the
// requested prompt language.
func (s *GameService) loadEntryPairs(ctx context.Context, language models.Language) ([]conceptPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept, hint, arabic_text, hebrew_text, media_url
		FROM vocabulary_entries
		ORDER BY concept`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load quiz entries")
	}
	defer func() { _ = rows.Close() }()

	pairs := []conceptPair{}
	for rows.Next() {
		var concept, hint, arabicText, hebrewText string
		var mediaURL sql.NullString
		if err := rows.Scan(&concept, &hint, &arabicText, &hebrewText, &mediaURL); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan quiz entry")
		}
		pair := conceptPair{Concept: concept, Hint: hint}
		if language == models.LanguageArabic {
			pair.Prompt, pair.Answer = arabicText, hebrewText
		} else {
			pair.Prompt, pair.Answer = hebrewText, arabicText
		}
		if mediaURL.Valid {
			pair.MediaURL = &mediaURL.String
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate quiz entries")
	}
	return pairs, nil
}

// loadTranslationPairs joins the raw correct rows of both sides per concept.
func (s *GameService) loadTranslationPairs(ctx context.Context, promptLang, answerLang models.Language) ([]conceptPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.concept, p.text, a.text, COALESCE(NULLIF(p.hint, ''), a.hint)
		FROM vocabulary p
		JOIN vocabulary a ON a.concept = p.concept
		WHERE p.language = $1 AND a.language = $2
		  AND p.is_correct = TRUE AND a.is_correct = TRUE
		ORDER BY p.concept`,
		promptLang, answerLang,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load translation pairs")
	}
	defer func() { _ = rows.Close() }()

	pairs := []conceptPair{}
	for rows.Next() {
		var pair conceptPair
		if err := rows.Scan(&pair.Concept, &pair.Prompt, &pair.Answer, &pair.Hint); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan translation pair")
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate translation pairs")
	}
	return pairs, nil
}

// loadDistractorTexts returns every distinct text in the answer language,
// correct or not. Exclusion against the correct answer happens by text
// equality at assembly time.
func (s *GameService) loadDistractorTexts(ctx context.Context, answerLang models.Language) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT text FROM vocabulary WHERE language = $1`, answerLang)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load distractor texts")
	}
	defer func() { _ = rows.Close() }()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan distractor text")
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate distractor texts")
	}
	return texts, nil
}

// answersOf collects the answer-side texts of the loaded pairs.
func answersOf(pairs []conceptPair) []string {
	answers := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		answers = append(answers, pair.Answer)
	}
	return answers
}

// samplePairs draws n pairs uniformly without replacement.
func samplePairs(rng *rand.Rand, pairs []conceptPair, n int) []conceptPair {
	shuffled := make([]conceptPair, len(pairs))
	copy(shuffled, pairs)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// pickDistractors draws up to max distinct texts that differ from the correct
// answer. Fewer candidates than max degrades the question rather than
// failing it.
func pickDistractors(rng *rand.Rand, candidates []string, correct string, max int) []string {
	seen := map[string]bool{correct: true}
	eligible := []string{}
	for _, text := range candidates {
		if seen[text] {
			continue
		}
		seen[text] = true
		eligible = append(eligible, text)
	}

	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > max {
		eligible = eligible[:max]
	}
	return eligible
}

// assembleOptions shuffles the correct answer in with the distractors,
// assigns sequential option ids, and returns the id of the correct option.
func assembleOptions(rng *rand.Rand, correct string, distractors []string) (options []models.Option, answerID int) {
	texts := make([]string, 0, len(distractors)+1)
	texts = append(texts, correct)
	texts = append(texts, distractors...)
	rng.Shuffle(len(texts), func(i, j int) {
		texts[i], texts[j] = texts[j], texts[i]
	})

	options = make([]models.Option, 0, len(texts))
	for i, text := range texts {
		option := models.Option{ID: i + 1, Text: text}
		options = append(options, option)
		if text == correct {
			answerID = option.ID
		}
	}
	return options, answerID
}

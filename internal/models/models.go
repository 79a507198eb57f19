// Package models defines the core data structures for the vocabulary corpus,
// the denormalized quiz entries, and game sessions with their responses.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	contextutils "simsim/internal/utils"
)

// Language is an ISO 639-1 code for a corpus language.
type Language string

const (
	// LanguageArabic is the Arabic side of the bilingual corpus
	LanguageArabic Language = "ar"
	// LanguageHebrew is the Hebrew side of the bilingual corpus
	LanguageHebrew Language = "he"
	// LanguageEnglish is the optional gloss language, never length-checked
	LanguageEnglish Language = "en"
)

// ParseLanguage validates a raw language code against the supported set.
func ParseLanguage(raw string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageArabic:
		return LanguageArabic, nil
	case LanguageHebrew:
		return LanguageHebrew, nil
	case LanguageEnglish:
		return LanguageEnglish, nil
	default:
		return "", contextutils.NewAppError(
			contextutils.ErrorCodeInvalidInput,
			contextutils.SeverityWarn,
			"Unsupported language",
			fmt.Sprintf("language must be one of ar, he, en; got %q", raw),
		)
	}
}

// Counterpart returns the opposite side of the bilingual pair. English has no
// counterpart and returns false.
func (l Language) Counterpart() (Language, bool) {
	switch l {
	case LanguageArabic:
		return LanguageHebrew, true
	case LanguageHebrew:
		return LanguageArabic, true
	default:
		return "", false
	}
}

// LengthConstrained reports whether correct texts in this language participate
// in the cross-language length check.
func (l Language) LengthConstrained() bool {
	return l == LanguageArabic || l == LanguageHebrew
}

// TrimmedLength returns the number of runes in the text after trimming
// surrounding whitespace. Byte length is wrong for Arabic and Hebrew.
func TrimmedLength(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// Translation is a single vocabulary row: the text for one concept in one
// language. At most one row exists per (concept, language) pair.
type Translation struct {
	ID        int       `json:"id"`
	Concept   string    `json:"concept"`
	Language  Language  `json:"language"`
	Text      string    `json:"text"`
	Hint      string    `json:"hint,omitempty"`
	IsCorrect bool      `json:"is_correct"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VocabularyEntry is the denormalized quiz read model: one row per concept
// that has both a correct Arabic and a correct Hebrew translation. The table
// is owned exclusively by the synchronizer.
type VocabularyEntry struct {
	ID         int       `json:"id"`
	Concept    string    `json:"concept"`
	Hint       string    `json:"hint,omitempty"`
	ArabicText string    `json:"arabic_text"`
	HebrewText string    `json:"hebrew_text"`
	MediaURL   *string   `json:"media_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConceptFilter narrows a concept listing.
type ConceptFilter struct {
	Language    Language
	CorrectOnly bool
}

// GameSession tracks one quiz run. Sessions are identified externally by a
// UUID string and never transition out of the active state.
type GameSession struct {
	ID                 int       `json:"-"`
	SessionID          string    `json:"session_id"`
	LanguagePreference Language  `json:"language_preference"`
	CreatedAt          time.Time `json:"created_at"`
}

// GameResponse is a single recorded answer within a session. Responses are
// append-only.
type GameResponse struct {
	ID             int       `json:"id"`
	SessionID      string    `json:"session_id"`
	Concept        string    `json:"concept"`
	SelectedText   string    `json:"selected_text"`
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs int       `json:"response_time_ms"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Option is one selectable answer on a generated question.
type Option struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Question is a generated multiple-choice question. Options always include
// the correct answer; AnswerID identifies it.
type Question struct {
	Concept  string   `json:"concept"`
	Prompt   string   `json:"question"`
	Options  []Option `json:"options"`
	AnswerID int      `json:"answer_id"`
	Hint     string   `json:"hint,omitempty"`
	MediaURL *string  `json:"media_url,omitempty"`
}

// ResponseSubmission is one client-submitted answer. Pointer fields
// distinguish a missing JSON field from a zero value.
type ResponseSubmission struct {
	Concept        string `json:"concept"`
	SelectedText   string `json:"selected_text"`
	IsCorrect      *bool  `json:"is_correct"`
	ResponseTimeMs *int   `json:"response_time_ms"`
}

// Validate checks field presence and returns an error naming the first
// missing field.
func (r *ResponseSubmission) Validate() error {
	missing := ""
	switch {
	case strings.TrimSpace(r.Concept) == "":
		missing = "concept"
	case strings.TrimSpace(r.SelectedText) == "":
		missing = "selected_text"
	case r.IsCorrect == nil:
		missing = "is_correct"
	case r.ResponseTimeMs == nil:
		missing = "response_time_ms"
	}
	if missing != "" {
		return contextutils.NewAppError(
			contextutils.ErrorCodeMissingRequired,
			contextutils.SeverityWarn,
			"Missing required field",
			missing,
		)
	}
	return nil
}

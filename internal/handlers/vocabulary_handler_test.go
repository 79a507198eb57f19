package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"
)

// mockVocabularyService implements services.VocabularyServiceInterface for handler tests
type mockVocabularyService struct {
	translation *models.Translation
	concepts    []string
	err         error
	upserts     int
}

func (m *mockVocabularyService) UpsertTranslation(_ context.Context, translation *models.Translation) (*models.Translation, error) {
	m.upserts++
	if m.err != nil {
		return nil, m.err
	}
	return translation, nil
}

func (m *mockVocabularyService) GetTranslation(_ context.Context, _ string, _ models.Language) (*models.Translation, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.translation, nil
}

func (m *mockVocabularyService) ListConcepts(_ context.Context, _ models.ConceptFilter) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.concepts, nil
}

// mockSyncService implements services.SyncServiceInterface for handler tests
type mockSyncService struct {
	entries []models.VocabularyEntry
	entry   *models.VocabularyEntry
	report  *services.SyncReport
	err     error
}

func (m *mockSyncService) SyncConcept(_ context.Context, _ services.DBTX, _ string, _ models.Language) error {
	return m.err
}

func (m *mockSyncService) SyncAll(_ context.Context) (*services.SyncReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockSyncService) ListEntries(_ context.Context) ([]models.VocabularyEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockSyncService) GetEntry(_ context.Context, _ string) (*models.VocabularyEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entry, nil
}

func newVocabularyTestRouter(cfg *config.Config, vocabularyService services.VocabularyServiceInterface, syncService services.SyncServiceInterface) *gin.Engine {
	return newHandlerTestRouter(cfg, vocabularyService, syncService, &mockGameService{}, &mockSessionService{})
}

func TestResolveMediaURL(t *testing.T) {
	withBase := &config.Config{}
	withBase.Server.MediaBaseURL = "https://media.example.test"
	noBase := &config.Config{}

	relative := "cards/sun.png"
	slashed := "/cards/sun.png"
	absolute := "https://cdn.example.test/sun.png"

	tests := []struct {
		name     string
		cfg      *config.Config
		mediaURL *string
		expected *string
	}{
		{name: "nil passes through", cfg: withBase, mediaURL: nil, expected: nil},
		{name: "no base configured", cfg: noBase, mediaURL: &relative, expected: &relative},
		{name: "relative path resolved", cfg: withBase, mediaURL: &relative, expected: strPtr("https://media.example.test/cards/sun.png")},
		{name: "leading slash trimmed", cfg: withBase, mediaURL: &slashed, expected: strPtr("https://media.example.test/cards/sun.png")},
		{name: "absolute url untouched", cfg: withBase, mediaURL: &absolute, expected: &absolute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveMediaURL(tt.cfg, tt.mediaURL)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func strPtr(s string) *string {
	return &s
}

func TestGetTranslation_NotFoundStatus(t *testing.T) {
	vocabularyService := &mockVocabularyService{err: contextutils.ErrRecordNotFound}
	router := newVocabularyTestRouter(newHandlerTestConfig(), vocabularyService, &mockSyncService{})

	req, _ := http.NewRequest("GET", "/v1/vocabulary/missing/ar", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeRecordNotFound), body["code"])
}

func TestGetTranslation_InvalidLanguage(t *testing.T) {
	router := newVocabularyTestRouter(newHandlerTestConfig(), &mockVocabularyService{}, &mockSyncService{})

	req, _ := http.NewRequest("GET", "/v1/vocabulary/sun/xx", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), body["code"])
}

func TestUpsertTranslation_LengthMismatchStatus(t *testing.T) {
	vocabularyService := &mockVocabularyService{err: contextutils.NewAppError(
		contextutils.ErrorCodeLengthMismatch,
		contextutils.SeverityWarn,
		"Arabic and Hebrew lengths differ",
		`ar text "شمس" has 3 characters, he text "שמשות" has 5 characters`,
	)}
	router := newVocabularyTestRouter(newHandlerTestConfig(), vocabularyService, &mockSyncService{})

	payload := []byte(`{"concept":"sun","language":"he","text":"שמשות","is_correct":true}`)
	req, _ := http.NewRequest("PUT", "/v1/vocabulary", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeLengthMismatch), body["code"])
}

func TestUpsertTranslation_BindingRejectsUnknownLanguage(t *testing.T) {
	vocabularyService := &mockVocabularyService{}
	router := newVocabularyTestRouter(newHandlerTestConfig(), vocabularyService, &mockSyncService{})

	payload := []byte(`{"concept":"sun","language":"xx","text":"شمس","is_correct":true}`)
	req, _ := http.NewRequest("PUT", "/v1/vocabulary", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, vocabularyService.upserts)
}

func TestUpsertTranslation_Success(t *testing.T) {
	vocabularyService := &mockVocabularyService{}
	router := newVocabularyTestRouter(newHandlerTestConfig(), vocabularyService, &mockSyncService{})

	payload := []byte(`{"concept":"sun","language":"ar","text":"شمس","hint":"a star","is_correct":true}`)
	req, _ := http.NewRequest("PUT", "/v1/vocabulary", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "sun", body["concept"])
	assert.Equal(t, "ar", body["language"])
	assert.Equal(t, 1, vocabularyService.upserts)
}

func TestListConcepts_InvalidCorrectOnly(t *testing.T) {
	router := newVocabularyTestRouter(newHandlerTestConfig(), &mockVocabularyService{}, &mockSyncService{})

	req, _ := http.NewRequest("GET", "/v1/concepts?correct_only=maybe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListConcepts_ReturnsCount(t *testing.T) {
	vocabularyService := &mockVocabularyService{concepts: []string{"moon", "sun"}}
	router := newVocabularyTestRouter(newHandlerTestConfig(), vocabularyService, &mockSyncService{})

	req, _ := http.NewRequest("GET", "/v1/concepts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
}

func TestGetEntry_ResolvesMediaURL(t *testing.T) {
	cfg := newHandlerTestConfig()
	cfg.Server.MediaBaseURL = "https://media.example.test"
	mediaPath := "cards/sun.png"
	syncService := &mockSyncService{entry: &models.VocabularyEntry{
		Concept:    "sun",
		ArabicText: "شمس",
		HebrewText: "שמש",
		MediaURL:   &mediaPath,
	}}
	router := newVocabularyTestRouter(cfg, &mockVocabularyService{}, syncService)

	req, _ := http.NewRequest("GET", "/v1/entries/sun", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "https://media.example.test/cards/sun.png", body["media_url"])
}

func TestSyncEntries_ReturnsReport(t *testing.T) {
	syncService := &mockSyncService{report: &services.SyncReport{Synced: 2, Skipped: 1, Failed: 0}}
	router := newVocabularyTestRouter(newHandlerTestConfig(), &mockVocabularyService{}, syncService)

	req, _ := http.NewRequest("POST", "/v1/vocabulary/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["synced"])
	assert.Equal(t, float64(1), body["skipped"])
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/observability"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"
)

// mockGameService implements services.GameServiceInterface for handler tests
type mockGameService struct {
	questions []models.Question
	err       error
	calls     int
}

func (m *mockGameService) GenerateQuestions(_ context.Context, _ models.Language, _ int, _ services.QuestionPool) ([]models.Question, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.questions, nil
}

// mockSessionService implements services.SessionServiceInterface for handler tests
type mockSessionService struct {
	session   *models.GameSession
	getErr    error
	recordErr error
	created   int
	recorded  int
}

func (m *mockSessionService) GetOrCreateSession(_ context.Context, _ string, preference models.Language) (*models.GameSession, error) {
	m.created++
	if m.session != nil {
		return m.session, nil
	}
	return &models.GameSession{SessionID: "minted-session", LanguagePreference: preference}, nil
}

func (m *mockSessionService) GetSession(_ context.Context, _ string) (*models.GameSession, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.session, nil
}

func (m *mockSessionService) RecordResponses(_ context.Context, _ string, submissions []models.ResponseSubmission, _ bool) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recorded += len(submissions)
	return nil
}

func newHandlerTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Quiz: config.QuizConfig{
			DefaultQuestionCount: 2,
			MaxDistractors:       3,
			DefaultLanguage:      "ar",
			Languages:            []string{"ar", "he", "en"},
		},
	}
}

func newHandlerTestRouter(cfg *config.Config, vocabularyService services.VocabularyServiceInterface, syncService services.SyncServiceInterface, gameService services.GameServiceInterface, sessionService services.SessionServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	return NewRouter(cfg, vocabularyService, syncService, gameService, sessionService, logger)
}

func newGameTestRouter(gameService services.GameServiceInterface, sessionService services.SessionServiceInterface) *gin.Engine {
	return newHandlerTestRouter(newHandlerTestConfig(), &mockVocabularyService{}, &mockSyncService{}, gameService, sessionService)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetQuestions_ReturnsSessionAndQuestions(t *testing.T) {
	gameService := &mockGameService{questions: []models.Question{
		{
			Concept:  "sun",
			Prompt:   "שמש",
			Options:  []models.Option{{ID: 1, Text: "شمس"}, {ID: 2, Text: "قمر"}},
			AnswerID: 1,
		},
	}}
	sessionService := &mockSessionService{}
	router := newGameTestRouter(gameService, sessionService)

	req, _ := http.NewRequest("GET", "/v1/game/questions?language=he", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "minted-session", body["session_id"])
	questions, ok := body["questions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, questions, 1)
	assert.Equal(t, 1, gameService.calls)
	assert.Equal(t, 1, sessionService.created)
}

func TestGetQuestions_InvalidLanguage(t *testing.T) {
	gameService := &mockGameService{}
	router := newGameTestRouter(gameService, &mockSessionService{})

	req, _ := http.NewRequest("GET", "/v1/game/questions?language=xx", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), body["code"])
	assert.Zero(t, gameService.calls)
}

func TestGetQuestions_InvalidCount(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3"} {
		t.Run(raw, func(t *testing.T) {
			gameService := &mockGameService{}
			router := newGameTestRouter(gameService, &mockSessionService{})

			req, _ := http.NewRequest("GET", "/v1/game/questions?count="+raw, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, gameService.calls)
		})
	}
}

func TestGetQuestions_InvalidPool(t *testing.T) {
	gameService := &mockGameService{}
	router := newGameTestRouter(gameService, &mockSessionService{})

	req, _ := http.NewRequest("GET", "/v1/game/questions?pool=bogus", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, gameService.calls)
}

func TestGetQuestions_InsufficientDataCreatesNoSession(t *testing.T) {
	gameService := &mockGameService{err: contextutils.NewAppError(
		contextutils.ErrorCodeInsufficientData,
		contextutils.SeverityWarn,
		"Not enough vocabulary for the requested question count",
		"requested 6 questions but only 5 eligible concepts exist",
	)}
	sessionService := &mockSessionService{}
	router := newGameTestRouter(gameService, sessionService)

	req, _ := http.NewRequest("GET", "/v1/game/questions?count=6", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInsufficientData), body["code"])

	// A rejected request must not leave behind a session the client never
	// learns the id of.
	assert.Zero(t, sessionService.created)
}

func TestSubmitResponses_Success(t *testing.T) {
	sessionService := &mockSessionService{}
	router := newGameTestRouter(&mockGameService{}, sessionService)

	isCorrect := true
	responseTime := 1200
	payload, err := json.Marshal(map[string]interface{}{
		"session_id": "minted-session",
		"responses": []models.ResponseSubmission{
			{Concept: "sun", SelectedText: "شمس", IsCorrect: &isCorrect, ResponseTimeMs: &responseTime},
		},
	})
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/v1/game/responses", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "minted-session", body["session_id"])
	assert.Equal(t, float64(1), body["recorded"])
	assert.Equal(t, 1, sessionService.recorded)
}

func TestSubmitResponses_UnknownSession(t *testing.T) {
	sessionService := &mockSessionService{recordErr: contextutils.ErrSessionNotFound}
	router := newGameTestRouter(&mockGameService{}, sessionService)

	isCorrect := false
	responseTime := 800
	payload, err := json.Marshal(map[string]interface{}{
		"session_id": "no-such-session",
		"responses": []models.ResponseSubmission{
			{Concept: "sun", SelectedText: "قمر", IsCorrect: &isCorrect, ResponseTimeMs: &responseTime},
		},
	})
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", "/v1/game/responses", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeSessionNotFound), body["code"])
}

func TestSubmitResponses_MissingBodyFields(t *testing.T) {
	sessionService := &mockSessionService{}
	router := newGameTestRouter(&mockGameService{}, sessionService)

	// No responses array at all.
	req, _ := http.NewRequest("POST", "/v1/game/responses", bytes.NewReader([]byte(`{"session_id":"minted-session"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeInvalidInput), body["code"])
	assert.Zero(t, sessionService.recorded)
}

func TestGetSession_NotFoundStatus(t *testing.T) {
	sessionService := &mockSessionService{getErr: contextutils.ErrSessionNotFound}
	router := newGameTestRouter(&mockGameService{}, sessionService)

	req, _ := http.NewRequest("GET", "/v1/game/sessions/no-such-session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(contextutils.ErrorCodeSessionNotFound), body["code"])
}

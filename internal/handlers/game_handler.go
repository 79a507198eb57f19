package handlers

import (
	"net/http"
	"strconv"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/observability"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GameHandler handles quiz gameplay HTTP requests
type GameHandler struct {
	gameService    services.GameServiceInterface
	sessionService services.SessionServiceInterface
	cfg            *config.Config
	logger         *observability.Logger
}

// NewGameHandler creates a new GameHandler instance
func NewGameHandler(gameService services.GameServiceInterface, sessionService services.SessionServiceInterface, cfg *config.Config, logger *observability.Logger) *GameHandler {
	return &GameHandler{
		gameService:    gameService,
		sessionService: sessionService,
		cfg:            cfg,
		logger:         logger,
	}
}

// GetQuestions handles GET /v1/game/questions. It generates the batch first
// and only then resolves or creates the session, so a rejected request never
// leaves behind a session the client has no id for.
func (h *GameHandler) GetQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_questions")
	defer observability.FinishSpan(span, nil)

	rawLanguage := c.Query("language")
	if rawLanguage == "" {
		rawLanguage = h.cfg.Quiz.DefaultLanguage
	}
	if rawLanguage == "" {
		rawLanguage = string(models.LanguageArabic)
	}
	language, err := models.ParseLanguage(rawLanguage)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	count := h.cfg.Quiz.DefaultQuestionCountOrFallback()
	if raw := c.Query("count"); raw != "" {
		parsed, parseErr := strconv.Atoi(raw)
		if parseErr != nil || parsed <= 0 {
			HandleValidationError(c, "count", raw, "must be a positive integer")
			return
		}
		count = parsed
	}

	pool, err := services.ParseQuestionPool(c.Query("pool"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("question.language", string(language)),
		attribute.Int("question.count", count),
		attribute.String("question.pool", string(pool)),
	)

	questions, err := h.gameService.GenerateQuestions(ctx, language, count, pool)
	if err != nil {
		if contextutils.GetErrorCode(err) == contextutils.ErrorCodeInsufficientData {
			h.logger.Warn(ctx, "Question generation refused", map[string]interface{}{
				"language": string(language),
				"count":    count,
				"error":    err.Error(),
			})
		} else {
			h.logger.Error(ctx, "Question generation failed", err)
		}
		HandleAppError(c, err)
		return
	}

	for i := range questions {
		questions[i].MediaURL = resolveMediaURL(h.cfg, questions[i].MediaURL)
	}

	session, err := h.sessionService.GetOrCreateSession(ctx, c.Query("session_id"), language)
	if err != nil {
		h.logger.Error(ctx, "Failed to resolve game session", err)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.SessionID,
		"questions":  questions,
	})
}

type submitResponsesRequest struct {
	SessionID string                      `json:"session_id" binding:"required"`
	Responses []models.ResponseSubmission `json:"responses" binding:"required,min=1"`
}

// SubmitResponses handles POST /v1/game/responses
func (h *GameHandler) SubmitResponses(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_responses")
	defer observability.FinishSpan(span, nil)

	var req submitResponsesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid response submission request", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "request body", "", err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("session.id", req.SessionID),
		attribute.Int("session.responses", len(req.Responses)),
	)

	err := h.sessionService.RecordResponses(ctx, req.SessionID, req.Responses, h.cfg.Quiz.StrictResponseValidation)
	if err != nil {
		h.logger.Warn(ctx, "Response submission rejected", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"session_id": req.SessionID,
		"recorded":   len(req.Responses),
	})
}

// GetSession handles GET /v1/game/sessions/:id
func (h *GameHandler) GetSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session")
	defer observability.FinishSpan(span, nil)

	session, err := h.sessionService.GetSession(ctx, c.Param("id"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

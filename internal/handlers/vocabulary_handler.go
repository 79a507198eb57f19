package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"simsim/internal/config"
	"simsim/internal/models"
	"simsim/internal/observability"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// resolveMediaURL prepends the configured media base URL to a stored media
// path. Absolute URLs and unset paths pass through unchanged.
func resolveMediaURL(cfg *config.Config, mediaURL *string) *string {
	if mediaURL == nil || cfg.Server.MediaBaseURL == "" {
		return mediaURL
	}
	if strings.HasPrefix(*mediaURL, "http://") || strings.HasPrefix(*mediaURL, "https://") {
		return mediaURL
	}
	resolved := strings.TrimSuffix(cfg.Server.MediaBaseURL, "/") + "/" + strings.TrimPrefix(*mediaURL, "/")
	return &resolved
}

// VocabularyHandler handles vocabulary corpus HTTP requests
type VocabularyHandler struct {
	vocabularyService services.VocabularyServiceInterface
	syncService       services.SyncServiceInterface
	cfg               *config.Config
	logger            *observability.Logger
}

// NewVocabularyHandler creates a new VocabularyHandler instance
func NewVocabularyHandler(vocabularyService services.VocabularyServiceInterface, syncService services.SyncServiceInterface, cfg *config.Config, logger *observability.Logger) *VocabularyHandler {
	return &VocabularyHandler{
		vocabularyService: vocabularyService,
		syncService:       syncService,
		cfg:               cfg,
		logger:            logger,
	}
}

type upsertTranslationRequest struct {
	Concept   string `json:"concept" binding:"required"`
	Language  string `json:"language" binding:"required,vocablang"`
	Text      string `json:"text" binding:"required"`
	Hint      string `json:"hint"`
	IsCorrect *bool  `json:"is_correct" binding:"required"`
}

// UpsertTranslation handles PUT /v1/vocabulary
func (h *VocabularyHandler) UpsertTranslation(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "upsert_translation")
	defer observability.FinishSpan(span, nil)

	var req upsertTranslationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn(ctx, "Invalid translation upsert request", map[string]interface{}{"error": err.Error()})
		HandleValidationError(c, "request body", "", err.Error())
		return
	}

	language, err := models.ParseLanguage(req.Language)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("vocabulary.concept", req.Concept),
		attribute.String("vocabulary.language", string(language)),
	)

	saved, err := h.vocabularyService.UpsertTranslation(ctx, &models.Translation{
		Concept:   req.Concept,
		Language:  language,
		Text:      req.Text,
		Hint:      req.Hint,
		IsCorrect: *req.IsCorrect,
	})
	if err != nil {
		h.logger.Warn(ctx, "Translation upsert rejected", map[string]interface{}{
			"concept": req.Concept,
			"error":   err.Error(),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// GetTranslation handles GET /v1/vocabulary/:concept/:language
func (h *VocabularyHandler) GetTranslation(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_translation")
	defer observability.FinishSpan(span, nil)

	concept := c.Param("concept")
	language, err := models.ParseLanguage(c.Param("language"))
	if err != nil {
		HandleAppError(c, err)
		return
	}

	translation, err := h.vocabularyService.GetTranslation(ctx, concept, language)
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			h.logger.Error(ctx, "Failed to load translation", err, map[string]interface{}{"concept": concept})
		}
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, translation)
}

// ListConcepts handles GET /v1/concepts
func (h *VocabularyHandler) ListConcepts(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_concepts")
	defer observability.FinishSpan(span, nil)

	filter := models.ConceptFilter{}
	if raw := c.Query("language"); raw != "" {
		language, err := models.ParseLanguage(raw)
		if err != nil {
			HandleAppError(c, err)
			return
		}
		filter.Language = language
	}
	if raw := c.Query("correct_only"); raw != "" {
		correctOnly, err := strconv.ParseBool(raw)
		if err != nil {
			HandleValidationError(c, "correct_only", raw, "must be a boolean")
			return
		}
		filter.CorrectOnly = correctOnly
	}

	concepts, err := h.vocabularyService.ListConcepts(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "Failed to list concepts", err)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"concepts": concepts, "count": len(concepts)})
}

// ListEntries handles GET /v1/entries
func (h *VocabularyHandler) ListEntries(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_entries")
	defer observability.FinishSpan(span, nil)

	entries, err := h.syncService.ListEntries(ctx)
	if err != nil {
		h.logger.Error(ctx, "Failed to list quiz entries", err)
		HandleAppError(c, err)
		return
	}

	for i := range entries {
		entries[i].MediaURL = resolveMediaURL(h.cfg, entries[i].MediaURL)
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetEntry handles GET /v1/entries/:concept
func (h *VocabularyHandler) GetEntry(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_entry")
	defer observability.FinishSpan(span, nil)

	concept := c.Param("concept")
	entry, err := h.syncService.GetEntry(ctx, concept)
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			h.logger.Error(ctx, "Failed to load quiz entry", err, map[string]interface{}{"concept": concept})
		}
		HandleAppError(c, err)
		return
	}

	entry.MediaURL = resolveMediaURL(h.cfg, entry.MediaURL)
	c.JSON(http.StatusOK, entry)
}

// SyncEntries handles POST /v1/vocabulary/sync
func (h *VocabularyHandler) SyncEntries(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "sync_entries")
	defer observability.FinishSpan(span, nil)

	report, err := h.syncService.SyncAll(ctx)
	if err != nil {
		h.logger.Error(ctx, "Vocabulary repair pass failed", err)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"simsim/internal/config"
	"simsim/internal/middleware"
	"simsim/internal/models"
	"simsim/internal/observability"
	"simsim/internal/services"
	"simsim/internal/version"
)

// registerCustomValidators adds the vocablang rule used by binding tags on
// request structs.
func registerCustomValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("vocablang", func(fl validator.FieldLevel) bool {
			_, err := models.ParseLanguage(fl.Field().String())
			return err == nil
		})
	}
}

// NewRouter creates a new router with all the necessary middleware and routes
func NewRouter(
	cfg *config.Config,
	vocabularyService services.VocabularyServiceInterface,
	syncService services.SyncServiceInterface,
	gameService services.GameServiceInterface,
	sessionService services.SessionServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	registerCustomValidators()

	// Setup Gin mode
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(nil))

	// Add HTTP request logging middleware using our observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}
		if statusCode >= 400 {
			if c.Writer.Size() > 0 {
				fields["http.response_size"] = c.Writer.Size()
			}
			if statusCode >= 500 {
				fields["http.error_type"] = "server_error"
			} else {
				fields["http.error_type"] = "client_error"
			}
		}

		if statusCode >= 500 {
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		} else if statusCode >= 400 {
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		} else {
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "backend"})
	})

	// OpenTelemetry middleware for HTTP tracing and context propagation
	router.Use(observability.GinMiddlewareWithErrorHandling("simsim-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	// Setup CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Security middleware
	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	// Initialize handlers
	vocabularyHandler := NewVocabularyHandler(vocabularyService, syncService, cfg, logger)
	gameHandler := NewGameHandler(gameService, sessionService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "backend",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		// Vocabulary corpus routes
		v1.PUT("/vocabulary", vocabularyHandler.UpsertTranslation)
		v1.POST("/vocabulary/sync", vocabularyHandler.SyncEntries)
		v1.GET("/vocabulary/:concept/:language", vocabularyHandler.GetTranslation)
		v1.GET("/concepts", vocabularyHandler.ListConcepts)
		v1.GET("/entries", vocabularyHandler.ListEntries)
		v1.GET("/entries/:concept", vocabularyHandler.GetEntry)

		game := v1.Group("/game")
		{
			game.GET("/questions", gameHandler.GetQuestions)
			game.POST("/responses", gameHandler.SubmitResponses)
			game.GET("/sessions/:id", gameHandler.GetSession)
		}
	}

	return router
}

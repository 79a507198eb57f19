// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"simsim/internal/config"
	"simsim/internal/database"
	"simsim/internal/observability"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetVocabularyService() (services.VocabularyServiceInterface, error)
	GetSyncService() (services.SyncServiceInterface, error)
	GetGameService() (services.GameServiceInterface, error)
	GetSessionService() (services.SessionServiceInterface, error)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	db            *sql.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Initialize database
	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDBWithConfig(sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	sc.initializeServices(ctx)

	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetVocabularyService returns the vocabulary service
func (sc *ServiceContainer) GetVocabularyService() (services.VocabularyServiceInterface, error) {
	return GetServiceAs[services.VocabularyServiceInterface](sc, "vocabulary")
}

// GetSyncService returns the quiz entry sync service
func (sc *ServiceContainer) GetSyncService() (services.SyncServiceInterface, error) {
	return GetServiceAs[services.SyncServiceInterface](sc, "sync")
}

// GetGameService returns the game service
func (sc *ServiceContainer) GetGameService() (services.GameServiceInterface, error) {
	return GetServiceAs[services.GameServiceInterface](sc, "game")
}

// GetSessionService returns the session service
func (sc *ServiceContainer) GetSessionService() (services.SessionServiceInterface, error) {
	return GetServiceAs[services.SessionServiceInterface](sc, "session")
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup handles shutdown of all services in reverse order of initialization
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errors []error

	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errors)
	}
	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices(_ context.Context) {
	// The sync service has no dependencies beyond the database.
	syncService := services.NewSyncServiceWithLogger(sc.db, sc.logger)
	sc.services["sync"] = syncService

	// Vocabulary writes trigger the synchronizer.
	vocabularyService := services.NewVocabularyServiceWithLogger(sc.db, sc.cfg, syncService, sc.logger)
	sc.services["vocabulary"] = vocabularyService

	gameService := services.NewGameServiceWithLogger(sc.db, sc.cfg, sc.logger)
	sc.services["game"] = gameService

	sessionService := services.NewSessionServiceWithLogger(sc.db, sc.logger)
	sc.services["session"] = sessionService
}

// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"returnsdesk/internal/config"
	"returnsdesk/internal/database"
	"returnsdesk/internal/observability"
	"returnsdesk/internal/serviceinterfaces"
	"returnsdesk/internal/services"
	"returnsdesk/internal/storage"
	contextutils "returnsdesk/internal/utils"

	"github.com/jmoiron/sqlx"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetReturnService() (serviceinterfaces.ReturnService, error)
	GetImageStore() (storage.ImageStore, error)
	GetDatabase() *sqlx.DB
	GetDatabaseManager() *database.Manager
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Service names registered by initializeServices
const (
	ServiceReturns   = "returns"
	ServiceStore     = "image_store"
	ServiceDirectory = "user_directory"
)

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	meterProvider otelmetric.MeterProvider
	dbManager     *database.Manager
	db            *sqlx.DB
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container.
// meterProvider may be nil, in which case metrics are no-ops.
func NewServiceContainer(cfg *config.Config, logger *observability.Logger, meterProvider otelmetric.MeterProvider) *ServiceContainer {
	return &ServiceContainer{
		cfg:           cfg,
		logger:        logger,
		meterProvider: meterProvider,
		dbManager:     database.NewManager(logger),
		services:      make(map[string]interface{}),
	}
}

// Initialize opens the database, runs migrations and wires the returns service
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	db, err := sc.dbManager.InitDBWithConfig(ctx, sc.cfg.Database)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}

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

// GetReturnService returns the returns service shared by both front-ends
func (sc *ServiceContainer) GetReturnService() (serviceinterfaces.ReturnService, error) {
	return GetServiceAs[serviceinterfaces.ReturnService](sc, ServiceReturns)
}

// GetImageStore returns the configured image backend
func (sc *ServiceContainer) GetImageStore() (storage.ImageStore, error) {
	return GetServiceAs[storage.ImageStore](sc, ServiceStore)
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sqlx.DB {
	return sc.db
}

// GetDatabaseManager returns the manager used for migrations
func (sc *ServiceContainer) GetDatabaseManager() *database.Manager {
	return sc.dbManager
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

// cleanup runs the registered shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}

// initializeServices wires the store, user directory, repository and service on top of sc.db
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	store, err := storage.New(ctx, sc.cfg, sc.logger)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to initialize image store")
	}
	sc.services[ServiceStore] = store

	directory, err := services.NewStaticDirectory(sc.cfg.Auth.Users)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to load user directory")
	}
	sc.services[ServiceDirectory] = directory

	metrics, err := observability.NewMetrics(sc.meterProvider)
	if err != nil {
		return err
	}

	repo := services.NewReturnsRepository(sc.db, sc.logger)
	sc.services[ServiceReturns] = services.NewReturnService(repo, store, storage.NewPolicy(sc.cfg), directory, metrics, sc.logger)

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"upload_backend": sc.cfg.Uploads.Backend,
		"users":          len(sc.cfg.Auth.Users),
	})
	return nil
}

// Package main provides the main entry point for the returns desk web server.
// It sets up the HTTP server, database connections, middleware, and routes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"returnsdesk/internal/config"
	"returnsdesk/internal/di"
	"returnsdesk/internal/handlers"
	"returnsdesk/internal/observability"
	contextutils "returnsdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	router    *gin.Engine
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	returnService, err := container.GetReturnService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get returns service")
	}

	store, err := container.GetImageStore()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get image store")
	}

	router, err := handlers.NewRouter(container.GetConfig(), returnService, store, container.GetLogger())
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build router")
	}

	return &Application{
		container: container,
		router:    router,
	}, nil
}

// Run serves HTTP until the server is shut down or fails to start
func (a *Application) Run(port string) error {
	a.server = &http.Server{
		Addr:              ":" + port,
		Handler:           a.router,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
	}

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return contextutils.WrapError(err, "server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the container's resources
func (a *Application) Shutdown(ctx context.Context) error {
	var serverErr error
	if a.server != nil {
		serverErr = a.server.Shutdown(ctx)
	}
	return errors.Join(serverErr, a.container.Shutdown(ctx))
}

func main() {
	ctx := context.Background()

	// Setup graceful shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tp, mp, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, handlers.ServiceName, cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := observability.ShutdownProviders(shutdownCtx, tp, mp); err != nil {
			logger.Warn(ctx, "Error shutting down telemetry providers", map[string]interface{}{"error": err.Error()})
		}
		_ = logger.Sync()
	}()

	logger.Info(ctx, "Starting returns desk server", map[string]interface{}{
		"port":           cfg.Server.Port,
		"logLevel":       cfg.Server.LogLevel,
		"upload_backend": cfg.Uploads.Backend,
	})

	container := di.NewServiceContainer(cfg, logger, otel.GetMeterProvider())
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err)
		os.Exit(1)
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run(cfg.Server.Port)
	}()

	select {
	case sig := <-shutdownCh:
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", map[string]interface{}{"signal": sig.String()})
	case err := <-appErr:
		logger.Error(ctx, "Application failed", err)
		_ = container.Shutdown(ctx)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Shutdown completed successfully")
}

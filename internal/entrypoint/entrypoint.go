package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/config"
	http_controllers "github.com/mrlokans/lumina/internal/http"
	"github.com/mrlokans/lumina/internal/logging"
	"github.com/mrlokans/lumina/internal/scheduler"
	"github.com/mrlokans/lumina/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, logger zerolog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// kill (no param) default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info().Dur("timeout", timeout).Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no round or download outlives the server
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("server exiting")
	return nil
}

// Run starts the engine: HTTP API, scheduled sync and background downloads.
func Run(cfg *config.Config, version string) {
	logger, logCloser := logging.New(cfg.Logging)
	defer logCloser.Close()

	logger.Info().Str("version", version).Msg("starting lumina")

	app, err := Build(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing stores")
		}
	}()

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize task queue")
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewDownloadBookQueue(app.Library, logger),
			tasks.NewPruneAuditQueue(app.Audit, logger),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		if _, err := taskClient.Add(tasks.PruneAuditTask{RetentionDays: cfg.Tasks.AuditRetentionDays}).Save(); err != nil {
			logger.Warn().Err(err).Msg("failed to enqueue audit cleanup")
		}
	}

	// Initialize scheduled sync if enabled
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Sync.Enabled {
		syncScheduler = scheduler.NewSyncScheduler(app.Syncer, app.Settings, cfg.Sync.Schedule, cfg.Sync.RoundTimeout, logger)
		if err := syncScheduler.Start(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start sync scheduler")
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:         app.DB,
		Library:          app.Library,
		Blobs:            app.Blobs,
		Syncer:           app.Syncer,
		Runs:             app.Runs,
		Credentials:      app.Guard,
		SyncRoundTimeout: cfg.Sync.RoundTimeout,
		Settings:         app.Settings,
		Audit:            app.Audit,
		Version:          version,
		Logger:           logger,
	}
	if syncScheduler != nil {
		routerCfg.Schedule = syncScheduler
	}
	if taskClient != nil {
		routerCfg.Downloads = taskClient
	}

	gin.SetMode(gin.ReleaseMode)
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	if err := Serve(router, cfg, logger, onShutdown); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}

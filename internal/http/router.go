package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(cfg.Logger))
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Blobs, cfg.Version)
	router.GET("/health", healthController.Status)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	folder := func() string { return "" }
	devices := func() string { return "" }
	if cfg.Settings != nil {
		folder = cfg.Settings.GetDriveFolderID
		devices = cfg.Settings.GetDeviceName
	}

	if cfg.Library != nil {
		booksController := NewBooksController(cfg.Library, cfg.Downloads, folder, cfg.Logger)
		api.GET("/books", booksController.ListBooks)
		api.GET("/books/:id", booksController.GetBook)
		api.GET("/books/:id/position", booksController.GetPosition)
		api.PUT("/books/:id/position", booksController.UpdatePosition)
		api.POST("/books/:id/download", booksController.DownloadBook)
		api.GET("/books/:id/content", booksController.GetContent)
		api.DELETE("/books/:id/content", booksController.EvictContent)
		api.POST("/library/refresh", booksController.RefreshLibrary)
	}

	if cfg.Syncer != nil && cfg.Runs != nil {
		syncController := NewSyncController(
			cfg.Syncer,
			cfg.Runs,
			cfg.Schedule,
			cfg.Credentials,
			devices,
			cfg.SyncRoundTimeout,
			cfg.Logger,
		)
		api.POST("/sync", syncController.TriggerSync)
		api.GET("/sync/status", syncController.GetStatus)
	}

	if cfg.Settings != nil {
		settingsController := NewSettingsController(cfg.Settings, cfg.Audit, cfg.Logger)
		api.GET("/settings", settingsController.GetSettings)
		api.PUT("/settings", settingsController.UpdateSettings)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit, cfg.Logger)
		api.GET("/audit", auditController.GetAuditEvents)
	}

	if cfg.Downloads != nil {
		tasksController := NewTasksController(cfg.Downloads, cfg.Logger)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

// requestLogger logs one line per request through zerolog.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Debug()
		if c.Writer.Status() >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

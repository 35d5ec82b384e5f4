package entrypoint

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/audit"
	"github.com/mrlokans/lumina/internal/blobcache"
	"github.com/mrlokans/lumina/internal/config"
	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/database"
	auditrepo "github.com/mrlokans/lumina/internal/database/audit"
	records "github.com/mrlokans/lumina/internal/database/library"
	"github.com/mrlokans/lumina/internal/database/settings"
	"github.com/mrlokans/lumina/internal/database/syncruns"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/library"
	"github.com/mrlokans/lumina/internal/oauth2/providers"
	"github.com/mrlokans/lumina/internal/settingsstore"
	"github.com/mrlokans/lumina/internal/storage/providers/gdrive"
	"github.com/mrlokans/lumina/internal/syncer"
	"github.com/mrlokans/lumina/internal/tokenstore"
)

// App holds the engine components shared by the server and the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	DB       *database.Database
	Blobs    *blobcache.Cache
	Records  *records.Repository
	Runs     *syncruns.Repository
	Audit    *audit.Service
	Settings *settingsstore.SettingsStore

	Tokens  *tokenstore.TokenStore
	Google  *providers.GoogleProvider // nil without GOOGLE_CLIENT_ID
	Guard   *credential.Guard
	Drive   *gdrive.Client
	Library *library.Service
	Syncer  *syncer.Orchestrator
}

// Build opens the databases and wires every component. Close releases them.
func Build(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	blobs, err := blobcache.Open(cfg.Cache.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open blob cache: %w", err)
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Blobs:   blobs,
		Records: records.NewRepository(db.DB),
		Runs:    syncruns.NewRepository(db.DB),
		Audit:   audit.NewService(auditrepo.NewRepository(db.DB), logger),
		Settings: settingsstore.New(settings.NewRepository(db.DB), settingsstore.Environment{
			DriveFolderID: cfg.Drive.FolderID,
			DeviceName:    cfg.Sync.DeviceName,
		}),
	}

	app.Tokens, err = tokenstore.New(db.DB, tokenstore.Config{
		Provider:      entities.OAuthProviderGoogle,
		EncryptionKey: cfg.Credential.EncryptionKey,
		KeyFilePath:   cfg.Credential.KeyFile,
	}, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	var refresher credential.Refresher
	if app.Google = providers.NewGoogleFromConfig(cfg.Drive.ClientID, cfg.Drive.ClientSecret); app.Google != nil {
		refresher = app.Google
	} else {
		logger.Warn().Msg("GOOGLE_CLIENT_ID is not set; expiring credentials cannot be refreshed")
	}

	app.Guard = credential.NewGuard(app.Tokens, refresher,
		credential.WithRefreshMargin(cfg.Credential.RefreshMargin),
		credential.WithLogger(logger),
	)
	app.Drive = gdrive.NewClient(app.Guard)

	app.Library = library.NewService(app.Records, blobs, app.Drive,
		library.WithEventLogger(app.Audit),
		library.WithLogger(logger),
		library.WithMaxDownloadBytes(cfg.Cache.MaxDownloadBytes),
	)

	app.Syncer = syncer.New(app.Records, app.Drive, app.Guard,
		syncer.WithRunRecorder(app.Runs),
		syncer.WithEventLogger(app.Audit),
		syncer.WithLogger(logger),
	)

	if n, err := app.Records.ResetInterruptedDownloads(); err != nil {
		logger.Warn().Err(err).Msg("failed to reset interrupted downloads")
	} else if n > 0 {
		logger.Info().Int64("books", n).Msg("reset interrupted downloads to pending")
	}

	return app, nil
}

// Close flushes pending audit writes and closes the stores.
func (a *App) Close() error {
	if a.Audit != nil {
		a.Audit.Flush()
	}
	var errs []error
	if a.Blobs != nil {
		errs = append(errs, a.Blobs.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

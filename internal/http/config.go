package http

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Library  Library
	Blobs    BlobStats

	// Sync
	Syncer           SyncRunner
	Runs             RunHistory
	Schedule         Schedule // nil when scheduled sync is disabled
	Credentials      CredentialStatus
	SyncRoundTimeout time.Duration

	// Settings and audit
	Settings Settings
	Audit    AuditLog

	// Background downloads; nil downloads synchronously
	Downloads DownloadQueue

	// Application info
	Version string
	Logger  zerolog.Logger
}

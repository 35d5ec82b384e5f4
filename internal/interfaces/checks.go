package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/lumina/internal/audit"
	"github.com/mrlokans/lumina/internal/blobcache"
	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/database/library"
	"github.com/mrlokans/lumina/internal/database/syncruns"
	"github.com/mrlokans/lumina/internal/http"
	libraryservice "github.com/mrlokans/lumina/internal/library"
	"github.com/mrlokans/lumina/internal/oauth2"
	"github.com/mrlokans/lumina/internal/oauth2/providers"
	"github.com/mrlokans/lumina/internal/scheduler"
	"github.com/mrlokans/lumina/internal/settingsstore"
	"github.com/mrlokans/lumina/internal/storage"
	"github.com/mrlokans/lumina/internal/storage/providers/gdrive"
	"github.com/mrlokans/lumina/internal/syncer"
	"github.com/mrlokans/lumina/internal/tasks"
	"github.com/mrlokans/lumina/internal/tokenstore"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ syncer.LibraryStore = (*library.Repository)(nil)
var _ libraryservice.Records = (*library.Repository)(nil)
var _ libraryservice.Blobs = (*blobcache.Cache)(nil)
var _ syncer.RunRecorder = (*syncruns.Repository)(nil)
var _ http.RunHistory = (*syncruns.Repository)(nil)
var _ http.BlobStats = (*blobcache.Cache)(nil)

// =============================================================================
// Credentials and Remote Store
// =============================================================================

var _ credential.Store = (*tokenstore.TokenStore)(nil)
var _ credential.Store = (*credential.MemoryStore)(nil)
var _ credential.Refresher = (*providers.GoogleProvider)(nil)
var _ oauth2.Provider = (*providers.GoogleProvider)(nil)
var _ storage.TokenSource = (*credential.Guard)(nil)
var _ syncer.Credentials = (*credential.Guard)(nil)
var _ http.CredentialStatus = (*credential.Guard)(nil)
var _ storage.RemoteStore = (*gdrive.Client)(nil)

// =============================================================================
// Services
// =============================================================================

var _ http.Library = (*libraryservice.Service)(nil)
var _ tasks.Downloader = (*libraryservice.Service)(nil)
var _ http.SyncRunner = (*syncer.Orchestrator)(nil)
var _ scheduler.Syncer = (*syncer.Orchestrator)(nil)
var _ scheduler.DeviceNamer = (*settingsstore.SettingsStore)(nil)
var _ http.Settings = (*settingsstore.SettingsStore)(nil)
var _ http.Schedule = (*scheduler.SyncScheduler)(nil)
var _ http.DownloadQueue = (*tasks.Client)(nil)

// =============================================================================
// Audit
// =============================================================================

var _ libraryservice.EventLogger = (*audit.Service)(nil)
var _ syncer.EventLogger = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ tasks.AuditPruner = (*audit.Service)(nil)

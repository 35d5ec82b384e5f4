package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/settingsstore"
	"github.com/mrlokans/lumina/internal/syncer"
)

// This file consolidates the interfaces controllers depend on. Each is
// satisfied by a concrete service wired in the entrypoint.

// Library is the book surface used by the renderer and the library screen.
type Library interface {
	List() ([]entities.Book, error)
	Get(id string) (*entities.Book, error)
	Download(ctx context.Context, id string) (*entities.Book, error)
	Open(id string) ([]byte, error)
	RecordProgress(id, locator string) error
	CurrentLocator(id string) (string, error)
	EvictContent(id string) error
	RefreshFromRemote(ctx context.Context, folderID string) (int, error)
}

// DownloadQueue schedules background downloads.
type DownloadQueue interface {
	EnqueueDownload(bookID string) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// SyncRunner runs sync rounds.
type SyncRunner interface {
	Sync(ctx context.Context, trigger entities.SyncTrigger, deviceLabel string) (*syncer.Result, error)
	InProgress() bool
}

// RunHistory reads recorded sync rounds.
type RunHistory interface {
	Latest() (*entities.SyncRun, error)
	LatestSuccessful() (*entities.SyncRun, error)
	Recent(limit int) ([]entities.SyncRun, error)
}

// Schedule reports when the next scheduled round fires.
type Schedule interface {
	NextRunTime() *time.Time
}

// CredentialStatus reports whether Drive is connected.
type CredentialStatus interface {
	Status() (credential.Status, error)
}

// Settings is the user-editable sync configuration.
type Settings interface {
	GetDriveFolderID() string
	SetDriveFolderID(folderID string) error
	ClearDriveFolderID() error
	GetDeviceName() string
	SetDeviceName(name string) error
	GetInfo() settingsstore.Info
}

// AuditLog reads and writes audit events.
type AuditLog interface {
	GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error)
	LogSettings(action, description string)
}

// BlobStats reports blob cache usage.
type BlobStats interface {
	Stats() (count int, size int64, err error)
}

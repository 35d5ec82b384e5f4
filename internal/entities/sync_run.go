package entities

import (
	"time"
)

type SyncTrigger string

const (
	SyncTriggerManual    SyncTrigger = "manual"
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerAPI       SyncTrigger = "api"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncRun records one sync round.
type SyncRun struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Trigger     SyncTrigger `gorm:"size:20" json:"trigger"`
	DeviceLabel string      `gorm:"size:255" json:"device_label,omitempty"`
	Status      SyncStatus  `gorm:"size:20;index" json:"status"`
	Pulled      int         `json:"pulled"`
	Pushed      int         `json:"pushed"`
	Unchanged   int         `json:"unchanged"`
	Uploaded    bool        `json:"uploaded"`
	ErrorKind   string      `gorm:"size:50" json:"error_kind,omitempty"`
	Error       string      `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time   `gorm:"index" json:"started_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}

package entities

import "time"

// AuditEventType groups audit events by the subsystem emitting them.
type AuditEventType string

const (
	AuditEventSync     AuditEventType = "sync"
	AuditEventDownload AuditEventType = "download"
	AuditEventAuth     AuditEventType = "auth"
	AuditEventSettings AuditEventType = "settings"
	AuditEventLibrary  AuditEventType = "library"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

// AuditEvent is one entry of the user-visible activity log. Metadata is a
// JSON object; ErrorKind is a failure kind name.
type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`
	Description string         `gorm:"size:500" json:"description"`
	BookID      string         `gorm:"index;size:255" json:"book_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorKind   string         `gorm:"size:50" json:"error_kind,omitempty"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string { return "audit_events" }

// NewAuditEvent returns a successful event.
func NewAuditEvent(eventType AuditEventType, action, description string) *AuditEvent {
	return &AuditEvent{
		EventType:   eventType,
		Action:      action,
		Description: description,
		Status:      AuditStatusSuccess,
	}
}

// Fail marks the event failed with the given kind and message.
func (e *AuditEvent) Fail(kind, message string) {
	e.Status = AuditStatusFailed
	e.ErrorKind = kind
	e.ErrorMsg = message
}

func (e *AuditEvent) Failed() bool { return e.Status == AuditStatusFailed }

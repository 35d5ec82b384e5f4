package audit

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/lumina/internal/entities"
)

const defaultPageSize = 50

// Repository stores audit events in the main database.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// LogEvent inserts event, stamping it with the current time when unset.
func (r *Repository) LogEvent(event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}
	return r.db.Create(event).Error
}

// GetEvents returns one page of events, newest first, and the number of
// events matching eventType. An empty eventType matches all.
func (r *Repository) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	var total int64
	if err := r.db.Model(&entities.AuditEvent{}).Scopes(ofType(eventType)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []entities.AuditEvent
	err := r.db.Scopes(ofType(eventType), page(limit, offset)).
		Order("created_at DESC, id DESC").
		Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes events created before cutoff and reports how many
// went.
func (r *Repository) DeleteOldEvents(cutoff time.Time) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return res.RowsAffected, res.Error
}

func ofType(eventType entities.AuditEventType) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if eventType == "" {
			return db
		}
		return db.Where("event_type = ?", eventType)
	}
}

func page(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Limit(limit).Offset(offset)
	}
}

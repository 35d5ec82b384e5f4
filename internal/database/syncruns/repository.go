// Package syncruns records the history of sync rounds.
//
// # Usage
//
//	repo := syncruns.NewRepository(db)
//	run, err := repo.Start(entities.SyncTriggerScheduled, "laptop")
//	err = repo.Complete(run.ID, outcome)
package syncruns

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/lumina/internal/entities"
)

// staleAfter is how long a running row may go without completing before it
// is treated as interrupted.
const staleAfter = 10 * time.Minute

// Outcome is the final state of a round.
type Outcome struct {
	Pulled    int
	Pushed    int
	Unchanged int
	Uploaded  bool
	ErrorKind string
	Error     string
}

// Repository handles all sync run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync run repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Start inserts a running row for a new round.
func (r *Repository) Start(trigger entities.SyncTrigger, deviceLabel string) (*entities.SyncRun, error) {
	now := time.Now()
	run := &entities.SyncRun{
		Trigger:     trigger,
		DeviceLabel: deviceLabel,
		Status:      entities.SyncStatusRunning,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Complete marks a run completed, or failed when outcome carries an error.
func (r *Repository) Complete(id uint, outcome Outcome) error {
	now := time.Now()
	status := entities.SyncStatusCompleted
	if outcome.ErrorKind != "" || outcome.Error != "" {
		status = entities.SyncStatusFailed
	}

	return r.db.Model(&entities.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"pulled":       outcome.Pulled,
			"pushed":       outcome.Pushed,
			"unchanged":    outcome.Unchanged,
			"uploaded":     outcome.Uploaded,
			"error_kind":   outcome.ErrorKind,
			"error":        outcome.Error,
			"updated_at":   now,
			"completed_at": now,
		}).Error
}

// Latest returns the most recent run, or nil when no round has run yet.
func (r *Repository) Latest() (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Order("started_at DESC, id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestSuccessful returns the most recent completed run, or nil.
func (r *Repository) LatestSuccessful() (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Where("status = ?", entities.SyncStatusCompleted).
		Order("started_at DESC, id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns up to limit runs, most recent first.
func (r *Repository) Recent(limit int) ([]entities.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []entities.SyncRun
	err := r.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// IsSyncRunning reports whether a round is in progress. Running rows older
// than ten minutes are failed as interrupted and do not count.
func (r *Repository) IsSyncRunning() (bool, error) {
	threshold := time.Now().Add(-staleAfter)
	now := time.Now()
	err := r.db.Model(&entities.SyncRun{}).
		Where("status = ? AND updated_at < ?", entities.SyncStatusRunning, threshold).
		Updates(map[string]any{
			"status":       entities.SyncStatusFailed,
			"error":        "sync was interrupted",
			"updated_at":   now,
			"completed_at": now,
		}).Error
	if err != nil {
		return false, err
	}

	var count int64
	err = r.db.Model(&entities.SyncRun{}).Where("status = ?", entities.SyncStatusRunning).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Package library provides the Local Library Store: one record per remote
// book with its download state, reading position, timestamp and dirty flag.
//
// Every method commits before returning. Pull application and clean marking
// are single statements or single transactions so an interrupted sync round
// never leaves a half-applied record.
//
// # Usage
//
//	repo := library.NewRepository(db)
//	err := repo.RecordProgress("file-id", "epubcfi(/6/4!/2)")
package library

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

// Repository handles all book record database operations.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that reads time from now.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	return &Repository{db: r.db, now: now}
}

// List returns every book ordered by title, then id.
func (r *Repository) List() ([]entities.Book, error) {
	var books []entities.Book
	if err := r.db.Order("title ASC, file_id ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// Get returns the book with the given id or a NotFound failure.
func (r *Repository) Get(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("file_id = ?", id).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, failure.Newf(failure.KindNotFound, "library.get", "book %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return &book, nil
}

// UpsertFromRemoteListing creates pending, clean records for new ids. For
// existing ids only the title and listing timestamp are overwritten; the
// position, dirty flag and download state are kept. A fallback timestamp
// never replaces a stored one.
func (r *Repository) UpsertFromRemoteListing(items []entities.ListingItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if item.FileID == "" {
				continue
			}
			book := entities.Book{
				FileID:         item.FileID,
				Title:          item.Title,
				Author:         item.Author,
				LastCFI:        entities.DefaultCFI,
				Timestamp:      item.Timestamp,
				IsDirty:        false,
				DownloadStatus: entities.DownloadStatusPending,
			}
			if book.Author == "" {
				book.Author = entities.DefaultAuthor
			}
			updated := []string{"title", "updated_at"}
			if !item.TimestampIsFallback {
				updated = append(updated, "timestamp")
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "file_id"}},
				DoUpdates: clause.AssignmentColumns(updated),
			}).Create(&book).Error
			if err != nil {
				return fmt.Errorf("failed to upsert book %s: %w", item.FileID, err)
			}
		}
		return nil
	})
}

// SetDownloadState updates the download status. localPath is written only
// when non-nil so a failed download keeps the previous locator.
func (r *Repository) SetDownloadState(id string, state entities.DownloadStatus, localPath *string) error {
	if !state.Valid() {
		return failure.Newf(failure.KindInvalidInput, "library.set_download_state", "unknown download state %q", state)
	}
	updates := map[string]any{
		"download_status": state,
		"updated_at":      r.now(),
	}
	if localPath != nil {
		updates["local_path"] = *localPath
	}
	return r.update("library.set_download_state", id, updates)
}

// RecordProgress stores a position reported by the renderer and marks the
// record dirty with the current time.
func (r *Repository) RecordProgress(id, locator string) error {
	now := r.now()
	return r.update("library.record_progress", id, map[string]any{
		"last_cfi":   locator,
		"timestamp":  now.UnixMilli(),
		"is_dirty":   true,
		"updated_at": now,
	})
}

// ApplyRemoteProgress writes a pulled position. Position, timestamp and the
// dirty flag change together in one statement.
func (r *Repository) ApplyRemoteProgress(id, locator string, ts int64) error {
	return r.update("library.apply_remote_progress", id, map[string]any{
		"last_cfi":   locator,
		"timestamp":  ts,
		"is_dirty":   false,
		"updated_at": r.now(),
	})
}

// MarkClean clears the dirty flag for ids in one transaction. Timestamps are
// left unchanged.
func (r *Repository) MarkClean(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&entities.Book{}).
			Where("file_id IN ?", ids).
			Updates(map[string]any{"is_dirty": false, "updated_at": r.now()}).Error
		if err != nil {
			return fmt.Errorf("failed to mark books clean: %w", err)
		}
		return nil
	})
}

// CountDirty returns the number of records with unsynced changes.
func (r *Repository) CountDirty() (int64, error) {
	var count int64
	if err := r.db.Model(&entities.Book{}).Where("is_dirty = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count dirty books: %w", err)
	}
	return count, nil
}

// ResetInterruptedDownloads moves records stuck in downloading back to
// pending. It is run at startup, before any download task is processed.
func (r *Repository) ResetInterruptedDownloads() (int64, error) {
	result := r.db.Model(&entities.Book{}).
		Where("download_status = ?", entities.DownloadStatusDownloading).
		Updates(map[string]any{"download_status": entities.DownloadStatusPending, "updated_at": r.now()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset interrupted downloads: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) update(op, id string, updates map[string]any) error {
	result := r.db.Model(&entities.Book{}).Where("file_id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update book %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return failure.Newf(failure.KindNotFound, op, "book %s not found", id)
	}
	return nil
}

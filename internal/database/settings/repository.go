// Package settings stores runtime overrides as key/value rows.
package settings

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/lumina/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the value stored under key and whether the key exists.
func (r *Repository) Get(key string) (string, bool, error) {
	var row entities.Setting
	err := r.db.Take(&row, "key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *Repository) Set(key, value string) error {
	if err := r.db.Save(&entities.Setting{Key: key, Value: value}).Error; err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *Repository) Delete(key string) error {
	return r.db.Delete(&entities.Setting{}, "key = ?", key).Error
}

package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/lumina/internal/entities"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "settings.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Setting{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db)
}

func TestRepository_SetOverwrites(t *testing.T) {
	repo := setupTestDB(t)

	require.NoError(t, repo.Set(entities.SettingKeyDeviceName, "laptop"))
	require.NoError(t, repo.Set(entities.SettingKeyDeviceName, "desktop"))

	value, ok, err := repo.Get(entities.SettingKeyDeviceName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "desktop", value)
}

func TestRepository_GetMissing(t *testing.T) {
	repo := setupTestDB(t)

	value, ok, err := repo.Get(entities.SettingKeyDriveFolderID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRepository_Delete(t *testing.T) {
	repo := setupTestDB(t)
	require.NoError(t, repo.Set("k", "v"))

	require.NoError(t, repo.Delete("k"))
	require.NoError(t, repo.Delete("k"))

	_, ok, err := repo.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

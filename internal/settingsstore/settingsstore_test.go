package settingsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/database"
	"github.com/mrlokans/lumina/internal/database/settings"
)

func setupTestRepo(t *testing.T) *settings.Repository {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return settings.NewRepository(db.DB)
}

func TestDriveFolderID(t *testing.T) {
	t.Run("default is empty", func(t *testing.T) {
		store := New(setupTestRepo(t), Environment{})
		assert.Equal(t, "", store.GetDriveFolderID())
		assert.Equal(t, SourceDefault, store.GetInfo().DriveFolderID.Source)
	})

	t.Run("environment value", func(t *testing.T) {
		store := New(setupTestRepo(t), Environment{DriveFolderID: "env-folder"})
		assert.Equal(t, "env-folder", store.GetDriveFolderID())
		assert.Equal(t, SourceEnvironment, store.GetInfo().DriveFolderID.Source)
	})

	t.Run("database value wins", func(t *testing.T) {
		store := New(setupTestRepo(t), Environment{DriveFolderID: "env-folder"})
		require.NoError(t, store.SetDriveFolderID("  db-folder "))

		assert.Equal(t, "db-folder", store.GetDriveFolderID())
		assert.Equal(t, SourceDatabase, store.GetInfo().DriveFolderID.Source)
	})

	t.Run("clear falls back", func(t *testing.T) {
		store := New(setupTestRepo(t), Environment{DriveFolderID: "env-folder"})
		require.NoError(t, store.SetDriveFolderID("db-folder"))
		require.NoError(t, store.ClearDriveFolderID())
		require.NoError(t, store.ClearDriveFolderID())

		assert.Equal(t, "env-folder", store.GetDriveFolderID())
	})
}

func TestDeviceName(t *testing.T) {
	t.Run("defaults to host name", func(t *testing.T) {
		host, err := os.Hostname()
		require.NoError(t, err)

		store := New(setupTestRepo(t), Environment{})
		assert.Equal(t, host, store.GetDeviceName())
	})

	t.Run("database value wins", func(t *testing.T) {
		store := New(setupTestRepo(t), Environment{DeviceName: "from-env"})
		assert.Equal(t, "from-env", store.GetDeviceName())

		require.NoError(t, store.SetDeviceName("laptop"))
		info := store.GetInfo()
		assert.Equal(t, Value{Value: "laptop", Source: SourceDatabase}, info.DeviceName)
	})
}

package syncruns

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/lumina/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "runs.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.SyncRun{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

func TestRepository_StartAndComplete(t *testing.T) {
	repo, _ := setupTestDB(t)

	run, err := repo.Start(entities.SyncTriggerManual, "laptop")
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusRunning, run.Status)

	running, err := repo.IsSyncRunning()
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, repo.Complete(run.ID, Outcome{Pulled: 1, Pushed: 2, Unchanged: 3, Uploaded: true}))

	latest, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, entities.SyncStatusCompleted, latest.Status)
	assert.Equal(t, 2, latest.Pushed)
	assert.True(t, latest.Uploaded)
	assert.NotNil(t, latest.CompletedAt)

	running, err = repo.IsSyncRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRepository_Complete_Failure(t *testing.T) {
	repo, _ := setupTestDB(t)
	run, err := repo.Start(entities.SyncTriggerScheduled, "")
	require.NoError(t, err)

	require.NoError(t, repo.Complete(run.ID, Outcome{ErrorKind: "network_failure", Error: "offline"}))

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, latest.Status)
	assert.Equal(t, "network_failure", latest.ErrorKind)

	ok, err := repo.LatestSuccessful()
	require.NoError(t, err)
	assert.Nil(t, ok)
}

func TestRepository_IsSyncRunning_FailsStaleRuns(t *testing.T) {
	repo, db := setupTestDB(t)
	run, err := repo.Start(entities.SyncTriggerManual, "")
	require.NoError(t, err)
	require.NoError(t, db.Model(&entities.SyncRun{}).Where("id = ?", run.ID).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	running, err := repo.IsSyncRunning()
	require.NoError(t, err)
	assert.False(t, running)

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Equal(t, entities.SyncStatusFailed, latest.Status)
	assert.Equal(t, "sync was interrupted", latest.Error)
}

func TestRepository_Recent(t *testing.T) {
	repo, _ := setupTestDB(t)
	for i := 0; i < 3; i++ {
		_, err := repo.Start(entities.SyncTriggerAPI, "")
		require.NoError(t, err)
	}

	runs, err := repo.Recent(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	none, err := repo.Latest()
	require.NoError(t, err)
	assert.NotNil(t, none)
}

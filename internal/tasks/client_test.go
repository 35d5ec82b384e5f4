package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()
	client, err := NewClient(filepath.Join(tmpDir, "test.db"), DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "lumina-tasks.db"), TasksDBPath(filepath.Join("data", "lumina.db")))
	assert.Equal(t, "lumina-tasks", TasksDBPath("lumina"))
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type fakeDownloader struct {
	ids  chan string
	errs []error
}

func (f *fakeDownloader) Download(_ context.Context, id string) (*entities.Book, error) {
	f.ids <- id
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &entities.Book{FileID: id, Title: "Title"}, nil
}

func TestEnqueueDownload_RunsProcessor(t *testing.T) {
	client := newTestClient(t)
	downloader := &fakeDownloader{ids: make(chan string, 1)}
	client.Register(NewDownloadBookQueue(downloader, zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	id, err := client.EnqueueDownload("book-1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case got := <-downloader.ids:
		assert.Equal(t, "book-1", got)
	case <-time.After(5 * time.Second):
		t.Fatal("download task was not executed within timeout")
	}
}

func TestDownloadBookProcessor(t *testing.T) {
	t.Run("missing book completes the task", func(t *testing.T) {
		downloader := &fakeDownloader{
			ids:  make(chan string, 1),
			errs: []error{failure.Newf(failure.KindNotFound, "library.get", "gone")},
		}
		err := DownloadBookProcessor(downloader, zerolog.Nop())(context.Background(), DownloadBookTask{BookID: "x"})
		assert.NoError(t, err)
	})

	t.Run("failures are returned for retry", func(t *testing.T) {
		cause := failure.New(failure.KindNetwork, "fake", errors.New("reset"))
		downloader := &fakeDownloader{ids: make(chan string, 1), errs: []error{cause}}

		err := DownloadBookProcessor(downloader, zerolog.Nop())(context.Background(), DownloadBookTask{BookID: "x"})
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, failure.KindNetwork, failure.KindOf(err))
	})

	t.Run("nil downloader", func(t *testing.T) {
		err := DownloadBookProcessor(nil, zerolog.Nop())(context.Background(), DownloadBookTask{BookID: "x"})
		assert.Error(t, err)
	})
}

type fakeCleaner struct {
	retention time.Duration
}

func (f *fakeCleaner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 4, nil
}

func TestPruneAudit(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := pruneAudit(cleaner, zerolog.Nop())

	require.NoError(t, process(context.Background(), PruneAuditTask{}))
	assert.Equal(t, 30*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), PruneAuditTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	assert.Error(t, pruneAudit(nil, zerolog.Nop())(context.Background(), PruneAuditTask{}))
}

func TestTaskConfigs(t *testing.T) {
	var cfg backlite.QueueConfig = DownloadBookTask{}.Config()
	assert.Equal(t, "download_book", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	require.NotNil(t, cfg.Retention)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Duration)

	cfg = PruneAuditTask{}.Config()
	assert.Equal(t, "prune_audit_log", cfg.Name)
}

func TestConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)

	cfg = Config{Workers: 5}.withDefaults()
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
}

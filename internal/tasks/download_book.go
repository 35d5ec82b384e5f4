package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

// Downloader fetches book content into the blob cache.
type Downloader interface {
	Download(ctx context.Context, id string) (*entities.Book, error)
}

// DownloadBookTask downloads the content of one book.
type DownloadBookTask struct {
	BookID string `json:"book_id"`
}

// Config allows a few retries with a short backoff: the retryable failures
// are transient network errors and cache writes.
func (t DownloadBookTask) Config() backlite.QueueConfig {
	return queueConfig("download_book", 3, 30*time.Second, 10*time.Minute)
}

// DownloadBookProcessor creates a processor function for DownloadBookTask.
// A book that no longer exists completes the task instead of failing it.
func DownloadBookProcessor(downloader Downloader, logger zerolog.Logger) backlite.QueueProcessor[DownloadBookTask] {
	return func(ctx context.Context, task DownloadBookTask) error {
		if downloader == nil {
			return fmt.Errorf("downloader not configured")
		}

		book, err := downloader.Download(ctx, task.BookID)
		if failure.IsKind(err, failure.KindNotFound) {
			logger.Warn().Str("book", task.BookID).Msg("download skipped: book no longer in library")
			return nil
		}
		if err != nil {
			return fmt.Errorf("download book %s: %w", task.BookID, err)
		}

		logger.Info().Str("book", task.BookID).Str("title", book.Title).Msg("download task completed")
		return nil
	}
}

// NewDownloadBookQueue creates a backlite queue for download tasks.
func NewDownloadBookQueue(downloader Downloader, logger zerolog.Logger) backlite.Queue {
	return backlite.NewQueue(DownloadBookProcessor(downloader, logger))
}

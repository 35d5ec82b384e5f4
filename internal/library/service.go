// Package library manages book records and their cached content: refreshing
// the listing from the remote store, downloading content into the blob cache
// and recording reading positions reported by the renderer.
package library

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/metrics"
	"github.com/mrlokans/lumina/internal/storage"
)

// DefaultMaxDownloadBytes bounds a single book download.
const DefaultMaxDownloadBytes = 512 << 20

// Records is the Local Library Store.
type Records interface {
	List() ([]entities.Book, error)
	Get(id string) (*entities.Book, error)
	UpsertFromRemoteListing(items []entities.ListingItem) error
	SetDownloadState(id string, state entities.DownloadStatus, localPath *string) error
	RecordProgress(id, locator string) error
}

// Blobs is the Blob Cache.
type Blobs interface {
	Put(id string, data []byte) error
	Get(id string) ([]byte, bool, error)
	Remove(id string) error
}

// EventLogger writes audit events for library operations.
type EventLogger interface {
	LogDownload(bookID, title string, size int, err error)
	LogEviction(bookID string, err error)
	LogLibraryRefresh(count int, err error)
}

// Service coordinates records, cached content and the remote store.
type Service struct {
	records  Records
	blobs    Blobs
	remote   storage.RemoteStore
	events   EventLogger
	logger   zerolog.Logger
	now      func() time.Time
	maxBytes int64
}

// Option configures a Service.
type Option func(*Service)

func WithEventLogger(e EventLogger) Option {
	return func(s *Service) { s.events = e }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxDownloadBytes sets the download size limit; n <= 0 disables it.
func WithMaxDownloadBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// NewService creates a library Service.
func NewService(records Records, blobs Blobs, remote storage.RemoteStore, opts ...Option) *Service {
	s := &Service{
		records:  records,
		blobs:    blobs,
		remote:   remote,
		logger:   zerolog.Nop(),
		now:      time.Now,
		maxBytes: DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every book.
func (s *Service) List() ([]entities.Book, error) {
	return s.records.List()
}

// Get returns one book or a NotFound failure.
func (s *Service) Get(id string) (*entities.Book, error) {
	return s.records.Get(id)
}

// RefreshFromRemote lists the EPUB files in folderID (all visible files when
// empty) and upserts them into the library. It returns the number of files
// listed.
func (s *Service) RefreshFromRemote(ctx context.Context, folderID string) (int, error) {
	files, err := s.remote.ListBooks(ctx, folderID)
	if err != nil {
		s.logEvent(func(e EventLogger) { e.LogLibraryRefresh(0, err) })
		return 0, err
	}

	files = storage.FilterFiles(files, func(f entities.RemoteFile) bool { return f.ID != "" })
	items := make([]entities.ListingItem, 0, len(files))
	for _, f := range files {
		items = append(items, s.listingItem(f))
	}

	if err := s.records.UpsertFromRemoteListing(items); err != nil {
		s.logEvent(func(e EventLogger) { e.LogLibraryRefresh(0, err) })
		return 0, err
	}

	s.logger.Info().Int("books", len(items)).Str("folder", folderID).Msg("library refreshed from remote listing")
	s.logEvent(func(e EventLogger) { e.LogLibraryRefresh(len(items), nil) })
	return len(items), nil
}

// listingItem converts a remote file. A missing modification time falls back
// to now for new records and leaves existing records' timestamps alone.
func (s *Service) listingItem(f entities.RemoteFile) entities.ListingItem {
	item := entities.ListingItem{
		FileID:    f.ID,
		Title:     f.Name,
		Author:    f.Author,
		Timestamp: f.ModifiedTime.UnixMilli(),
	}
	if f.ModifiedTime.IsZero() {
		item.Timestamp = s.now().UnixMilli()
		item.TimestampIsFallback = true
	}
	return item
}

// Download fetches the content of a book into the blob cache and marks it
// ready. A network or remote failure puts the book back to pending; a cache
// write failure leaves it downloading so the next attempt starts over.
func (s *Service) Download(ctx context.Context, id string) (*entities.Book, error) {
	book, err := s.records.Get(id)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With().Str("book", id).Logger()

	if err := s.records.SetDownloadState(id, entities.DownloadStatusDownloading, nil); err != nil {
		return nil, err
	}

	data, err := storage.ReadAllLimited(ctx, s.remote, id, s.maxBytes)
	if err != nil {
		s.downloadFailed(book, err)
		if resetErr := s.records.SetDownloadState(id, entities.DownloadStatusPending, nil); resetErr != nil {
			logger.Error().Err(resetErr).Msg("failed to reset download state")
		}
		return nil, err
	}

	if err := s.blobs.Put(id, data); err != nil {
		s.downloadFailed(book, err)
		return nil, err
	}

	locator := entities.BlobLocator(id)
	if err := s.records.SetDownloadState(id, entities.DownloadStatusReady, &locator); err != nil {
		return nil, err
	}

	metrics.Downloads.WithLabelValues(metrics.Outcome("")).Inc()
	metrics.DownloadBytes.Add(float64(len(data)))
	logger.Info().Int("bytes", len(data)).Msg("book downloaded")
	s.logEvent(func(e EventLogger) { e.LogDownload(id, book.Title, len(data), nil) })

	return s.records.Get(id)
}

func (s *Service) downloadFailed(book *entities.Book, err error) {
	metrics.Downloads.WithLabelValues(string(failure.KindOf(err))).Inc()
	s.logger.Warn().Err(err).Str("book", book.FileID).Msg("book download failed")
	s.logEvent(func(e EventLogger) { e.LogDownload(book.FileID, book.Title, 0, err) })
}

// Open returns the cached content of a book for the renderer.
func (s *Service) Open(id string) ([]byte, error) {
	data, ok, err := s.blobs.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, failure.Newf(failure.KindNotFound, "library.open", "content of book %s is not cached", id)
	}
	return data, nil
}

// RecordProgress stores a position reported by the renderer.
func (s *Service) RecordProgress(id, locator string) error {
	locator = NormalizeLocator(locator)
	if locator == "" {
		return failure.Newf(failure.KindInvalidInput, "library.record_progress", "locator must not be empty")
	}
	return s.records.RecordProgress(id, locator)
}

// CurrentLocator returns the stored position of a book.
func (s *Service) CurrentLocator(id string) (string, error) {
	book, err := s.records.Get(id)
	if err != nil {
		return "", err
	}
	return book.LastCFI, nil
}

// EvictContent removes cached content and resets the book to pending. The
// reading position is kept.
func (s *Service) EvictContent(id string) error {
	if _, err := s.records.Get(id); err != nil {
		return err
	}

	err := s.blobs.Remove(id)
	if err == nil {
		empty := ""
		err = s.records.SetDownloadState(id, entities.DownloadStatusPending, &empty)
	}
	s.logEvent(func(e EventLogger) { e.LogEviction(id, err) })
	return err
}

func (s *Service) logEvent(fn func(EventLogger)) {
	if s.events != nil {
		fn(s.events)
	}
}

// NormalizeLocator trims surrounding whitespace.
func NormalizeLocator(locator string) string {
	return strings.TrimSpace(locator)
}

// IsEPUBCFI reports whether locator has the epubcfi(...) form.
func IsEPUBCFI(locator string) bool {
	return strings.HasPrefix(locator, "epubcfi(") && strings.HasSuffix(locator, ")")
}

// IsRetryable reports whether a failed download may succeed when repeated.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var fe *failure.Error
	if !errors.As(err, &fe) {
		return true
	}
	return fe.Kind.Retryable()
}

package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/database/audit"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

const maxMessageLen = 500

// Service provides high-level audit logging functionality.
type Service struct {
	repo   *audit.Repository
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "audit").Logger()}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.logger.Warn().Err(err).Str("action", event.Action).Msg("failed to log audit event")
		}
	}()
}

// Flush waits for pending asynchronous writes.
func (s *Service) Flush() {
	s.wg.Wait()
}

// LogSync records the outcome of a sync round.
func (s *Service) LogSync(action, description string, metadata map[string]any, err error) {
	event := entities.NewAuditEvent(entities.AuditEventSync, action, description)
	event.Metadata = encodeMetadata(metadata)
	applyError(event, err)
	s.LogAsync(event)
}

// LogDownload records a book download attempt.
func (s *Service) LogDownload(bookID, title string, size int, err error) {
	event := entities.NewAuditEvent(entities.AuditEventDownload, "book_download", "Downloaded "+title)
	event.BookID = bookID
	event.Metadata = encodeMetadata(map[string]any{"bytes": size})
	applyError(event, err)
	s.LogAsync(event)
}

// LogEviction records removal of cached book content.
func (s *Service) LogEviction(bookID string, err error) {
	event := entities.NewAuditEvent(entities.AuditEventDownload, "book_evict", "Removed cached content")
	event.BookID = bookID
	applyError(event, err)
	s.LogAsync(event)
}

// LogLibraryRefresh records a refresh of the library from the remote listing.
func (s *Service) LogLibraryRefresh(count int, err error) {
	event := entities.NewAuditEvent(entities.AuditEventLibrary, "library_refresh", "Refreshed library listing")
	event.Metadata = encodeMetadata(map[string]any{"books": count})
	applyError(event, err)
	s.LogAsync(event)
}

// LogAuth records an authentication event such as connect, refresh or expiry.
func (s *Service) LogAuth(action, description string, err error) {
	event := entities.NewAuditEvent(entities.AuditEventAuth, action, description)
	applyError(event, err)
	s.LogAsync(event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(action, description string) {
	s.LogAsync(entities.NewAuditEvent(entities.AuditEventSettings, action, description))
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(eventType, limit, offset)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func applyError(event *entities.AuditEvent, err error) {
	if err == nil {
		return
	}
	event.Fail(string(failure.KindOf(err)), truncate(err.Error(), maxMessageLen))
}

func encodeMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

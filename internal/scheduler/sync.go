// Package scheduler runs sync rounds on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/syncer"
)

// DefaultRoundTimeout bounds one scheduled round.
const DefaultRoundTimeout = 2 * time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Syncer runs one sync round.
type Syncer interface {
	Sync(ctx context.Context, trigger entities.SyncTrigger, deviceLabel string) (*syncer.Result, error)
}

// DeviceNamer supplies the label written as last_device.
type DeviceNamer interface {
	GetDeviceName() string
}

// SyncScheduler manages periodic sync rounds
type SyncScheduler struct {
	syncer   Syncer
	devices  DeviceNamer
	schedule string
	timeout  time.Duration
	logger   zerolog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

// NewSyncScheduler creates a new scheduler instance. timeout <= 0 uses
// DefaultRoundTimeout.
func NewSyncScheduler(s Syncer, devices DeviceNamer, schedule string, timeout time.Duration, logger zerolog.Logger) *SyncScheduler {
	if timeout <= 0 {
		timeout = DefaultRoundTimeout
	}
	return &SyncScheduler{
		syncer:   s,
		devices:  devices,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger.With().Str("component", "sync_scheduler").Logger(),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start begins the scheduler. It stops when ctx is cancelled.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return err
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSync(entities.SyncTriggerScheduled)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.logger.Info().Str("schedule", s.schedule).Time("next_run", s.cron.Entry(entryID).Next).Msg("sync scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running round.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.mu.Unlock()

	// a running job takes the lock to clear isSyncing, so wait unlocked
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	if cancel != nil {
		cancel()
	}

	s.logger.Info().Msg("sync scheduler stopped")
}

// RunNow triggers an immediate round in the background.
func (s *SyncScheduler) RunNow() {
	go s.runSync(entities.SyncTriggerManual)
}

// IsRunning returns whether the scheduler is active
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a scheduled round is in progress
func (s *SyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// NextRunTime returns when the next round will occur
func (s *SyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// runSync performs one round unless another scheduled round is still running.
func (s *SyncScheduler) runSync(trigger entities.SyncTrigger) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.logger.Info().Msg("sync skipped: previous round still running")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.syncer.Sync(ctx, trigger, s.devices.GetDeviceName())
	switch {
	case err == nil:
	case failure.IsKind(err, failure.KindSyncInProgress):
		s.logger.Info().Msg("sync skipped: a round is already running")
	case failure.KindOf(err).RequiresReauth():
		s.logger.Warn().Err(err).Msg("sync needs Google Drive to be connected again")
	default:
		s.logger.Warn().Err(err).Msg("scheduled sync failed")
	}
}

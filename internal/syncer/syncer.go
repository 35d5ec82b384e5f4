// Package syncer runs sync rounds: it fetches the remote state document,
// merges it with the local library, applies pulls, uploads pushes and marks
// pushed records clean.
//
// Rounds are serialized per process. A credential the remote store rejects
// is refreshed once and the round retried once; a second rejection ends the
// session and clears the stored credential.
package syncer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/database/syncruns"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/merge"
	"github.com/mrlokans/lumina/internal/metrics"
	"github.com/mrlokans/lumina/internal/storage"
	"github.com/mrlokans/lumina/internal/syncdoc"
)

// LibraryStore is the part of the Local Library Store a round needs.
type LibraryStore interface {
	List() ([]entities.Book, error)
	ApplyRemoteProgress(id, locator string, ts int64) error
	MarkClean(ids []string) error
}

// Credentials is the part of the Credential Guard a round needs.
type Credentials interface {
	CurrentOrRefresh(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) error
	Clear() error
}

// RunRecorder persists round history.
type RunRecorder interface {
	Start(trigger entities.SyncTrigger, deviceLabel string) (*entities.SyncRun, error)
	Complete(id uint, outcome syncruns.Outcome) error
}

// EventLogger writes audit events for rounds.
type EventLogger interface {
	LogSync(action, description string, metadata map[string]any, err error)
	LogAuth(action, description string, err error)
}

// Result describes a finished round.
type Result struct {
	Decisions  []merge.Decision `json:"decisions"`
	Uploaded   bool             `json:"uploaded"`
	DocumentID string           `json:"document_id,omitempty"`
	Pulled     int              `json:"pulled"`
	Pushed     int              `json:"pushed"`
	Unchanged  int              `json:"unchanged"`
	// Retried is true when the round needed a forced credential refresh.
	Retried bool `json:"retried"`
}

// Orchestrator runs sync rounds.
type Orchestrator struct {
	library LibraryStore
	remote  storage.RemoteStore
	creds   Credentials
	runs    RunRecorder
	events  EventLogger
	logger  zerolog.Logger
	now     func() time.Time

	inFlight atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithRunRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) { o.runs = r }
}

func WithEventLogger(e EventLogger) Option {
	return func(o *Orchestrator) { o.events = e }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(library LibraryStore, remote storage.RemoteStore, creds Credentials, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		library: library,
		remote:  remote,
		creds:   creds,
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InProgress reports whether a round is running.
func (o *Orchestrator) InProgress() bool {
	return o.inFlight.Load()
}

// SyncOnce runs one manual round.
func (o *Orchestrator) SyncOnce(ctx context.Context, deviceLabel string) (*Result, error) {
	return o.Sync(ctx, entities.SyncTriggerManual, deviceLabel)
}

// Sync runs one round. A concurrent call fails fast with SyncInProgress.
func (o *Orchestrator) Sync(ctx context.Context, trigger entities.SyncTrigger, deviceLabel string) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, failure.Newf(failure.KindSyncInProgress, "sync", "a sync round is already running")
	}
	defer o.inFlight.Store(false)

	started := o.now()
	logger := o.logger.With().Str("trigger", string(trigger)).Str("device", deviceLabel).Logger()
	logger.Info().Msg("sync round started")

	var runID uint
	if o.runs != nil {
		run, err := o.runs.Start(trigger, deviceLabel)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to record sync run start")
		} else {
			runID = run.ID
		}
	}

	result, err := o.syncWithRetry(ctx, deviceLabel, logger)

	o.finish(logger, runID, started, result, err)
	return result, err
}

func (o *Orchestrator) syncWithRetry(ctx context.Context, deviceLabel string, logger zerolog.Logger) (*Result, error) {
	if _, err := o.creds.CurrentOrRefresh(ctx); err != nil {
		return nil, o.credentialFailure(err)
	}

	result, err := o.round(ctx, deviceLabel)
	if !failure.IsKind(err, failure.KindAuthRejected) {
		if err != nil {
			return nil, o.credentialFailure(err)
		}
		return result, nil
	}

	logger.Warn().Err(err).Msg("remote store rejected credential, forcing refresh")
	if refreshErr := o.creds.ForceRefresh(ctx); refreshErr != nil {
		if failure.IsKind(refreshErr, failure.KindNetwork) {
			return nil, refreshErr
		}
		return nil, o.endSession(refreshErr)
	}

	result, err = o.round(ctx, deviceLabel)
	if err != nil {
		// credentialFailure turns a second rejection into SessionExpired
		return nil, o.credentialFailure(err)
	}
	result.Retried = true
	return result, nil
}

// round runs fetch, merge, pull, upload and clean marking once.
func (o *Orchestrator) round(ctx context.Context, deviceLabel string) (*Result, error) {
	appDoc, err := o.remote.ReadAppDocument(ctx)
	if err != nil {
		return nil, err
	}

	var remoteDoc *syncdoc.Document
	documentID := ""
	if appDoc != nil {
		remoteDoc, err = syncdoc.Decode(appDoc.Content)
		if err != nil {
			return nil, failure.Newf(failure.KindRemoteStore, "sync.decode", "%v", err)
		}
		documentID = appDoc.ID
	}

	books, err := o.library.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list local books: %w", err)
	}

	locals := make([]merge.Local, 0, len(books))
	for _, b := range books {
		locals = append(locals, merge.Local{BookID: b.FileID, CFI: b.LastCFI, Timestamp: b.Timestamp})
	}

	merged := merge.Merge(locals, remoteDoc, deviceLabel, o.now())
	counts := merged.Counts()
	result := &Result{
		Decisions:  merged.Decisions,
		DocumentID: documentID,
		Pulled:     counts[merge.ActionPull],
		Pushed:     counts[merge.ActionPush],
		Unchanged:  counts[merge.ActionNoop],
	}

	for _, d := range merged.Pulls() {
		if err := o.library.ApplyRemoteProgress(d.BookID, d.Entry.CFI, d.Entry.TS); err != nil {
			return nil, fmt.Errorf("failed to apply remote progress for %s: %w", d.BookID, err)
		}
	}

	// An absent document with at least one local book always yields pushes,
	// and an empty library has nothing worth creating the document for.
	pushIDs := merged.PushIDs()
	if len(pushIDs) == 0 {
		return result, nil
	}

	content, err := syncdoc.Encode(merged.Document)
	if err != nil {
		return nil, err
	}
	documentID, err = o.remote.WriteAppDocument(ctx, content, documentID)
	if err != nil {
		return nil, err
	}
	result.Uploaded = true
	result.DocumentID = documentID

	if err := o.library.MarkClean(pushIDs); err != nil {
		return nil, fmt.Errorf("failed to mark pushed books clean: %w", err)
	}
	return result, nil
}

// credentialFailure clears the stored credential when it can no longer be used.
func (o *Orchestrator) credentialFailure(err error) error {
	switch failure.KindOf(err) {
	case failure.KindCredentialExpired:
		o.clearCredential()
		return err
	case failure.KindAuthRejected:
		return o.endSession(err)
	default:
		return err
	}
}

func (o *Orchestrator) endSession(cause error) error {
	o.clearCredential()
	if o.events != nil {
		o.events.LogAuth("session_expired", "Stored credential cleared after rejection", cause)
	}
	return failure.Wrap(failure.KindSessionExpired, "sync", cause)
}

func (o *Orchestrator) clearCredential() {
	if err := o.creds.Clear(); err != nil {
		o.logger.Error().Err(err).Msg("failed to clear credential")
	}
}

func (o *Orchestrator) finish(logger zerolog.Logger, runID uint, started time.Time, result *Result, err error) {
	elapsed := o.now().Sub(started)
	metrics.SyncRoundDuration.Observe(elapsed.Seconds())

	kind := ""
	if err != nil {
		kind = string(failure.KindOf(err))
	}
	metrics.SyncRounds.WithLabelValues(metrics.Outcome(kind)).Inc()

	outcome := syncruns.Outcome{ErrorKind: kind}
	if err != nil {
		outcome.Error = err.Error()
		logger.Warn().Err(err).Str("kind", kind).Dur("elapsed", elapsed).Msg("sync round failed")
	} else {
		metrics.SyncDecisions.WithLabelValues(string(merge.ActionPull)).Add(float64(result.Pulled))
		metrics.SyncDecisions.WithLabelValues(string(merge.ActionPush)).Add(float64(result.Pushed))
		metrics.SyncDecisions.WithLabelValues(string(merge.ActionNoop)).Add(float64(result.Unchanged))
		outcome.Pulled, outcome.Pushed, outcome.Unchanged, outcome.Uploaded = result.Pulled, result.Pushed, result.Unchanged, result.Uploaded
		logger.Info().
			Int("pulled", result.Pulled).
			Int("pushed", result.Pushed).
			Int("unchanged", result.Unchanged).
			Bool("uploaded", result.Uploaded).
			Dur("elapsed", elapsed).
			Msg("sync round completed")
	}

	if o.runs != nil && runID != 0 {
		if recErr := o.runs.Complete(runID, outcome); recErr != nil {
			logger.Warn().Err(recErr).Msg("failed to record sync run completion")
		}
	}

	if o.events != nil {
		action := "sync_round"
		description := fmt.Sprintf("Pulled %d, pushed %d, unchanged %d", outcome.Pulled, outcome.Pushed, outcome.Unchanged)
		if err != nil {
			action = "sync_round_failed"
			description = failure.KindOf(err).UserMessage()
		}
		o.events.LogSync(action, description, map[string]any{
			"pulled":   outcome.Pulled,
			"pushed":   outcome.Pushed,
			"uploaded": outcome.Uploaded,
		}, err)
	}
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
)

const recentRunsLimit = 10

// SyncController triggers sync rounds and reports their history.
type SyncController struct {
	syncer   SyncRunner
	runs     RunHistory
	schedule Schedule
	creds    CredentialStatus
	devices  func() string
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewSyncController creates a SyncController. schedule may be nil.
func NewSyncController(
	s SyncRunner,
	runs RunHistory,
	schedule Schedule,
	creds CredentialStatus,
	devices func() string,
	timeout time.Duration,
	logger zerolog.Logger,
) *SyncController {
	return &SyncController{
		syncer:   s,
		runs:     runs,
		schedule: schedule,
		creds:    creds,
		devices:  devices,
		timeout:  timeout,
		logger:   logger,
	}
}

// SyncStatusResponse is returned by GET /api/sync/status.
type SyncStatusResponse struct {
	InProgress     bool               `json:"in_progress"`
	NextRun        *time.Time         `json:"next_run,omitempty"`
	Credential     credential.Status  `json:"credential"`
	LastRun        *entities.SyncRun  `json:"last_run,omitempty"`
	LastSuccessful *entities.SyncRun  `json:"last_successful,omitempty"`
	Recent         []entities.SyncRun `json:"recent"`
}

// TriggerSync handles POST /api/sync
// Runs one round and returns its decisions. A round already in flight
// yields 409.
func (sc *SyncController) TriggerSync(c *gin.Context) {
	ctx := c.Request.Context()
	if sc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sc.timeout)
		defer cancel()
	}

	label := ""
	if sc.devices != nil {
		label = sc.devices()
	}

	result, err := sc.syncer.Sync(ctx, entities.SyncTriggerAPI, label)
	if err != nil {
		respondFailure(c, sc.logger, err, "sync")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStatus handles GET /api/sync/status
func (sc *SyncController) GetStatus(c *gin.Context) {
	resp := SyncStatusResponse{
		InProgress: sc.syncer.InProgress(),
		Recent:     []entities.SyncRun{},
	}

	if sc.schedule != nil {
		resp.NextRun = sc.schedule.NextRunTime()
	}

	if sc.creds != nil {
		status, err := sc.creds.Status()
		if err != nil {
			respondFailure(c, sc.logger, err, "credential status")
			return
		}
		resp.Credential = status
	}

	var err error
	if resp.LastRun, err = sc.runs.Latest(); err != nil {
		respondFailure(c, sc.logger, err, "latest sync run")
		return
	}
	if resp.LastSuccessful, err = sc.runs.LatestSuccessful(); err != nil {
		respondFailure(c, sc.logger, err, "latest successful sync run")
		return
	}
	recent, err := sc.runs.Recent(recentRunsLimit)
	if err != nil {
		respondFailure(c, sc.logger, err, "recent sync runs")
		return
	}
	if recent != nil {
		resp.Recent = recent
	}

	c.JSON(http.StatusOK, resp)
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/credential"
	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
	"github.com/mrlokans/lumina/internal/merge"
	"github.com/mrlokans/lumina/internal/syncer"
)

type fakeSyncRunner struct {
	result      *syncer.Result
	err         error
	inProgress  bool
	gotTrigger  entities.SyncTrigger
	gotLabel    string
	hadDeadline bool
}

func (f *fakeSyncRunner) Sync(ctx context.Context, trigger entities.SyncTrigger, label string) (*syncer.Result, error) {
	f.gotTrigger = trigger
	f.gotLabel = label
	_, f.hadDeadline = ctx.Deadline()
	return f.result, f.err
}

func (f *fakeSyncRunner) InProgress() bool { return f.inProgress }

type fakeRuns struct {
	runs []entities.SyncRun
}

func (f *fakeRuns) Latest() (*entities.SyncRun, error) {
	if len(f.runs) == 0 {
		return nil, nil
	}
	return &f.runs[0], nil
}

func (f *fakeRuns) LatestSuccessful() (*entities.SyncRun, error) {
	for i := range f.runs {
		if f.runs[i].Status == entities.SyncStatusCompleted {
			return &f.runs[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRuns) Recent(int) ([]entities.SyncRun, error) { return f.runs, nil }

type fixedSchedule time.Time

func (s fixedSchedule) NextRunTime() *time.Time {
	t := time.Time(s)
	return &t
}

type fakeCredStatus credential.Status

func (s fakeCredStatus) Status() (credential.Status, error) { return credential.Status(s), nil }

func syncRouter(runner SyncRunner, runs RunHistory, schedule Schedule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sc := NewSyncController(
		runner,
		runs,
		schedule,
		fakeCredStatus{Connected: true, AccountID: "reader@example.com", CanRefresh: true},
		func() string { return "kitchen-tablet" },
		time.Minute,
		zerolog.Nop(),
	)
	router.POST("/api/sync", sc.TriggerSync)
	router.GET("/api/sync/status", sc.GetStatus)
	return router
}

func TestSyncController_TriggerSync(t *testing.T) {
	runner := &fakeSyncRunner{result: &syncer.Result{
		Decisions: []merge.Decision{{BookID: "a", Action: merge.ActionPush}},
		Uploaded:  true,
		Pushed:    1,
	}}
	router := syncRouter(runner, &fakeRuns{}, nil)

	w := doRequest(router, "POST", "/api/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.SyncTriggerAPI, runner.gotTrigger)
	assert.Equal(t, "kitchen-tablet", runner.gotLabel)
	assert.True(t, runner.hadDeadline)

	var result syncer.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Uploaded)
	assert.Equal(t, 1, result.Pushed)
}

func TestSyncController_TriggerSyncFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		reauth bool
	}{
		{"round in flight", failure.Newf(failure.KindSyncInProgress, "sync", "busy"), http.StatusConflict, false},
		{"session expired", failure.Newf(failure.KindSessionExpired, "sync", "revoked"), http.StatusUnauthorized, true},
		{"no credential", failure.Newf(failure.KindNoCredential, "sync", "none"), http.StatusUnauthorized, true},
		{"offline", failure.Newf(failure.KindNetwork, "sync", "offline"), http.StatusServiceUnavailable, false},
		{"remote error", failure.Remote("drive.upload", 503, "backend"), http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := syncRouter(&fakeSyncRunner{err: tt.err}, &fakeRuns{}, nil)
			w := doRequest(router, "POST", "/api/sync", nil)
			assert.Equal(t, tt.status, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(failure.KindOf(tt.err)), resp.Code)
			assert.Equal(t, tt.reauth, resp.Reauth)
		})
	}
}

func TestSyncController_GetStatus(t *testing.T) {
	next := time.Date(2024, 7, 1, 9, 15, 0, 0, time.UTC)
	runs := &fakeRuns{runs: []entities.SyncRun{
		{ID: 2, Status: entities.SyncStatusFailed, ErrorKind: "network_failure"},
		{ID: 1, Status: entities.SyncStatusCompleted, Pushed: 3},
	}}
	router := syncRouter(&fakeSyncRunner{inProgress: true}, runs, fixedSchedule(next))

	w := doRequest(router, "GET", "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SyncStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.InProgress)
	require.NotNil(t, resp.NextRun)
	assert.True(t, next.Equal(*resp.NextRun))
	assert.True(t, resp.Credential.Connected)
	assert.Equal(t, uint(2), resp.LastRun.ID)
	assert.Equal(t, uint(1), resp.LastSuccessful.ID)
	assert.Len(t, resp.Recent, 2)
}

func TestSyncController_GetStatusWithoutHistory(t *testing.T) {
	router := syncRouter(&fakeSyncRunner{}, &fakeRuns{}, nil)

	w := doRequest(router, "GET", "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp SyncStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.LastRun)
	assert.Nil(t, resp.NextRun)
	assert.Empty(t, resp.Recent)
}

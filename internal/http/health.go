package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/lumina/internal/database"
)

const (
	healthy       = "healthy"
	unhealthy     = "unhealthy"
	notConfigured = "not configured"

	healthCheckTimeout = 2 * time.Second
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// probe reports a short state string, or an error that makes the service
// unhealthy. A nil probe means the dependency is not wired.
type probe func(ctx context.Context) (string, error)

type HealthController struct {
	probes  map[string]probe
	version string
}

func NewHealthController(db *database.Database, blobs BlobStats, version string) *HealthController {
	h := &HealthController{
		probes:  map[string]probe{"database": nil, "blob_cache": nil},
		version: version,
	}
	if db != nil {
		h.probes["database"] = pingDatabase(db)
	}
	if blobs != nil {
		h.probes["blob_cache"] = countBlobs(blobs)
	}
	return h
}

func pingDatabase(db *database.Database) probe {
	return func(ctx context.Context) (string, error) {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return "", err
		}
		return "ok", sqlDB.PingContext(ctx)
	}
}

func countBlobs(blobs BlobStats) probe {
	return func(context.Context) (string, error) {
		n, _, err := blobs.Stats()
		return fmt.Sprintf("ok (%d books)", n), err
	}
}

// Status handles GET /health. Any failing probe turns the reply into a 503.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  healthy,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  make(map[string]string, len(h.probes)),
	}
	for name, run := range h.probes {
		if run == nil {
			resp.Checks[name] = notConfigured
			continue
		}
		state, err := run(ctx)
		if err != nil {
			resp.Checks[name] = "error: " + err.Error()
			resp.Status = unhealthy
			continue
		}
		resp.Checks[name] = state
	}

	code := http.StatusOK
	if resp.Status != healthy {
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, resp)
}

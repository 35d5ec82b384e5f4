package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/entities"
)

type AuditController struct {
	audit  AuditLog
	logger zerolog.Logger
}

func NewAuditController(audit AuditLog, logger zerolog.Logger) *AuditController {
	return &AuditController{
		audit:  audit,
		logger: logger,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=sync&limit=25&offset=0
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c, 25, 100)
	eventType := entities.AuditEventType(c.Query("type"))

	events, total, err := ac.audit.GetEvents(eventType, limit, offset)
	if err != nil {
		respondFailure(c, ac.logger, err, "audit events")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}

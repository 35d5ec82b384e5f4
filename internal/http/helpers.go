package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/failure"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`   // failure kind
	Reauth bool   `json:"reauth,omitempty"` // the user must connect Drive again
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(failure.KindInvalidInput)})
}

// respondFailure maps err to a status code and a short user-facing message.
// Unclassified errors are logged and hidden behind a 500.
func respondFailure(c *gin.Context, logger zerolog.Logger, err error, context string) {
	kind := failure.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("context", context).Str("kind", string(kind)).Msg("request failed")
	}

	message := kind.UserMessage()
	if kind == failure.KindNotFound || kind == failure.KindInvalidInput {
		var fe *failure.Error
		if errors.As(err, &fe) && fe.Message != "" {
			message = fe.Message
		}
	}

	c.JSON(status, ErrorResponse{
		Error:  message,
		Code:   string(kind),
		Reauth: kind.RequiresReauth() || kind == failure.KindAuthRejected,
	})
}

func statusForKind(kind failure.Kind) int {
	switch kind {
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindInvalidInput:
		return http.StatusBadRequest
	case failure.KindSyncInProgress:
		return http.StatusConflict
	case failure.KindNoCredential, failure.KindCredentialExpired,
		failure.KindSessionExpired, failure.KindAuthRejected:
		return http.StatusUnauthorized
	case failure.KindNetwork:
		return http.StatusServiceUnavailable
	case failure.KindRemoteStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// --- Success Response Helpers ---

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parsePagination reads limit and offset query parameters with bounds.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"
)

const taskLookupTimeout = 5 * time.Second

var taskStatusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending:  "pending",
	backlite.TaskStatusRunning:  "running",
	backlite.TaskStatusSuccess:  "success",
	backlite.TaskStatusFailure:  "failure",
	backlite.TaskStatusNotFound: "not_found",
}

// TaskStatusResponse describes a queued download.
type TaskStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// TasksController lets clients poll downloads accepted with 202.
type TasksController struct {
	queue  DownloadQueue
	logger zerolog.Logger
}

func NewTasksController(queue DownloadQueue, logger zerolog.Logger) *TasksController {
	return &TasksController{queue: queue, logger: logger}
}

// GetTaskStatus handles GET /api/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), taskLookupTimeout)
	defer cancel()

	status, err := tc.queue.Status(ctx, id)
	if err != nil {
		respondFailure(c, tc.logger, err, "task status")
		return
	}

	code := http.StatusOK
	if status == backlite.TaskStatusNotFound {
		code = http.StatusNotFound
	}
	c.JSON(code, TaskStatusResponse{ID: id, Status: taskStatusToString(status)})
}

func taskStatusToString(status backlite.TaskStatus) string {
	if name, ok := taskStatusNames[status]; ok {
		return name
	}
	return "unknown"
}

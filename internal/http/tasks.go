package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue TaskQueue
	libs  LibraryStore
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue, libs LibraryStore) *TasksController {
	return &TasksController{queue: queue, libs: libs}
}

// TaskTypeInfo describes an available task type.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

var taskTypes = []TaskTypeInfo{
	{
		Type:        string(entities.JobTypeImportDirectory),
		Description: "Import every EPUB below a directory",
		Queue:       tasks.ImportDirectoryTask{}.Config().Name,
	},
	{
		Type:        string(entities.JobTypeSyncMetadata),
		Description: "Write every catalog record back into its archive",
		Queue:       tasks.SyncMetadataTask{}.Config().Name,
	},
	{
		Type:        string(entities.JobTypeDeleteBooks),
		Description: "Delete a set of books",
		Queue:       tasks.DeleteBooksTask{}.Config().Name,
	},
	{
		Type:        "enrich_book",
		Description: "Fill a book's record from the metadata providers",
		Queue:       tasks.EnrichBookTask{}.Config().Name,
	},
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": taskTypes,
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTaskRequest is the request body for running a task. LibraryID
// defaults to the selected library.
type RunTaskRequest struct {
	LibraryID string `json:"library_id,omitempty"`
	Dir       string `json:"dir,omitempty"`
	BookID    uint   `json:"book_id,omitempty"`
	BookIDs   []uint `json:"book_ids,omitempty"`
}

// RunTask handles POST /api/tasks/:type/run
// Enqueues a task of the specified type.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	if req.LibraryID == "" {
		lib, err := tc.libs.Selected()
		if err != nil {
			respondLibraryError(c, err, "select library")
			return
		}
		req.LibraryID = lib.ID
	}

	var task backlite.Task
	switch taskType {
	case string(entities.JobTypeImportDirectory):
		if req.Dir == "" {
			respondBadRequest(c, "dir is required for import_directory task")
			return
		}
		task = tasks.ImportDirectoryTask{LibraryID: req.LibraryID, Dir: req.Dir}

	case string(entities.JobTypeSyncMetadata):
		task = tasks.SyncMetadataTask{LibraryID: req.LibraryID}

	case string(entities.JobTypeDeleteBooks):
		if len(req.BookIDs) == 0 {
			respondBadRequest(c, "book_ids is required for delete_books task")
			return
		}
		task = tasks.DeleteBooksTask{LibraryID: req.LibraryID, BookIDs: req.BookIDs}

	case "enrich_book":
		if req.BookID == 0 {
			respondBadRequest(c, "book_id is required for enrich_book task")
			return
		}
		task = tasks.EnrichBookTask{LibraryID: req.LibraryID, BookID: req.BookID}

	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	id, err := tc.queue.Enqueue(task)
	if errors.Is(err, tasks.ErrQueueNotRegistered) {
		respondError(c, http.StatusServiceUnavailable, "task_unavailable", "task type "+taskType+" is not enabled")
		return
	}
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	respondAccepted(c, "task enqueued", gin.H{
		"task_id":    id,
		"type":       taskType,
		"library_id": req.LibraryID,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/database/jobs"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var knownJobTypes = map[entities.JobType]bool{
	entities.JobTypeImportDirectory: true,
	entities.JobTypeSyncMetadata:    true,
	entities.JobTypeDeleteBooks:     true,
	entities.JobTypeInboxImport:     true,
}

// JobsController reports bulk job progress of the selected library.
type JobsController struct {
	libs LibraryStore
}

func NewJobsController(libs LibraryStore) *JobsController {
	return &JobsController{libs: libs}
}

// JobProgressResponse is a job_progress row with its completion percentage.
type JobProgressResponse struct {
	entities.JobProgress
	Percent float64 `json:"percent"`
}

// GetProgress handles GET /api/jobs/:type
func (jc *JobsController) GetProgress(c *gin.Context) {
	jobType := entities.JobType(c.Param("type"))
	if !knownJobTypes[jobType] {
		respondBadRequest(c, "unknown job type: "+string(jobType))
		return
	}

	lib, err := jc.libs.Selected()
	if err != nil {
		respondLibraryError(c, err, "select library")
		return
	}
	db, err := jc.libs.Database(lib.ID)
	if err != nil {
		respondLibraryError(c, err, "open catalog")
		return
	}

	progress, err := jobs.NewRepository(db.DB, jobType).GetProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "job")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get job progress")
		return
	}

	c.JSON(http.StatusOK, JobProgressResponse{JobProgress: *progress, Percent: progress.Percent()})
}

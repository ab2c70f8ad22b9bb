package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/database/books"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Library string            `json:"library,omitempty"`
	Books   *int64            `json:"books,omitempty"`
	Checks  map[string]string `json:"checks"`
}

type HealthController struct {
	libs    LibraryStore
	version string
}

func NewHealthController(libs LibraryStore, version string) *HealthController {
	return &HealthController{
		libs:    libs,
		version: version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"
	var libraryName string
	var bookCount *int64

	// Check the selected library's catalog
	if h.libs == nil {
		checks["database"] = "not configured"
	} else if lib, err := h.libs.Selected(); err != nil {
		checks["database"] = "no library selected"
	} else {
		libraryName = lib.Name
		db, err := h.libs.Database(lib.ID)
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := db.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if count, err := books.NewRepository(db.DB).Count(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
			bookCount = &count
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Library: libraryName,
		Books:   bookCount,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

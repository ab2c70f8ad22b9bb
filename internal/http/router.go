package http

import (
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadSize bounds archive and cover uploads.
const DefaultMaxUploadSize = 200 << 20

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}
	router.MaxMultipartMemory = 32 << 20

	health := NewHealthController(cfg.Libraries, cfg.Version)
	librariesController := NewLibrariesController(cfg.Libraries)
	booksController := NewBooksController(cfg.Libraries, maxUpload)
	coversController := NewCoversController(cfg.Libraries)
	jobsController := NewJobsController(cfg.Libraries)

	router.GET("/health", health.Status)

	api := router.Group("/api")
	{
		api.GET("/libraries", librariesController.List)
		api.POST("/libraries", librariesController.Create)
		api.POST("/libraries/:id/select", librariesController.Select)

		api.GET("/books", booksController.List)
		api.POST("/books/import", booksController.Import)
		api.GET("/books/:id", booksController.Get)
		api.PUT("/books/:id", booksController.Update)
		api.PUT("/books/:id/cover", booksController.UpdateCover)
		api.DELETE("/books/:id", booksController.Delete)
		api.POST("/books/:id/sync", booksController.Sync)
		api.GET("/books/:id/download", booksController.Download)
		api.GET("/books/:id/cover", coversController.GetCover)
		api.GET("/books/:id/thumbnail", coversController.GetThumbnail)
		api.GET("/authors", booksController.Authors)
		api.GET("/series", booksController.Series)

		api.GET("/jobs/:type", jobsController.GetProgress)
	}

	if cfg.Enricher != nil {
		metadataController := NewMetadataController(cfg.Libraries, cfg.Enricher)
		api.GET("/books/:id/candidates", metadataController.Candidates)
		api.POST("/books/:id/enrich", metadataController.Enrich)
	}

	if cfg.Tasks != nil {
		tasksController := NewTasksController(cfg.Tasks, cfg.Libraries)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.POST("/tasks/:type/run", tasksController.RunTask)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

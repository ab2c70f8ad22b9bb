package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LibrariesController manages the registered libraries.
type LibrariesController struct {
	libs LibraryStore
}

func NewLibrariesController(libs LibraryStore) *LibrariesController {
	return &LibrariesController{libs: libs}
}

// CreateLibraryRequest is the request body for registering a library.
type CreateLibraryRequest struct {
	Name string `json:"name" binding:"required"`
	Path string `json:"path" binding:"required"`
}

// List handles GET /api/libraries
func (lc *LibrariesController) List(c *gin.Context) {
	var selectedID string
	if lib, err := lc.libs.Selected(); err == nil {
		selectedID = lib.ID
	}
	c.JSON(http.StatusOK, gin.H{
		"libraries":           lc.libs.Libraries(),
		"selected_library_id": selectedID,
	})
}

// Create handles POST /api/libraries
// The new library becomes the selected one.
func (lc *LibrariesController) Create(c *gin.Context) {
	var req CreateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and path are required")
		return
	}

	lib, err := lc.libs.Add(req.Name, req.Path)
	if err != nil {
		respondLibraryError(c, err, "add library")
		return
	}
	respondCreated(c, lib)
}

// Select handles POST /api/libraries/:id/select
func (lc *LibrariesController) Select(c *gin.Context) {
	if err := lc.libs.Select(c.Param("id")); err != nil {
		respondLibraryError(c, err, "select library")
		return
	}
	respondSuccess(c, "library selected")
}

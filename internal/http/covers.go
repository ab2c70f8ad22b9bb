package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/layout"
)

// CoversController serves the cover files stored next to each archive.
type CoversController struct {
	libs LibraryStore
}

// NewCoversController creates a new CoversController.
func NewCoversController(libs LibraryStore) *CoversController {
	return &CoversController{libs: libs}
}

// GetCover serves a book's cover.jpg.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	cc.serve(c, "cover", layout.BookCover)
}

// GetThumbnail serves a book's thumb.jpg.
// GET /api/books/:id/thumbnail
func (cc *CoversController) GetThumbnail(c *gin.Context) {
	cc.serve(c, "thumbnail", layout.BookThumbnail)
}

func (cc *CoversController) serve(c *gin.Context, resource string, locate func(entities.Book) string) {
	_, store, ok := selectedLibrary(c, cc.libs)
	if !ok {
		return
	}
	book, ok := loadBook(c, store)
	if !ok {
		return
	}

	path := locate(*book)
	if path == "" {
		respondNotFound(c, resource)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.File(path)
}

package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/epub"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/registry"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: "not_found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondLibraryError maps library, registry and container errors to a
// status code. Catalog and filesystem failures stay opaque.
func respondLibraryError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, library.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, registry.ErrUnknownLibrary):
		respondNotFound(c, "library")
	case errors.Is(err, registry.ErrNoLibrarySelected):
		respondError(c, http.StatusConflict, "no_library", err.Error())
	case errors.Is(err, registry.ErrDuplicateLibrary):
		respondError(c, http.StatusConflict, "duplicate_library", err.Error())
	case errors.Is(err, library.ErrInvalidBook):
		respondError(c, http.StatusBadRequest, "invalid_book", err.Error())
	case errors.Is(err, epub.ErrFormat):
		respondError(c, http.StatusUnprocessableEntity, "format_error", err.Error())
	case errors.Is(err, library.ErrCoverProcessing):
		respondError(c, http.StatusUnprocessableEntity, "cover_error", err.Error())
	case errors.Is(err, library.ErrPathConflict):
		respondError(c, http.StatusConflict, "path_conflict", err.Error())
	case errors.Is(err, library.ErrConsistency):
		log.Printf("Consistency error (%s): %v", context, err)
		respondError(c, http.StatusConflict, "consistency_error", err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

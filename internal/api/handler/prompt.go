package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/promptvault/internal/service"
)

// PromptHandler serves the read-only gallery endpoints.
type PromptHandler struct {
	gallery *service.GalleryService
}

// NewPromptHandler creates a new prompt handler.
func NewPromptHandler(gallery *service.GalleryService) *PromptHandler {
	return &PromptHandler{gallery: gallery}
}

// ListPrompts handles GET /api/v1/prompts.
// Parameters:
//   - c: Gin request context; reads q, filter, page and page_size.
// Returns: none (writes JSON response).
func (h *PromptHandler) ListPrompts(c *gin.Context) {
	page := h.gallery.Query(service.PromptQuery{
		Query:    c.Query("q"),
		Filter:   c.DefaultQuery("filter", "all"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", service.DefaultPageSize),
	})
	c.JSON(http.StatusOK, page)
}

// GetPrompt handles GET /api/v1/prompts/:id.
func (h *PromptHandler) GetPrompt(c *gin.Context) {
	rec, ok := h.gallery.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ListTags handles GET /api/v1/tags.
func (h *PromptHandler) ListTags(c *gin.Context) {
	tags := h.gallery.Tags(queryInt(c, "limit", service.DefaultTopTags))
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// GetStats handles GET /api/v1/stats.
func (h *PromptHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.gallery.Stats())
}

// queryInt reads an integer query parameter; malformed values use def.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

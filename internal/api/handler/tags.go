package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/shotrank/internal/api/middleware"
	"github.com/timmy/shotrank/internal/domain"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/service"
)

// ImageTagger assigns and reads concept tags for one image.
type ImageTagger interface {
	TagImage(ctx context.Context, imageID string) ([]domain.ImageTag, error)
	GetTags(ctx context.Context, imageID string) ([]domain.ImageTag, error)
}

// TagHandler handles image tag endpoints.
type TagHandler struct {
	tagger ImageTagger
}

// NewTagHandler creates a new tag handler.
func NewTagHandler(tagger ImageTagger) *TagHandler {
	return &TagHandler{tagger: tagger}
}

// GetTags handles GET /api/v1/images/:id/tags.
func (h *TagHandler) GetTags(c *gin.Context) {
	h.respond(c, h.tagger.GetTags)
}

// TagImage handles POST /api/v1/images/:id/tags and re-tags the image.
func (h *TagHandler) TagImage(c *gin.Context) {
	h.respond(c, h.tagger.TagImage)
}

func (h *TagHandler) respond(c *gin.Context, fn func(context.Context, string) ([]domain.ImageTag, error)) {
	imageID := c.Param("id")

	tags, err := fn(c.Request.Context(), imageID)
	switch {
	case errors.Is(err, service.ErrImageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	case errors.Is(err, service.ErrNoConcepts):
		c.JSON(http.StatusConflict, gin.H{"error": "No embedded concepts available; refresh concepts first"})
		return
	case err != nil:
		middleware.GetLogger(c).WithError(err).Error("Tag request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to load tags: " + err.Error(),
			"request_id": logger.RequestID(c.Request.Context()),
		})
		return
	}

	if tags == nil {
		tags = []domain.ImageTag{}
	}
	c.JSON(http.StatusOK, gin.H{
		"image_id": imageID,
		"tags":     tags,
		"total":    len(tags),
	})
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/shotrank/internal/domain"
)

// ConceptLister lists the tagging vocabulary.
type ConceptLister interface {
	ListConcepts(ctx context.Context) ([]domain.Concept, error)
}

// ConceptHandler handles concept vocabulary endpoints.
type ConceptHandler struct {
	concepts ConceptLister
}

// NewConceptHandler creates a new concept handler.
func NewConceptHandler(concepts ConceptLister) *ConceptHandler {
	return &ConceptHandler{concepts: concepts}
}

type conceptView struct {
	domain.Concept
	Embedded bool `json:"embedded"`
}

// ListConcepts handles GET /api/v1/concepts.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConceptHandler) ListConcepts(c *gin.Context) {
	concepts, err := h.concepts.ListConcepts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list concepts: " + err.Error(),
		})
		return
	}

	views := make([]conceptView, 0, len(concepts))
	for _, concept := range concepts {
		views = append(views, conceptView{Concept: concept, Embedded: len(concept.Embedding) > 0})
	}

	c.JSON(http.StatusOK, gin.H{
		"concepts": views,
		"total":    len(views),
	})
}

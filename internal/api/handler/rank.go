package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/shotrank/internal/api/middleware"
	"github.com/timmy/shotrank/internal/logger"
	"github.com/timmy/shotrank/internal/service"
)

// maxTopK caps the number of results a single request may ask for.
const maxTopK = 500

// Ranker ranks screenshots for a query.
type Ranker interface {
	RankImages(ctx context.Context, req service.RankRequest) (*service.RankResponse, error)
}

// RankHandler handles ranking endpoints.
type RankHandler struct {
	ranker Ranker
}

// NewRankHandler creates a new rank handler.
// Parameters:
//   - ranker: ranking service.
// Returns:
//   - *RankHandler: initialized handler.
func NewRankHandler(ranker Ranker) *RankHandler {
	return &RankHandler{ranker: ranker}
}

// Rank handles POST /api/v1/rank.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RankHandler) Rank(c *gin.Context) {
	var req service.RankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	h.rank(c, req)
}

// RankGet handles GET /api/v1/rank for simple queries.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RankHandler) RankGet(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	req := service.RankRequest{
		Query:    query,
		Category: c.Query("category"),
	}
	if topK := c.Query("top_k"); topK != "" {
		n, err := strconv.Atoi(topK)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Query parameter 'top_k' must be an integer",
			})
			return
		}
		req.TopK = n
	}

	h.rank(c, req)
}

func (h *RankHandler) rank(c *gin.Context, req service.RankRequest) {
	if req.TopK < 0 || req.TopK > maxTopK {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "top_k must be between 0 and " + strconv.Itoa(maxTopK),
		})
		return
	}

	result, err := h.ranker.RankImages(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.GetLogger(c).WithError(err).Error("Ranking failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Ranking failed: " + err.Error(),
			"request_id": logger.RequestID(c.Request.Context()),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

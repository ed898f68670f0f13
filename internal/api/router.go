package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/shotrank/internal/api/handler"
	"github.com/timmy/shotrank/internal/api/middleware"
	"github.com/timmy/shotrank/internal/config"
)

// Services bundles what the HTTP layer depends on. Database is optional and
// only used by the health check.
type Services struct {
	Ranker         handler.Ranker
	Tagger         handler.ImageTagger
	Concepts       handler.ConceptLister
	Database       handler.Pinger
	ScoringVersion string
}

// SetupRouter builds the engine: recovery, request logging and CORS, then
// the health check and the /api/v1 routes.
func SetupRouter(services Services, server config.ServerConfig) *gin.Engine {
	switch server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(), middleware.CORS(server.CORS))

	r.GET("/health", handler.NewHealthHandler(services.ScoringVersion, services.Database).Health)

	rank := handler.NewRankHandler(services.Ranker)
	tags := handler.NewTagHandler(services.Tagger)
	concepts := handler.NewConceptHandler(services.Concepts)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/rank", rank.Rank)
		v1.GET("/rank", rank.RankGet)

		// POST re-tags the image from its stored embedding.
		v1.GET("/images/:id/tags", tags.GetTags)
		v1.POST("/images/:id/tags", tags.TagImage)

		v1.GET("/concepts", concepts.ListConcepts)
	}

	return r
}

// Package api is the HTTP control surface for a studio session.
package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/cbegin/loopgen-go/internal/artifact"
	"github.com/cbegin/loopgen-go/internal/studio"
)

// SetupRouter wires the routes. exports may be nil when rendered files are
// written to disk instead of served.
func SetupRouter(s *studio.Studio, exports *artifact.MemoryStore, logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Default()
	}
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(RecoverWithSentry(logger))
	router.Use(SentryMiddleware())
	router.Use(RequestTracking(logger))

	h := &Handler{studio: s, exports: exports}
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/state", h.State)
		api.POST("/generate", h.Generate)
		api.POST("/regenerate", h.Regenerate)
		api.POST("/play", h.Play)
		api.POST("/stop", h.Stop)
		api.POST("/toggle", h.Toggle)
		api.POST("/tracks/:id/mute", h.Mute)
		api.POST("/export", h.Export)
		api.GET("/loop.mid", h.MIDI)
	}
	if exports != nil {
		router.GET("/exports/:id/:name", h.ExportFile)
	}
	return router
}

// Package sink is a local stand-in for the ingestion service. It accepts the
// same requests as the real endpoint and keeps them in memory, which makes
// it useful for development and for end-to-end tests of the client.
package sink

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// NewRouter wires public endpoints and token-guarded APIs.
// Public: /health
// Authenticated: /v1/events, /v1/stats
func NewRouter(tokens []string, rec *Recorder, logger *log.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = log.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	allowed := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		allowed[t] = struct{}{}
	}

	authGroup := r.Group("/")
	authGroup.Use(TokenMiddleware(allowed))

	RegisterEventRoutes(authGroup, rec, logger)
	RegisterStatsRoutes(authGroup, rec)

	return r
}

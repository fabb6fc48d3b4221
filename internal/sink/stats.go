package sink

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

// RegisterStatsRoutes registers the counting endpoint.
//
// GET /v1/stats?type=...&name=...
// - Requires X-Airtake-Token
// - Returns the number of held events of that type (and name, if given)
func RegisterStatsRoutes(r gin.IRoutes, rec *Recorder) {
	r.GET("/v1/stats", func(c *gin.Context) {
		eventType := models.EventType(c.Query("type"))
		name := c.Query("name")

		if !eventType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be track, identify or auto_track"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"type":  eventType,
			"name":  name,
			"count": rec.Count(eventType, name),
		})
	})
}

package sink

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

// Snapshots make events large, so the limit is generous.
const maxEventSize = 8 << 20

// EventResponse is returned by POST /v1/events.
// Duplicate indicates the event id was already recorded.
type EventResponse struct {
	ID        string `json:"id"`
	Duplicate bool   `json:"duplicate"`
}

func validateEvent(ev models.Event) error {
	if !ev.Type.Valid() {
		return errors.New("unknown event type")
	}
	if ev.ID == "" {
		return errors.New("id required")
	}
	if ev.ActorID.IsZero() {
		return errors.New("actorId required")
	}
	if ev.Type == models.TypeTrack && ev.Name == "" {
		return errors.New("name required for track events")
	}
	return nil
}

// RegisterEventRoutes registers the ingestion endpoint.
//
// POST /v1/events
// - Requires X-Airtake-Token
// - Idempotent: an id seen before is acknowledged but not recorded again
//
// GET /v1/events?limit=N
// - Returns the most recent events, oldest first
func RegisterEventRoutes(r gin.IRoutes, rec *Recorder, logger *log.Logger) {
	r.POST(models.EventsPath, func(c *gin.Context) {
		var ev models.Event
		dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request.Body, maxEventSize))
		if err := dec.Decode(&ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if err := validateEvent(ev); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		inserted := rec.Add(Received{
			Event:           ev,
			Token:           Token(c),
			ClientInitiated: c.GetHeader(models.HeaderClientInitiated) == "1",
			ReceivedAt:      time.Now().UTC(),
		})

		logger.WithFields(log.Fields{
			"event_id":   ev.ID,
			"event_type": ev.Type,
			"name":       ev.Name,
			"actor_id":   ev.ActorID.String(),
			"duplicate":  !inserted,
		}).Info("sink: event received")

		// 202 for new events, 200 for duplicates.
		status := http.StatusAccepted
		if !inserted {
			status = http.StatusOK
		}
		c.JSON(status, EventResponse{ID: ev.ID, Duplicate: !inserted})
	})

	r.GET(models.EventsPath, func(c *gin.Context) {
		events := rec.Events()
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			if n < len(events) {
				events = events[len(events)-n:]
			}
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})
}

package sink

import (
	"sync"
	"time"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

// Received is an event as it arrived at the sink.
type Received struct {
	Event           models.Event `json:"event"`
	Token           string       `json:"token"`
	ClientInitiated bool         `json:"clientInitiated"`
	ReceivedAt      time.Time    `json:"receivedAt"`
}

// Recorder keeps the most recent events in memory, oldest first.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []Received
	seen   map[string]struct{}
}

// NewRecorder keeps at most limit events. A non-positive limit means 1000.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1000
	}
	return &Recorder{limit: limit, seen: map[string]struct{}{}}
}

// Add stores rec and returns inserted=false when an event with the same id
// is already held.
func (r *Recorder) Add(rec Received) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.seen[rec.Event.ID]; dup {
		return false
	}
	if len(r.events) == r.limit {
		delete(r.seen, r.events[0].Event.ID)
		r.events = r.events[1:]
	}
	r.events = append(r.events, rec)
	r.seen[rec.Event.ID] = struct{}{}
	return true
}

// Events returns a copy of the held events.
func (r *Recorder) Events() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received(nil), r.events...)
}

// Count returns how many held events have type t and, when name is not
// empty, that name.
func (r *Recorder) Count(t models.EventType, name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range r.events {
		if rec.Event.Type != t {
			continue
		}
		if name != "" && rec.Event.Name != name {
			continue
		}
		n++
	}
	return n
}

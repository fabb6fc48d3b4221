package models

import (
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/google/uuid"
)

// Wire contract shared by the client transport and the local sink.
const (
	EventsPath = "/v1/events"

	HeaderToken           = "X-Airtake-Token"
	HeaderClientInitiated = "X-Airtake-CI"
)

// Reserved property keys owned by the library.
const (
	PropActorID  = "$actor_id"
	PropDeviceID = "$device_id"

	PropLibrary      = "$library"
	PropCurrentURL   = "$current_url"
	PropReferrer     = "$referrer"
	PropScreenWidth  = "$screen_width"
	PropScreenHeight = "$screen_height"
	PropOccurredAt   = "$occurred_at"
)

// EventType is the kind of record posted to the ingestion endpoint.
type EventType string

const (
	TypeTrack     EventType = "track"
	TypeIdentify  EventType = "identify"
	TypeAutoTrack EventType = "auto_track"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case TypeTrack, TypeIdentify, TypeAutoTrack:
		return true
	}
	return false
}

// Event is the JSON body of POST /v1/events.
// It is built once per call and transmitted at most once.
type Event struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Timestamp int64     `json:"timestamp"`
	ActorID   ActorID   `json:"actorId"`
	DeviceID  string    `json:"deviceId,omitempty"`
	Name      string    `json:"name,omitempty"`
	Target    *string   `json:"target,omitempty"`
	Document  string    `json:"document,omitempty"`
	Props     Props     `json:"props"`
}

// Identity is the resolved subject of an event.
type Identity struct {
	ActorID  ActorID
	DeviceID string
}

// Subject returns the actor id when bound, otherwise the device id.
func (i Identity) Subject() ActorID {
	if !i.ActorID.IsZero() {
		return i.ActorID
	}
	return StringID(i.DeviceID)
}

const eventIDSize = 32

// NewEventID returns a 32 character random id using the nanoid alphabet.
func NewEventID() string {
	id, err := gonanoid.New(eventIDSize)
	if err == nil {
		return id
	}
	// uuid without dashes is also 32 characters.
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

package airtake

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PratikDhanave/airtake-go/internal/enrich"
	"github.com/PratikDhanave/airtake-go/internal/identity"
	"github.com/PratikDhanave/airtake-go/internal/models"
)

type (
	// Props is the property bag of an event. Values must be scalars or
	// slices of scalars; anything else is dropped before sending.
	Props = models.Props
	// ActorID is a string or integer actor identifier.
	ActorID = models.ActorID
	// Event is the record posted to the ingestion endpoint.
	Event = models.Event

	// Persistence is the key/value capability identity is stored in.
	Persistence = identity.Persistence

	// MemoryPersistence keeps identity in process memory.
	MemoryPersistence = identity.Memory
	// SQLitePersistence keeps identity in a local SQLite file.
	SQLitePersistence = identity.SQLite
	// RedisPersistence keeps identity in Redis under a namespace.
	RedisPersistence = identity.Redis
	// PostgresPersistence keeps identity in a Postgres table under a namespace.
	PostgresPersistence = identity.Postgres

	// Environment describes the current page or screen.
	Environment = enrich.Environment
	// StaticEnvironment is an Environment with fixed values.
	StaticEnvironment = enrich.Static
)

// Reserved property keys.
const (
	PropActorID  = models.PropActorID
	PropDeviceID = models.PropDeviceID
)

// StringID returns a string actor id.
func StringID(s string) ActorID { return models.StringID(s) }

// IntID returns an integer actor id.
func IntID(n int64) ActorID { return models.IntID(n) }

// NewMemoryPersistence keeps identity for the life of the process.
func NewMemoryPersistence() *MemoryPersistence { return identity.NewMemory() }

// NewSQLitePersistence stores identity in a SQLite file at path.
func NewSQLitePersistence(path string) (*SQLitePersistence, error) { return identity.NewSQLite(path) }

// NewRedisPersistence stores identity under namespace in Redis. A zero ttl
// keeps keys forever.
func NewRedisPersistence(client *redis.Client, namespace string, ttl time.Duration) *RedisPersistence {
	return identity.NewRedis(client, namespace, ttl)
}

// NewPostgresPersistence stores identity under namespace in Postgres. Call
// EnsureSchema once before use.
func NewPostgresPersistence(dbURL, namespace string) (*PostgresPersistence, error) {
	return identity.NewPostgres(dbURL, namespace)
}

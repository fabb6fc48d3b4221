package identity

import (
	"context"
	"sync"
)

// Keys under which the identity is persisted. Values are plain strings.
const (
	ActorIDKey  = "airtake_actor_id"
	DeviceIDKey = "airtake_device_id"
)

// Persistence is the key-value capability supplied by the host. Every
// implementation is best-effort: the Store logs its errors and keeps going
// with the in-memory identity.
type Persistence interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Memory keeps values in process memory. Sharing one Memory between Store
// instances behaves like a page reload over the same storage.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

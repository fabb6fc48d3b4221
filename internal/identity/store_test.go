package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

type countingPersistence struct {
	*Memory
	mu   sync.Mutex
	sets map[string]int
}

func newCountingPersistence() *countingPersistence {
	return &countingPersistence{Memory: NewMemory(), sets: map[string]int{}}
}

func (c *countingPersistence) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets[key]++
	c.mu.Unlock()
	return c.Memory.Set(ctx, key, value)
}

func (c *countingPersistence) setCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[key]
}

type failingPersistence struct{}

var errBroken = errors.New("storage unavailable")

func (failingPersistence) Get(context.Context, string) (string, bool, error) {
	return "", false, errBroken
}
func (failingPersistence) Set(context.Context, string, string) error { return errBroken }
func (failingPersistence) Remove(context.Context, string) error      { return errBroken }

// blockingPersistence holds every Get until release is closed.
type blockingPersistence struct {
	*Memory
	release chan struct{}
}

func (b *blockingPersistence) Get(ctx context.Context, key string) (string, bool, error) {
	<-b.release
	return b.Memory.Get(ctx, key)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func testOptions() StoreOptions {
	logger, _ := test.NewNullLogger()
	return StoreOptions{Logger: logger}
}

func TestOpenIssuesDeviceIDWithoutPersistence(t *testing.T) {
	s := Open(context.Background(), nil, testOptions())

	id, err := s.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if !strings.HasPrefix(id.DeviceID, DevicePrefix) {
		t.Fatalf("device id %q lacks prefix %q", id.DeviceID, DevicePrefix)
	}
	if len(id.DeviceID) != len(DevicePrefix)+36 {
		t.Fatalf("unexpected device id length: %q", id.DeviceID)
	}
	if !id.ActorID.IsZero() {
		t.Fatalf("expected no actor, got %v", id.ActorID)
	}
}

func TestOpenReusesPersistedIdentity(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	first := Open(ctx, mem, testOptions())
	first.SetActorID(ctx, models.IntID(42))
	want, _ := first.Identity(ctx)

	second := Open(ctx, mem, testOptions())
	got, err := second.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if got.DeviceID != want.DeviceID {
		t.Fatalf("device id changed across reload: %q != %q", got.DeviceID, want.DeviceID)
	}
	if got.ActorID.String() != "42" {
		t.Fatalf("actor id not restored: %q", got.ActorID.String())
	}
}

func TestClearReissuesDeviceID(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := Open(ctx, mem, testOptions())
	s.SetActorID(ctx, models.StringID("user-1"))
	before, _ := s.Identity(ctx)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	after, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if !after.ActorID.IsZero() {
		t.Fatalf("actor survived Clear: %v", after.ActorID)
	}
	if after.DeviceID == "" || after.DeviceID == before.DeviceID {
		t.Fatalf("expected a fresh device id, before=%q after=%q", before.DeviceID, after.DeviceID)
	}
	if _, ok, _ := mem.Get(ctx, ActorIDKey); ok {
		t.Fatal("actor id still persisted after Clear")
	}
	if v, _, _ := mem.Get(ctx, DeviceIDKey); v != after.DeviceID {
		t.Fatalf("persisted device id = %q, want %q", v, after.DeviceID)
	}
}

func TestSetActorIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newCountingPersistence()
	s := Open(ctx, p, testOptions())

	s.SetActorID(ctx, models.IntID(42))
	s.SetActorID(ctx, models.IntID(42))

	if v, _, _ := p.Get(ctx, ActorIDKey); v != "42" {
		t.Fatalf("persisted actor = %q, want 42", v)
	}
	if n := p.setCount(DeviceIDKey); n != 1 {
		t.Fatalf("device id issued %d times, want 1", n)
	}
}

func TestIdentityFailsWithoutEntropy(t *testing.T) {
	opts := testOptions()
	opts.Rand = failingReader{}
	s := Open(context.Background(), nil, opts)

	if _, err := s.Identity(context.Background()); err == nil {
		t.Fatal("expected error when no device id can be issued")
	}
}

func TestBrokenPersistenceFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	s := Open(ctx, failingPersistence{}, testOptions())

	first, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	second, _ := s.Identity(ctx)
	if first.DeviceID == "" || first.DeviceID != second.DeviceID {
		t.Fatalf("in-memory device id not stable: %q vs %q", first.DeviceID, second.DeviceID)
	}
}

func TestOpenAsyncIssuesOnDemandOnce(t *testing.T) {
	mem := NewMemory()
	_ = mem.Set(context.Background(), DeviceIDKey, DevicePrefix+"stale")
	p := &blockingPersistence{Memory: mem, release: make(chan struct{})}

	s := OpenAsync(p, testOptions())

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]struct{}{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			id, err := s.Identity(ctx)
			if err != nil {
				t.Errorf("Identity() error = %v", err)
				return
			}
			mu.Lock()
			ids[id.DeviceID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(ids) != 1 {
		t.Fatalf("expected one device id, got %d: %v", len(ids), ids)
	}
	var issued string
	for id := range ids {
		issued = id
	}

	close(p.release)
	<-s.ready

	got, _ := s.Identity(context.Background())
	if got.DeviceID != issued {
		t.Fatalf("late read replaced device id: %q != %q", got.DeviceID, issued)
	}
}

func TestOpenAsyncKeepsActorBoundDuringRead(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	_ = mem.Set(ctx, ActorIDKey, "old-actor")
	p := &blockingPersistence{Memory: mem, release: make(chan struct{})}

	s := OpenAsync(p, testOptions())
	s.SetActorID(ctx, models.StringID("new-actor"))
	close(p.release)

	id, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.ActorID.String() != "new-actor" {
		t.Fatalf("actor = %q, want new-actor", id.ActorID.String())
	}
}

// unreadablePersistence fails every Get but keeps whatever was stored.
type unreadablePersistence struct {
	*Memory
}

func (unreadablePersistence) Get(context.Context, string) (string, bool, error) {
	return "", false, errBroken
}

func TestFailedReadKeepsStoredDeviceID(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	_ = mem.Set(ctx, DeviceIDKey, DevicePrefix+"original")

	s := Open(ctx, unreadablePersistence{Memory: mem}, testOptions())
	id, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.DeviceID == "" || id.DeviceID == DevicePrefix+"original" {
		t.Fatalf("expected an in-memory fallback id, got %q", id.DeviceID)
	}
	if v, _, _ := mem.Get(ctx, DeviceIDKey); v != DevicePrefix+"original" {
		t.Fatalf("stored device id overwritten: %q", v)
	}
}

// cancelAwarePersistence rejects writes made with a finished context.
type cancelAwarePersistence struct {
	*blockingPersistence
}

func (c cancelAwarePersistence) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Memory.Set(ctx, key, value)
}

func TestOnDemandIssuePersistsAfterCallerCancels(t *testing.T) {
	mem := NewMemory()
	p := cancelAwarePersistence{&blockingPersistence{Memory: mem, release: make(chan struct{})}}
	s := OpenAsync(p, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	id, err := s.Identity(ctx)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}

	close(p.release)
	<-s.ready

	if v, _, _ := mem.Get(context.Background(), DeviceIDKey); v != id.DeviceID {
		t.Fatalf("persisted device id = %q, want %q", v, id.DeviceID)
	}
}

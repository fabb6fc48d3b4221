package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

// DevicePrefix marks anonymous device identifiers.
const DevicePrefix = "$device:"

var errNoDeviceID = errors.New("device id could not be issued")

// StoreOptions configures a Store.
type StoreOptions struct {
	// Rand is the source for device ids. Defaults to crypto/rand.
	Rand   io.Reader
	Logger *log.Logger
}

// Store owns the device id and the optional actor id of one installation.
//
// The persisted values are read once, either before Open returns or in the
// background (OpenAsync). Identity waits for that read, bounded by its
// context, and otherwise issues a device id on demand. All mutation happens
// under mu, so only the first issued device id is ever kept.
type Store struct {
	persist Persistence
	rand    io.Reader
	logger  *log.Logger
	ready   chan struct{}

	mu         sync.Mutex
	deviceID   string
	actorID    models.ActorID
	actorBound bool
}

func newStore(p Persistence, opts StoreOptions) *Store {
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Store{
		persist: p,
		rand:    opts.Rand,
		logger:  opts.Logger,
		ready:   make(chan struct{}),
	}
}

// Open reads the persisted identity before returning and issues a device id
// if none was stored. A nil Persistence keeps the identity in memory only.
func Open(ctx context.Context, p Persistence, opts StoreOptions) *Store {
	s := newStore(p, opts)
	s.load(ctx)
	return s
}

// OpenAsync returns immediately and reads the persisted identity in the
// background.
func OpenAsync(p Persistence, opts StoreOptions) *Store {
	s := newStore(p, opts)
	go s.load(context.Background())
	return s
}

func (s *Store) load(ctx context.Context) {
	defer close(s.ready)

	var (
		actor, device       string
		hasActor, hasDevice bool
		deviceReadFailed    bool
	)
	if s.persist != nil {
		var err error
		actor, hasActor, err = s.persist.Get(ctx, ActorIDKey)
		if err != nil {
			s.logger.WithError(err).Warn("identity: read actor id")
		}
		device, hasDevice, err = s.persist.Get(ctx, DeviceIDKey)
		if err != nil {
			s.logger.WithError(err).Warn("identity: read device id")
			deviceReadFailed = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if hasActor && actor != "" && !s.actorBound {
		s.actorID = models.StringID(actor)
	}
	if s.deviceID != "" {
		// Issued on demand while the read was pending.
		return
	}
	if hasDevice && device != "" {
		s.deviceID = device
		return
	}
	// A failed read may hide a stored id, so the fallback stays in memory
	// and the stored value is left alone.
	if err := s.issueLocked(ctx, !deviceReadFailed); err != nil {
		s.logger.WithError(err).Warn("identity: issue device id")
	}
}

// Identity returns the current actor and device ids, issuing a device id if
// none exists yet.
func (s *Store) Identity(ctx context.Context) (models.Identity, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceID == "" {
		if err := s.issueLocked(ctx, true); err != nil {
			return models.Identity{ActorID: s.actorID}, err
		}
	}
	return models.Identity{ActorID: s.actorID, DeviceID: s.deviceID}, nil
}

// SetActorID binds id to this installation and persists it.
func (s *Store) SetActorID(ctx context.Context, id models.ActorID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actorID = id
	s.actorBound = true
	if s.persist == nil {
		return
	}
	if err := s.persist.Set(context.WithoutCancel(ctx), ActorIDKey, id.String()); err != nil {
		s.logger.WithError(err).Warn("identity: persist actor id")
	}
}

// Clear forgets the actor, removes both persisted keys and issues a new
// device id.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persist != nil {
		wctx := context.WithoutCancel(ctx)
		for _, key := range []string{ActorIDKey, DeviceIDKey} {
			if err := s.persist.Remove(wctx, key); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("identity: remove key")
			}
		}
	}
	s.actorID = models.ActorID{}
	s.actorBound = true
	s.deviceID = ""
	return s.issueLocked(ctx, true)
}

// issueLocked sets a new device id and, when persist is true, stores it.
// Writes are not bound to the caller's cancellation.
func (s *Store) issueLocked(ctx context.Context, persist bool) error {
	id, err := uuid.NewRandomFromReader(s.rand)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoDeviceID, err)
	}
	s.deviceID = DevicePrefix + id.String()
	if s.persist == nil || !persist {
		return nil
	}
	if err := s.persist.Set(context.WithoutCancel(ctx), DeviceIDKey, s.deviceID); err != nil {
		s.logger.WithError(err).Warn("identity: persist device id")
	}
	return nil
}

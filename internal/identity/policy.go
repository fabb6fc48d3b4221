package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

var (
	// ErrMissing is returned when an event has no resolvable subject.
	ErrMissing = errors.New("actor id is required")
	// ErrResetUnsupported is returned by policies that do not own an identity.
	ErrResetUnsupported = errors.New("reset is not supported when identity is caller supplied")
)

// Policy decides where the subject of an event comes from.
type Policy interface {
	// Resolve returns the identity of the next event. props are the caller's.
	Resolve(ctx context.Context, props models.Props) (models.Identity, error)
	// Bind attaches actor to the current device and returns the device id
	// sent along with the identify event, if any.
	Bind(ctx context.Context, actor models.ActorID, props models.Props) string
	// Reset forgets the actor and issues a new device id.
	Reset(ctx context.Context) error
	// Reserved returns the identity properties merged below enrichment.
	Reserved(id models.Identity) models.Props
}

// SelfResolving owns the identity lifecycle through a Store.
func SelfResolving(store *Store) Policy {
	return &selfResolving{store: store}
}

type selfResolving struct {
	store *Store
}

func (p *selfResolving) Resolve(ctx context.Context, _ models.Props) (models.Identity, error) {
	id, err := p.store.Identity(ctx)
	if err != nil {
		if !id.ActorID.IsZero() {
			return id, nil
		}
		return models.Identity{}, fmt.Errorf("%w: %v", ErrMissing, err)
	}
	return id, nil
}

func (p *selfResolving) Bind(ctx context.Context, actor models.ActorID, _ models.Props) string {
	p.store.SetActorID(ctx, actor)
	id, err := p.store.Identity(ctx)
	if err != nil {
		return ""
	}
	return id.DeviceID
}

func (p *selfResolving) Reset(ctx context.Context) error {
	return p.store.Clear(ctx)
}

func (p *selfResolving) Reserved(id models.Identity) models.Props {
	props := models.Props{models.PropActorID: id.Subject()}
	if id.DeviceID != "" {
		props[models.PropDeviceID] = id.DeviceID
	}
	return props
}

// CallerSupplied trusts the $actor_id and $device_id the caller passes with
// every event. It keeps no state.
func CallerSupplied() Policy {
	return callerSupplied{}
}

type callerSupplied struct{}

func (callerSupplied) Resolve(_ context.Context, props models.Props) (models.Identity, error) {
	var id models.Identity
	if actor, ok := models.ParseActorID(props[models.PropActorID]); ok {
		id.ActorID = actor
	}
	if device, ok := props[models.PropDeviceID].(string); ok {
		id.DeviceID = device
	}
	if id.Subject().IsZero() {
		return models.Identity{}, ErrMissing
	}
	return id, nil
}

func (callerSupplied) Bind(_ context.Context, _ models.ActorID, props models.Props) string {
	device, _ := props[models.PropDeviceID].(string)
	return device
}

func (callerSupplied) Reset(context.Context) error {
	return ErrResetUnsupported
}

func (callerSupplied) Reserved(models.Identity) models.Props {
	return nil
}

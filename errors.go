package airtake

import (
	"errors"

	"github.com/PratikDhanave/airtake-go/internal/identity"
)

var (
	// ErrTokenRequired is returned by New when Options.Token is empty.
	ErrTokenRequired = errors.New("airtake: token is required")
	// ErrUnknownTarget is returned by New for a Target it does not know.
	ErrUnknownTarget = errors.New("airtake: unknown target")
	// ErrInvalidActorID is returned by Identify for an empty actor id.
	ErrInvalidActorID = errors.New("airtake: actor id must be a non-empty string or an integer")

	// ErrIdentityMissing is returned when an event has no resolvable
	// subject. It is the only delivery-path error a caller ever sees.
	ErrIdentityMissing = identity.ErrMissing
	// ErrResetUnsupported is returned by Reset on the go target.
	ErrResetUnsupported = identity.ErrResetUnsupported
)

// Package airtake records product analytics events and sends them to the
// Airtake ingestion endpoint.
//
// A Client resolves who an event is about, enriches it with what the host
// knows about the current page or screen, and posts it without waiting for
// the response. Delivery is best effort: failed sends are dropped and never
// retried. The only error a caller sees on the delivery path is
// ErrIdentityMissing.
package airtake

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/PratikDhanave/airtake-go/internal/dom"
	"github.com/PratikDhanave/airtake-go/internal/identity"
	"github.com/PratikDhanave/airtake-go/internal/transport"
)

// DefaultBaseURL is the ingestion endpoint used when Options.BaseURL is empty.
const DefaultBaseURL = "https://ingest.airtake.io"

// Target selects the host the client behaves like.
type Target string

const (
	// TargetBrowser owns the identity and reads it before New returns.
	TargetBrowser Target = "browser"
	// TargetReactNative owns the identity and reads it in the background.
	TargetReactNative Target = "react-native"
	// TargetGo is the server target: every event carries the identity the
	// caller passes in $actor_id or $device_id.
	TargetGo Target = "go"
)

func (t Target) library() string {
	return string(t)
}

func (t Target) clientInitiated() bool {
	return t != TargetGo
}

// Experimental holds features that may change.
type Experimental struct {
	// Autotrack enables AutoTrack. Without it AutoTrack drops every call.
	Autotrack bool
}

// Options configures a Client. Only Token is required.
type Options struct {
	Token string
	// Disabled accepts every call and sends nothing.
	Disabled bool
	// BaseURL defaults to DefaultBaseURL.
	BaseURL      string
	Experimental Experimental
	// Target defaults to TargetBrowser.
	Target Target

	// Persistence stores the identity of self-resolving targets. Nil keeps
	// it in memory for the life of the Client.
	Persistence Persistence
	// Environment supplies enrichment. When it also has a Document method
	// it is the page AutoTrack captures.
	Environment Environment

	HTTPClient *http.Client
	Logger     *log.Logger
	// Rand is the source of device ids. Defaults to crypto/rand.
	Rand io.Reader
	// Now defaults to time.Now.
	Now func() time.Time

	sender transport.Sender
}

// Client sends events for one project token. It is safe for concurrent use.
type Client struct {
	target    Target
	autotrack bool
	policy    identity.Policy
	sender    transport.Sender
	env       Environment
	capturer  *dom.Capturer
	logger    *log.Logger
	now       func() time.Time
}

// New builds a Client. For TargetBrowser the persisted identity is read
// before New returns; ctx bounds that read.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrTokenRequired
	}
	if opts.Target == "" {
		opts.Target = TargetBrowser
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	storeOpts := identity.StoreOptions{Rand: opts.Rand, Logger: opts.Logger}
	var policy identity.Policy
	switch opts.Target {
	case TargetBrowser:
		policy = identity.SelfResolving(identity.Open(ctx, opts.Persistence, storeOpts))
	case TargetReactNative:
		policy = identity.SelfResolving(identity.OpenAsync(opts.Persistence, storeOpts))
	case TargetGo:
		policy = identity.CallerSupplied()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, opts.Target)
	}

	sender := opts.sender
	switch {
	case sender != nil:
	case opts.Disabled:
		sender = transport.Noop{}
	default:
		sender = transport.NewHTTP(transport.Config{
			BaseURL:         opts.BaseURL,
			Token:           opts.Token,
			ClientInitiated: opts.Target.clientInitiated(),
			HTTPClient:      opts.HTTPClient,
			Logger:          opts.Logger,
		})
	}

	opts.Logger.WithFields(log.Fields{
		"target":    opts.Target,
		"base_url":  opts.BaseURL,
		"disabled":  opts.Disabled,
		"autotrack": opts.Experimental.Autotrack,
	}).Debug("airtake: client initialized")

	return &Client{
		target:    opts.Target,
		autotrack: opts.Experimental.Autotrack,
		policy:    policy,
		sender:    sender,
		env:       opts.Environment,
		capturer:  dom.NewCapturer(dom.DefaultRemovedTags, dom.DefaultAllowedAttrs),
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

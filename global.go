package airtake

import (
	"context"
	"sync"
)

var (
	globalMu sync.RWMutex
	global   *Client
)

// Init builds a Client from opts and registers it as the default client.
func Init(ctx context.Context, opts Options) error {
	c, err := New(ctx, opts)
	if err != nil {
		return err
	}
	Register(c)
	return nil
}

// Register makes c the client behind the package-level functions. A nil c
// unregisters.
func Register(c *Client) {
	globalMu.Lock()
	global = c
	globalMu.Unlock()
}

// Default returns the registered client, or nil.
func Default() *Client {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Track calls Track on the default client. Before Init it does nothing.
func Track(ctx context.Context, name string, props Props) error {
	if c := Default(); c != nil {
		return c.Track(ctx, name, props)
	}
	return nil
}

// Identify calls Identify on the default client. Before Init it does nothing.
func Identify(ctx context.Context, actor ActorID, props Props) error {
	if c := Default(); c != nil {
		return c.Identify(ctx, actor, props)
	}
	return nil
}

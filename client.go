package airtake

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/PratikDhanave/airtake-go/internal/dom"
	"github.com/PratikDhanave/airtake-go/internal/enrich"
	"github.com/PratikDhanave/airtake-go/internal/models"
)

// Track records a named event.
//
// Self-resolving targets send the stored identity; properties merge as
// identity keys, then enrichment, then props. On TargetGo the identity is
// read from props ($actor_id, falling back to $device_id) and properties
// merge as enrichment, then props. Either way the caller's props win.
func (c *Client) Track(ctx context.Context, name string, props Props) error {
	id, err := c.policy.Resolve(ctx, props)
	if err != nil {
		return err
	}

	ev := c.newEvent(models.TypeTrack, id.Subject())
	ev.Name = name
	ev.Props = c.sanitize(ev, models.Merge(c.policy.Reserved(id), c.enrichment(ev), props))
	c.sender.Send(ctx, ev)
	return nil
}

// Identify binds actor to the current device. Self-resolving targets
// persist the binding so later events are about actor. The identify event
// carries the device id: the stored one, or $device_id from props on
// TargetGo.
func (c *Client) Identify(ctx context.Context, actor ActorID, props Props) error {
	if actor.IsZero() {
		return ErrInvalidActorID
	}

	deviceID := c.policy.Bind(ctx, actor, props)

	ev := c.newEvent(models.TypeIdentify, actor)
	ev.DeviceID = deviceID
	ev.Props = c.sanitize(ev, models.Merge(c.enrichment(ev), props))
	c.sender.Send(ctx, ev)
	return nil
}

// Reset forgets the actor and issues a new device id. Configuration is
// kept. It returns ErrResetUnsupported on TargetGo.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.policy.Reset(ctx); err != nil {
		if !errors.Is(err, ErrResetUnsupported) {
			c.logger.WithError(err).Warn("airtake: reset identity")
		}
		return err
	}
	return nil
}

// AutoTrack records an interaction with target, a node of the page the
// Environment supplies. It needs Experimental.Autotrack. The event carries
// the text describing target and a redacted snapshot of the page. When the
// identity or the snapshot is unavailable the interaction is dropped.
func (c *Client) AutoTrack(ctx context.Context, target *html.Node) {
	if !c.autotrack {
		return
	}
	logger := c.logger.WithField("type", models.TypeAutoTrack)

	id, err := c.policy.Resolve(ctx, nil)
	if err != nil {
		logger.WithError(err).Debug("airtake: interaction dropped")
		return
	}

	snapshot, err := c.capture()
	if err != nil {
		logger.WithError(err).Debug("airtake: capture failed, interaction dropped")
		return
	}

	ev := c.newEvent(models.TypeAutoTrack, id.Subject())
	ev.Target = dom.DescribeTarget(target)
	ev.Document = snapshot
	ev.Props = c.sanitize(ev, models.Merge(c.policy.Reserved(id), c.enrichment(ev)))
	c.sender.Send(ctx, ev)
}

// Close waits for events already handed to the transport, bounded by ctx.
// The Client stays usable.
func (c *Client) Close(ctx context.Context) error {
	return c.sender.Wait(ctx)
}

func (c *Client) capture() (string, error) {
	src, ok := c.env.(dom.Source)
	if !ok {
		return "", dom.ErrNoDocument
	}
	doc, err := src.Document()
	if err != nil {
		return "", err
	}
	return c.capturer.Capture(doc)
}

func (c *Client) newEvent(t models.EventType, subject ActorID) models.Event {
	return models.Event{
		Type:      t,
		ID:        models.NewEventID(),
		Timestamp: c.now().UnixMilli(),
		ActorID:   subject,
	}
}

func (c *Client) enrichment(ev models.Event) Props {
	return enrich.Populate(c.env, c.target.library(), time.UnixMilli(ev.Timestamp))
}

func (c *Client) sanitize(ev models.Event, props Props) Props {
	clean, dropped := props.Sanitize()
	if len(dropped) > 0 {
		c.logger.WithFields(log.Fields{
			"event_id":   ev.ID,
			"event_type": ev.Type,
			"keys":       dropped,
		}).Warn("airtake: dropped properties with unsupported values")
	}
	if clean == nil {
		clean = Props{}
	}
	return clean
}

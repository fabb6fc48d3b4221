// Package transport delivers events to the ingestion endpoint.
//
// Delivery is fire-and-forget: Send hands the event to a detached goroutine
// and returns. The response is never read and failures are never retried;
// they are logged at debug level and recorded on the delivery span.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PratikDhanave/airtake-go/internal/models"
)

const (
	tracerName   = "github.com/PratikDhanave/airtake-go/internal/transport"
	sendSpanName = "airtake.events.send"

	maxDrain = 4 << 10
)

// Sender delivers events without reporting the outcome.
type Sender interface {
	// Send starts delivery of ev and returns immediately.
	Send(ctx context.Context, ev models.Event)
	// Wait blocks until deliveries started so far have finished or ctx ends.
	Wait(ctx context.Context) error
}

// Config configures the HTTP sender.
type Config struct {
	BaseURL string
	Token   string
	// ClientInitiated adds the X-Airtake-CI header.
	ClientInitiated bool
	HTTPClient      *http.Client
	Logger          *log.Logger
}

// HTTP posts events as JSON to {BaseURL}/v1/events.
type HTTP struct {
	endpoint        string
	token           string
	clientInitiated bool
	client          *http.Client
	logger          *log.Logger
	inflight        sync.WaitGroup
}

func NewHTTP(cfg Config) *HTTP {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	return &HTTP{
		endpoint:        Endpoint(cfg.BaseURL),
		token:           cfg.Token,
		clientInitiated: cfg.ClientInitiated,
		client:          cfg.HTTPClient,
		logger:          cfg.Logger,
	}
}

// Endpoint joins baseURL and the events path.
func Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + models.EventsPath
}

// Send delivers ev in the background. The caller's cancellation does not
// reach the request, so delivery can outlive the call that started it.
func (t *HTTP) Send(ctx context.Context, ev models.Event) {
	ctx = context.WithoutCancel(ctx)
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.WithField("stack", string(debug.Stack())).Errorf("transport: panic during delivery: %v", r)
			}
		}()
		if err := t.deliver(ctx, ev); err != nil {
			t.logger.WithError(err).WithFields(log.Fields{
				"event_id":   ev.ID,
				"event_type": ev.Type,
			}).Debug("transport: event dropped")
		}
	}()
}

func (t *HTTP) deliver(ctx context.Context, ev models.Event) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, sendSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("airtake.event.type", string(ev.Type)),
			attribute.String("airtake.event.id", ev.ID),
			attribute.String("url.full", t.endpoint),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := sonic.ConfigStd.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(models.HeaderToken, t.token)
	if t.clientInitiated {
		req.Header.Set(models.HeaderClientInitiated, "1")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	// The status is recorded but never acted on.
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	// The body is ignored. Draining a capped prefix lets the connection be
	// reused without waiting on a slow response.
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()

	t.logger.WithFields(log.Fields{
		"event_id":   ev.ID,
		"event_type": ev.Type,
		"status":     resp.StatusCode,
	}).Debug("transport: event sent")
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (t *HTTP) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Noop accepts events and sends nothing. It backs disabled clients.
type Noop struct{}

func (Noop) Send(context.Context, models.Event) {}

func (Noop) Wait(context.Context) error { return nil }

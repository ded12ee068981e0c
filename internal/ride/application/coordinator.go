package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bikecloud/internal/observability/metrics"
	ride "bikecloud/internal/ride/domain"
)

const defaultSettleDelay = 100 * time.Millisecond

// Publisher publishes ingest outcomes for external sinks.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Receipt acknowledges a submitted event.
type Receipt struct {
	Reply   string
	Ignored bool
	Reason  string
}

// Coordinator validates webhook events, drives session transitions
// and commits accepted samples to the store.
type Coordinator struct {
	store       ride.Store
	bus         Publisher
	logger      *log.Logger
	settleDelay time.Duration
}

// NewCoordinator constructs a coordinator.
func NewCoordinator(store ride.Store, opts ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("coordinator: nil store")
	}
	c := &Coordinator{store: store, logger: log.Default(), settleDelay: defaultSettleDelay}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CoordinatorOption configures the coordinator.
type CoordinatorOption func(*Coordinator)

// WithPublisher wires the ingest outcome bus.
func WithPublisher(bus Publisher) CoordinatorOption {
	return func(c *Coordinator) { c.bus = bus }
}

// WithLogger overrides the default logger.
func WithLogger(logger *log.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSettleDelay overrides the pause applied after an end_session
// commit. Zero disables it.
func WithSettleDelay(delay time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.settleDelay = delay }
}

// Submit applies one webhook event. Stale samples are acknowledged as
// ignored without error; unknown kinds return ErrUnknownEvent; store
// failures propagate with no partial state applied.
func (c *Coordinator) Submit(ctx context.Context, event ride.Event) (Receipt, error) {
	if !event.Kind.Known() {
		c.publishRejected(ctx, event, "not understood")
		return Receipt{}, fmt.Errorf("%w: %q", ride.ErrUnknownEvent, event.Kind)
	}
	if event.T <= 0 {
		c.publishRejected(ctx, event, "missing timestamp")
		return Receipt{}, fmt.Errorf("%w: missing timestamp", ride.ErrMalformedEvent)
	}

	switch event.Kind {
	case ride.EventPoweredOn:
		if err := c.store.SetPoweredOn(ctx, event.T); err != nil {
			return Receipt{}, fmt.Errorf("coordinator: set powered on: %w", err)
		}
		return c.accepted(ctx, event, "power on received")

	case ride.EventStartSession:
		// Full reset: any in-flight session, ended or not, is discarded.
		if err := c.store.StartSession(ctx, event.T, event.BikeIP); err != nil {
			return Receipt{}, fmt.Errorf("coordinator: start session: %w", err)
		}
		metrics.SetSessionActive(true)
		return c.accepted(ctx, event, "started session")

	case ride.EventEndSession:
		if err := c.store.EndSession(ctx, event.T); err != nil {
			return Receipt{}, fmt.Errorf("coordinator: end session: %w", err)
		}
		metrics.SetSessionActive(false)
		// Widen the window before a racing summary read observes the
		// end. Not a correctness barrier.
		if c.settleDelay > 0 {
			time.Sleep(c.settleDelay)
		}
		return c.accepted(ctx, event, "ended session")

	case ride.EventNewData:
		return c.submitSample(ctx, event)
	}
	return Receipt{}, fmt.Errorf("%w: %q", ride.ErrUnknownEvent, event.Kind)
}

func (c *Coordinator) submitSample(ctx context.Context, event ride.Event) (Receipt, error) {
	session, err := c.store.Session(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("coordinator: load session: %w", err)
	}
	if session.HasEnded() {
		return c.ignored(ctx, event, "session ended")
	}

	// Staleness compares against the current head only, not full
	// sequence monotonicity. Equal timestamps are accepted as written.
	head, ok, err := c.store.Head(ctx)
	if err != nil {
		return Receipt{}, fmt.Errorf("coordinator: load head: %w", err)
	}
	if ok && head.TS > event.T {
		return c.ignored(ctx, event, "stale")
	}

	sample := ride.Sample{
		TS:         event.T,
		SpeedMPH:   event.SpeedMPH,
		Resistance: event.Resistance,
		HeartBPM:   event.HeartBPM,
	}
	if err := c.store.Append(ctx, sample); err != nil {
		return Receipt{}, fmt.Errorf("coordinator: append sample: %w", err)
	}
	return c.accepted(ctx, event, "data appended")
}

func (c *Coordinator) accepted(ctx context.Context, event ride.Event, reply string) (Receipt, error) {
	if c.bus != nil {
		if err := c.bus.Publish(ctx, IngestAccepted{Kind: event.Kind, T: event.T, Reply: reply}); err != nil {
			c.logger.Printf("ingest publish error: %v", err)
		}
	}
	return Receipt{Reply: reply}, nil
}

func (c *Coordinator) ignored(ctx context.Context, event ride.Event, reason string) (Receipt, error) {
	metrics.IncIngestIgnored(reason)
	c.publishRejected(ctx, event, reason)
	return Receipt{Reply: "ignored stale data", Ignored: true, Reason: reason}, nil
}

func (c *Coordinator) publishRejected(ctx context.Context, event ride.Event, reason string) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, IngestRejected{Kind: event.Kind, T: event.T, Reason: reason}); err != nil {
		c.logger.Printf("ingest publish error: %v", err)
	}
}

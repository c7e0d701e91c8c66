// Package gateway implements the command gateway / router: the only
// component that mints event ids, assigns aggregate sequences, and
// decides aggregate type tags. It selects the
// registered Configuration whose command sum contains the dispatched
// command, rehydrates the target aggregate by replay when needed, and
// sinks the resulting events atomically.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jules-labs/eventcore/aggregate"
	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/eventstore"
	"github.com/jules-labs/eventcore/telemetry"
)

// Identifiable is implemented by every creation and update command: it
// names the aggregate the command targets. The gateway never guesses an
// aggregate id on its own.
type Identifiable interface {
	AggregateID() uuid.UUID
}

// Store is the subset of *eventstore.Store the gateway depends on.
type Store interface {
	Sink(ctx context.Context, events []event.Event) error
	EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]event.Event, error)
}

// Gateway routes commands to their registered Configuration, rehydrates
// aggregates, and sinks the resulting events.
type Gateway struct {
	store       Store
	configs     []aggregate.Configuration
	maxAttempts uint
	now         func() time.Time
	newID       func() uuid.UUID
	tracer      trace.Tracer
}

// Option configures a Gateway at construction.
type Option func(*Gateway)

// WithMaxAttempts overrides the default bound (5) on the total number of
// attempts Dispatch makes when ConcurrencyError recurs. DESIGN.md
// records why 5 was chosen.
func WithMaxAttempts(n uint) Option {
	return func(g *Gateway) { g.maxAttempts = n }
}

// WithClock overrides the gateway's notion of "now", for deterministic
// tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDGenerator overrides how the gateway mints event ids, for
// deterministic tests.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(g *Gateway) { g.newID = newID }
}

// New builds a Gateway over store, routing to the given configurations
// in the order supplied.
func New(store Store, configs []aggregate.Configuration, opts ...Option) *Gateway {
	g := &Gateway{
		store:       store,
		configs:     configs,
		maxAttempts: 5,
		now:         time.Now,
		newID:       uuid.New,
		tracer:      telemetry.Tracer("eventcore/gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dispatch routes cmd to its Configuration, executes the
// creation-or-update step, and sinks the resulting events. On
// ConcurrencyError it retries the whole step, making at most maxAttempts
// attempts in all; LockingError and every other error is returned
// immediately.
func (g *Gateway) Dispatch(ctx context.Context, cmd any, meta event.Metadata) error {
	ctx, span := g.tracer.Start(ctx, "gateway.dispatch", trace.WithAttributes(
		attribute.String("command.type", fmt.Sprintf("%T", cmd)),
	))
	defer span.End()

	cfg := g.route(cmd)
	if cfg == nil {
		return &NoConstructorForCommandError{CommandType: fmt.Sprintf("%T", cmd)}
	}

	ident, ok := cmd.(Identifiable)
	if !ok {
		return fmt.Errorf("gateway: command %T does not implement Identifiable", cmd)
	}
	aggID := ident.AggregateID()
	span.SetAttributes(
		attribute.String("aggregate.id", aggID.String()),
		attribute.String("aggregate.type", cfg.AggregateType()),
	)

	isCreate := cfg.MatchesCreate(cmd)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		var stepErr error
		if isCreate {
			stepErr = g.dispatchCreate(ctx, cfg, cmd, aggID, meta)
		} else {
			stepErr = g.dispatchUpdate(ctx, cfg, cmd, aggID, meta)
		}
		if stepErr == nil {
			return struct{}{}, nil
		}
		var conflict *eventstore.ConcurrencyError
		if errors.As(stepErr, &conflict) {
			span.AddEvent("concurrency-retry")
			return struct{}{}, stepErr
		}
		return struct{}{}, backoff.Permanent(stepErr)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(g.maxAttempts))

	return err
}

func (g *Gateway) route(cmd any) aggregate.Configuration {
	for _, cfg := range g.configs {
		if cfg.MatchesCreate(cmd) || cfg.MatchesUpdate(cmd) {
			return cfg
		}
	}
	return nil
}

func (g *Gateway) dispatchCreate(ctx context.Context, cfg aggregate.Configuration, cmd any, aggID uuid.UUID, meta event.Metadata) error {
	domainEvent, err := cfg.Create(cmd, meta)
	if err != nil {
		return &DomainError{Err: err}
	}
	e := event.Event{
		ID:                g.newID(),
		AggregateID:       aggID,
		AggregateType:     cfg.AggregateType(),
		AggregateSequence: 1,
		EventType:         domainEvent.EventType(),
		CreatedAt:         g.now(),
		Metadata:          meta,
		Body:              domainEvent,
	}
	return g.store.Sink(ctx, []event.Event{e})
}

func (g *Gateway) dispatchUpdate(ctx context.Context, cfg aggregate.Configuration, cmd any, aggID uuid.UUID, meta event.Metadata) error {
	history, err := g.store.EventsFor(ctx, aggID)
	if err != nil {
		return fmt.Errorf("gateway: load history for %s: %w", aggID, err)
	}
	if len(history) == 0 {
		return &AggregateNotFoundError{AggregateID: aggID.String()}
	}

	state, err := aggregate.Rehydrate(cfg, history)
	if err != nil {
		return err
	}

	newEvents, err := cfg.Update(state, cmd, meta)
	if err != nil {
		return &DomainError{Err: err}
	}

	last := history[len(history)-1].AggregateSequence
	now := g.now()
	out := make([]event.Event, len(newEvents))
	for i, de := range newEvents {
		out[i] = event.Event{
			ID:                g.newID(),
			AggregateID:       aggID,
			AggregateType:     cfg.AggregateType(),
			AggregateSequence: last + int64(i) + 1,
			EventType:         de.EventType(),
			CreatedAt:         now,
			Metadata:          meta,
			Body:              de,
		}
	}
	return g.store.Sink(ctx, out)
}

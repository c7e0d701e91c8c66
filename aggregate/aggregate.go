// Package aggregate models the algebra relating creation/update commands,
// creation/update events, and aggregate state. Rather than parameterize
// aggregates over command/event/error sums plus a self type using
// higher-kinded generics, this package models each concrete aggregate as
// a value holding four closures behind a Constructor interface
// parameterized by the command and event union types.
package aggregate

import "github.com/jules-labs/eventcore/event"

// Result is the tagged outcome of a create/update call: either a value
// or a domain error, standing in for an Either. It has no map/flatMap
// combinators; callers read it through IsOk, Value and Error.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

// Err wraps a domain error (e.g. AlreadyInvited). Domain errors flow as
// Result values, never as panics.
func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// IsOk reports whether the result holds a value.
func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the wrapped value and whether the result was Ok.
func (r Result[T]) Value() (T, bool) { return r.value, r.ok }

// Error returns the wrapped domain error, or nil if the result was Ok.
func (r Result[T]) Error() error { return r.err }

// Constructor is the four-function contract for a "Plain" aggregate:
// CC/CE/UC/UE are the concrete creation-command,
// creation-event, update-command, and update-event types for one
// aggregate type.
type Constructor[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent] interface {
	// Create validates a creation command against no prior state (there
	// is none yet) and produces the creation event, or a domain error.
	// meta is the command's dispatch-time metadata, for constructors that
	// stamp it onto their output events.
	Create(cmd CC, meta event.Metadata) Result[CE]
	// Created folds the creation event into the aggregate's initial
	// state.
	Created(e CE) any
	// Update validates an update command against the aggregate's current
	// state and produces the events to append, or a domain error. A
	// single update command may yield more than one event. meta is the
	// command's dispatch-time metadata.
	Update(state any, cmd UC, meta event.Metadata) Result[[]UE]
	// Updated folds one update event into the aggregate's state.
	Updated(state any, e UE) any
}

// WithProjection wraps a Constructor whose Create/Update also consult a
// read-only projection P (e.g. "is this name taken?"). It captures the
// projection and re-exposes the plain Constructor interface the gateway
// drives: partial application becomes a wrapper that captures the
// projection.
type WithProjection[P any, CC any, CE event.DomainEvent, UC any, UE event.DomainEvent] struct {
	Projection P
	Create2    func(p P, cmd CC, meta event.Metadata) Result[CE]
	Created2   func(e CE) any
	Update2    func(p P, state any, cmd UC, meta event.Metadata) Result[[]UE]
	Updated2   func(state any, e UE) any
}

func (w WithProjection[P, CC, CE, UC, UE]) Create(cmd CC, meta event.Metadata) Result[CE] {
	return w.Create2(w.Projection, cmd, meta)
}

func (w WithProjection[P, CC, CE, UC, UE]) Created(e CE) any {
	return w.Created2(e)
}

func (w WithProjection[P, CC, CE, UC, UE]) Update(state any, cmd UC, meta event.Metadata) Result[[]UE] {
	return w.Update2(w.Projection, state, cmd, meta)
}

func (w WithProjection[P, CC, CE, UC, UE]) Updated(state any, e UE) any {
	return w.Updated2(state, e)
}

// Stateless builds a Constructor whose Updated is the identity function,
// for singleton aggregates whose state never actually changes shape
// across events.
func Stateless[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent](
	create func(CC, event.Metadata) Result[CE],
	created func(CE) any,
	update func(any, UC, event.Metadata) Result[[]UE],
) Constructor[CC, CE, UC, UE] {
	return statelessConstructor[CC, CE, UC, UE]{create, created, update}
}

type statelessConstructor[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent] struct {
	create  func(CC, event.Metadata) Result[CE]
	created func(CE) any
	update  func(any, UC, event.Metadata) Result[[]UE]
}

func (s statelessConstructor[CC, CE, UC, UE]) Create(cmd CC, meta event.Metadata) Result[CE] {
	return s.create(cmd, meta)
}
func (s statelessConstructor[CC, CE, UC, UE]) Created(e CE) any { return s.created(e) }
func (s statelessConstructor[CC, CE, UC, UE]) Update(state any, cmd UC, meta event.Metadata) Result[[]UE] {
	return s.update(state, cmd, meta)
}
func (s statelessConstructor[CC, CE, UC, UE]) Updated(state any, _ UE) any { return state }

// WithMetadata builds a Constructor whose Create/Update additionally
// receive the command's dispatch-time metadata, narrowed from the
// gateway's event.Metadata to the concrete type M the aggregate expects,
// for aggregates that stamp audit fields onto their output events. If the
// metadata the gateway dispatched with does not assert to M, Create/
// Update return ErrMetadataTypeMismatch rather than panicking.
func WithMetadata[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent, M any](
	create func(CC, M) Result[CE],
	created func(CE) any,
	update func(any, UC, M) Result[[]UE],
	updated func(any, UE) any,
) Constructor[CC, CE, UC, UE] {
	return metadataConstructor[CC, CE, UC, UE, M]{create, created, update, updated}
}

type metadataConstructor[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent, M any] struct {
	create  func(CC, M) Result[CE]
	created func(CE) any
	update  func(any, UC, M) Result[[]UE]
	updated func(any, UE) any
}

func (m metadataConstructor[CC, CE, UC, UE, M]) Create(cmd CC, meta event.Metadata) Result[CE] {
	typed, ok := meta.(M)
	if !ok {
		return Err[CE](ErrMetadataTypeMismatch)
	}
	return m.create(cmd, typed)
}
func (m metadataConstructor[CC, CE, UC, UE, M]) Created(e CE) any { return m.created(e) }
func (m metadataConstructor[CC, CE, UC, UE, M]) Update(state any, cmd UC, meta event.Metadata) Result[[]UE] {
	typed, ok := meta.(M)
	if !ok {
		return Err[[]UE](ErrMetadataTypeMismatch)
	}
	return m.update(state, cmd, typed)
}
func (m metadataConstructor[CC, CE, UC, UE, M]) Updated(state any, e UE) any {
	return m.updated(state, e)
}

// Package event defines the atomic data model shared by every other
// package in this module: the immutable Event record, its store-global
// sequenced form, and the metadata/domain-event contracts a concrete
// domain must satisfy to ride the log.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the polymorphic payload carried by an Event. Concrete
// domain event types implement it by returning their own canonical class
// name, which is the sole key the serializer and event-class filters use
// to identify them — never a reflective type name.
type DomainEvent interface {
	EventType() string
}

// Metadata is the minimum a caller-supplied metadata record must expose.
// Stores are configured with a default metadata type; individual event
// classes may narrow it via serializer.RegisterMetadataOverride.
type Metadata interface {
	// CorrelationID identifies the request/command that produced the
	// event, for tracing and audit.
	CorrelationID() string
}

// StandardMetadata is the default Metadata implementation: a correlation
// id plus the account that issued the command.
type StandardMetadata struct {
	Correlation string `json:"correlation_id"`
	AccountID   string `json:"account_id"`
}

func (m StandardMetadata) CorrelationID() string { return m.Correlation }

// EmptyMetadata carries no identity at all. It exists to exercise the
// metadata-mismatch failure path: dispatching with EmptyMetadata against
// a store configured for StandardMetadata (and an event class that does
// not declare a narrower override) fails serialization validation.
type EmptyMetadata struct{}

func (EmptyMetadata) CorrelationID() string { return "" }

// Event is the atomic, immutable unit of the log. Once sunk it is never
// mutated or deleted.
type Event struct {
	ID                uuid.UUID
	AggregateID       uuid.UUID
	AggregateType     string
	AggregateSequence int64
	EventType         string
	CreatedAt         time.Time
	Metadata          Metadata
	Body              DomainEvent
}

func (e Event) String() string {
	return fmt.Sprintf("Event{id=%s agg=%s#%d type=%s}", e.ID, e.AggregateID, e.AggregateSequence, e.EventType)
}

// SequencedEvent pairs an Event with its store-global log position. The
// position is strictly increasing across the whole store, assigned by the
// database on insert; a value taken by an insert whose transaction rolls
// back is not reused, so the positions can have gaps.
type SequencedEvent struct {
	Event
	Sequence int64
}

func (s SequencedEvent) String() string {
	return fmt.Sprintf("SequencedEvent{seq=%d %s}", s.Sequence, s.Event)
}

// Creation and update events are not distinguished by a marker interface
// here: the aggregate package models the distinction structurally, via
// separate creation-event and update-event type parameters on
// aggregate.Constructor. The first event of any aggregate (aggregate
// sequence 1) is always that aggregate's creation-event type; every
// subsequent event is an update-event.

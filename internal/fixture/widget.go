// Package fixture provides a minimal "widget" aggregate used only by this
// module's own tests. It stands in for concrete domain aggregates (survey,
// participant, payment, thing) that are out of scope here — small enough
// to read in one sitting, shaped as one flat struct per event.
package fixture

import (
	"errors"

	"github.com/google/uuid"

	"github.com/jules-labs/eventcore/aggregate"
	"github.com/jules-labs/eventcore/event"
	"github.com/jules-labs/eventcore/gateway"
)

// ErrEmptyName is the domain error Create and Update return for a
// CreateWidget or RenameWidget with a blank name.
var ErrEmptyName = errors.New("widget: name must not be empty")

// ErrAlreadyNamed signals a rename to the widget's current name is a
// no-op. It embeds AlreadyActionedCommandError so callers that want to
// treat "already named" as success rather than failure can detect that
// with errors.As against the marker, not against this concrete type.
type ErrAlreadyNamed struct {
	gateway.AlreadyActionedCommandError
	Name string
}

func (e *ErrAlreadyNamed) Error() string { return "widget: already named " + e.Name }
func (e *ErrAlreadyNamed) Unwrap() error { return &e.AlreadyActionedCommandError }

const AggregateType = "widget"

// Commands.

type CreateWidget struct {
	ID   uuid.UUID
	Name string
}

func (c CreateWidget) AggregateID() uuid.UUID { return c.ID }

type RenameWidget struct {
	ID   uuid.UUID
	Name string
}

func (c RenameWidget) AggregateID() uuid.UUID { return c.ID }

// Events.

type WidgetCreated struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (WidgetCreated) EventType() string { return "WidgetCreated" }

type WidgetRenamed struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (WidgetRenamed) EventType() string { return "WidgetRenamed" }

// State.

type State struct {
	ID   uuid.UUID
	Name string
}

// Constructor is the fixture's aggregate.Constructor implementation.
type Constructor struct{}

func (Constructor) Create(cmd CreateWidget, meta event.Metadata) aggregate.Result[WidgetCreated] {
	if cmd.Name == "" {
		return aggregate.Err[WidgetCreated](ErrEmptyName)
	}
	return aggregate.Ok(WidgetCreated{ID: cmd.ID, Name: cmd.Name})
}

func (Constructor) Created(e WidgetCreated) any {
	return State{ID: e.ID, Name: e.Name}
}

func (Constructor) Update(state any, cmd RenameWidget, meta event.Metadata) aggregate.Result[[]WidgetRenamed] {
	s := state.(State)
	if cmd.Name == "" {
		return aggregate.Err[[]WidgetRenamed](ErrEmptyName)
	}
	if s.Name == cmd.Name {
		return aggregate.Err[[]WidgetRenamed](&ErrAlreadyNamed{
			AlreadyActionedCommandError: gateway.AlreadyActionedCommandError{
				Reason: "widget: already named " + cmd.Name,
			},
			Name: cmd.Name,
		})
	}
	return aggregate.Ok([]WidgetRenamed{{ID: cmd.ID, Name: cmd.Name}})
}

func (Constructor) Updated(state any, e WidgetRenamed) any {
	s := state.(State)
	s.Name = e.Name
	return s
}

// Configuration builds the routed aggregate.Configuration for the widget
// aggregate, ready to hand to gateway.New.
func Configuration() aggregate.Configuration {
	return aggregate.Register[CreateWidget, WidgetCreated, RenameWidget, WidgetRenamed](
		AggregateType,
		Constructor{},
		func(c any) (CreateWidget, bool) { v, ok := c.(CreateWidget); return v, ok },
		func(c any) (RenameWidget, bool) { v, ok := c.(RenameWidget); return v, ok },
	)
}

var _ event.DomainEvent = WidgetCreated{}
var _ event.DomainEvent = WidgetRenamed{}

// WidgetRenamedLegacy is a retired event shape kept only to exercise the
// serializer's upcast path: it encodes the new name under a
// differently-named field than WidgetRenamed does.
type WidgetRenamedLegacy struct {
	ID      uuid.UUID `json:"id"`
	NewName string    `json:"new_name"`
}

func (WidgetRenamedLegacy) EventType() string { return "WidgetRenamedLegacy" }

var _ event.DomainEvent = WidgetRenamedLegacy{}

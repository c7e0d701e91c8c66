// Package processor implements a thin single-event dispatcher: given a
// SequencedEvent (or bare Event), invoke one or
// more handler closures that together are total over the domain-event
// union. Handlers are expected to be idempotent — both the synchronous
// delivery inside a sink transaction and the at-least-once asynchronous
// delivery in package async can redeliver the same event.
package processor

import (
	"context"
	"fmt"

	"github.com/jules-labs/eventcore/event"
)

// Handler reacts to one domain event. It should return quickly and be
// safe to call more than once with the same event.
type Handler func(ctx context.Context, e event.Event) error

// EventProcessor dispatches to its registered handlers, in registration
// order, and restricts which event classes it wants to see via
// EventClasses (an empty set means "all").
type EventProcessor struct {
	handlers     []Handler
	eventClasses map[string]struct{}
}

// New builds an EventProcessor interested in eventClasses (empty = all),
// calling handlers in the order given on every matching event.
func New(eventClasses []string, handlers ...Handler) *EventProcessor {
	p := &EventProcessor{handlers: handlers}
	if len(eventClasses) > 0 {
		p.eventClasses = make(map[string]struct{}, len(eventClasses))
		for _, c := range eventClasses {
			p.eventClasses[c] = struct{}{}
		}
	}
	return p
}

// EventClasses returns the event_type tags this processor cares about,
// or nil for "all" — the shape Store.GetAfter's filter expects.
func (p *EventProcessor) EventClasses() []string {
	if p.eventClasses == nil {
		return nil
	}
	out := make([]string, 0, len(p.eventClasses))
	for c := range p.eventClasses {
		out = append(out, c)
	}
	return out
}

// Interested reports whether e's type matches this processor's filter.
func (p *EventProcessor) Interested(e event.Event) bool {
	if p.eventClasses == nil {
		return true
	}
	_, ok := p.eventClasses[e.EventType]
	return ok
}

// Process invokes every handler, in order, with e. The first handler
// error stops the chain and is returned.
func (p *EventProcessor) Process(ctx context.Context, e event.Event) error {
	for i, h := range p.handlers {
		if err := h(ctx, e); err != nil {
			return fmt.Errorf("processor: handler %d rejected event %s: %w", i, e.ID, err)
		}
	}
	return nil
}

// EventListener is the façade external saga and projector collaborators
// expose to the core: one or more process
// closures bound together, with the event classes they jointly care
// about. It is a convenience constructor over EventProcessor for
// collaborators that think in terms of a single `process(Event)`
// function rather than a pre-split handler list.
type EventListener struct {
	*EventProcessor
}

// NewListener adapts a single process function plus its declared
// interest set into the EventProcessor shape the rest of this module
// consumes.
func NewListener(eventClasses []string, process Handler) *EventListener {
	return &EventListener{EventProcessor: New(eventClasses, process)}
}

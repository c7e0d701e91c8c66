package aggregate

import "github.com/jules-labs/eventcore/event"

// Configuration is the type-erased façade the gateway drives: it binds a
// concrete Constructor plus the aggregate-type tag and the predicates
// used to decide whether a runtime command belongs to this aggregate's
// creation-command or update-command sum: the gateway selects
// configurations by matching the runtime command type against each
// configuration's declared creation-command and update-command sums.
type Configuration interface {
	AggregateType() string
	MatchesCreate(cmd any) bool
	MatchesUpdate(cmd any) bool
	Create(cmd any, meta event.Metadata) (event.DomainEvent, error)
	Created(e event.DomainEvent) any
	Update(state any, cmd any, meta event.Metadata) ([]event.DomainEvent, error)
	Updated(state any, e event.DomainEvent) any
}

// Register adapts a concrete Constructor[CC, CE, UC, UE] into a
// Configuration. isCreate/isUpdate are ordinary type assertions against
// the aggregate's command sum, e.g. `func(c any) (CreateWidget, bool) {
// v, ok := c.(CreateWidget); return v, ok }`.
func Register[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent](
	aggregateType string,
	ctor Constructor[CC, CE, UC, UE],
	isCreate func(any) (CC, bool),
	isUpdate func(any) (UC, bool),
) Configuration {
	return &configuration[CC, CE, UC, UE]{
		aggregateType: aggregateType,
		ctor:          ctor,
		isCreate:      isCreate,
		isUpdate:      isUpdate,
	}
}

type configuration[CC any, CE event.DomainEvent, UC any, UE event.DomainEvent] struct {
	aggregateType string
	ctor          Constructor[CC, CE, UC, UE]
	isCreate      func(any) (CC, bool)
	isUpdate      func(any) (UC, bool)
}

func (c *configuration[CC, CE, UC, UE]) AggregateType() string { return c.aggregateType }

func (c *configuration[CC, CE, UC, UE]) MatchesCreate(cmd any) bool {
	_, ok := c.isCreate(cmd)
	return ok
}

func (c *configuration[CC, CE, UC, UE]) MatchesUpdate(cmd any) bool {
	_, ok := c.isUpdate(cmd)
	return ok
}

func (c *configuration[CC, CE, UC, UE]) Create(cmd any, meta event.Metadata) (event.DomainEvent, error) {
	typed, _ := c.isCreate(cmd)
	res := c.ctor.Create(typed, meta)
	v, ok := res.Value()
	if !ok {
		return nil, res.Error()
	}
	return v, nil
}

func (c *configuration[CC, CE, UC, UE]) Created(e event.DomainEvent) any {
	typed := e.(CE)
	return c.ctor.Created(typed)
}

func (c *configuration[CC, CE, UC, UE]) Update(state any, cmd any, meta event.Metadata) ([]event.DomainEvent, error) {
	typed, _ := c.isUpdate(cmd)
	res := c.ctor.Update(state, typed, meta)
	v, ok := res.Value()
	if !ok {
		return nil, res.Error()
	}
	out := make([]event.DomainEvent, len(v))
	for i, e := range v {
		out[i] = e
	}
	return out, nil
}

func (c *configuration[CC, CE, UC, UE]) Updated(state any, e event.DomainEvent) any {
	typed := e.(UE)
	return c.ctor.Updated(state, typed)
}

// Rehydrate folds a known aggregate's event history into its current
// state: the first event (must exist) seeds Created, every subsequent
// event folds through Updated in sequence order.
func Rehydrate(cfg Configuration, events []event.Event) (any, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	state := cfg.Created(events[0].Body)
	for _, e := range events[1:] {
		state = cfg.Updated(state, e.Body)
	}
	return state, nil
}

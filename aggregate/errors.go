package aggregate

import "errors"

// ErrNoEvents is returned by Rehydrate when asked to rebuild state from
// an empty event list, which should never happen for a known aggregate
// id — the gateway treats an empty EventsFor result as AggregateNotFound
// before Rehydrate is ever called.
var ErrNoEvents = errors.New("aggregate: cannot rehydrate from zero events")

// ErrMetadataTypeMismatch is returned by a WithMetadata-built Constructor
// when the event.Metadata the gateway dispatched with does not assert to
// the concrete type the constructor was built for.
var ErrMetadataTypeMismatch = errors.New("aggregate: dispatched metadata does not match constructor's metadata type")

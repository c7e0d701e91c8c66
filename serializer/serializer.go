// Package serializer turns typed domain events and metadata into JSON for
// the event store, and back. Class identity travels out-of-band as the
// event_type column; the body and metadata JSON are always flat objects.
package serializer

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jules-labs/eventcore/event"
)

// EventBodySerializationError is the error Encode (and so Store.Sink)
// returns when a produced event body fails to round-trip through its own
// declared type; it is never carried as a domain Result value. It
// indicates a programming error in the event type's JSON tags, not a
// recoverable runtime condition.
type EventBodySerializationError struct {
	EventType string
	Err       error
}

func (e *EventBodySerializationError) Error() string {
	return fmt.Sprintf("event body serialization failed for %q: %v", e.EventType, e.Err)
}

func (e *EventBodySerializationError) Unwrap() error { return e.Err }

// EventMetadataSerializationError is the metadata analogue of
// EventBodySerializationError.
type EventMetadataSerializationError struct {
	MetadataType string
	Err          error
}

func (e *EventMetadataSerializationError) Error() string {
	return fmt.Sprintf("event metadata serialization failed for %q: %v", e.MetadataType, e.Err)
}

func (e *EventMetadataSerializationError) Unwrap() error { return e.Err }

// decoder turns a body/metadata JSON pair back into typed Go values.
type decoder struct {
	bodyType     reflect.Type
	metadataType reflect.Type
	upcast       func(body []byte) (tag string, body2 []byte, err error)
}

// Registry maps an event_type tag to the concrete Go types used to decode
// it, plus any upcast chain declared for that tag. It is built once, at
// store construction, by explicit registration — never by reflective
// class loading.
type Registry struct {
	decoders            map[string]decoder
	defaultMetadataType reflect.Type
}

// NewRegistry creates a Registry whose default metadata type is used for
// any event class that has not registered a narrower override.
func NewRegistry(defaultMetadata event.Metadata) *Registry {
	return &Registry{
		decoders:            make(map[string]decoder),
		defaultMetadataType: reflect.TypeOf(defaultMetadata),
	}
}

// RegisterEventType declares that the given event_type tag decodes into
// Go type T. T must implement event.DomainEvent and its EventType() must
// equal tag.
func RegisterEventType[T event.DomainEvent](r *Registry, tag string) {
	d := r.decoders[tag]
	d.bodyType = reflect.TypeOf(*new(T))
	r.decoders[tag] = d
}

// RegisterMetadataOverride narrows the metadata type expected for a
// specific event_type tag, away from the registry's store-wide default.
func RegisterMetadataOverride[M event.Metadata](r *Registry, tag string) {
	d := r.decoders[tag]
	d.metadataType = reflect.TypeOf(*new(M))
	r.decoders[tag] = d
}

// RegisterUpcast declares a migration rule Old -> New for the given
// (old) event_type tag. On read, a body stored under that tag is first
// decoded as Old, migrated via fn, then re-tagged under New's own
// registered event_type.
func RegisterUpcast[Old, New event.DomainEvent](r *Registry, oldTag string, fn func(Old) New) {
	d := r.decoders[oldTag]
	oldType := reflect.TypeOf(*new(Old))
	d.upcast = func(body []byte) (string, []byte, error) {
		oldVal := reflect.New(oldType).Interface()
		if err := json.Unmarshal(body, oldVal); err != nil {
			return "", nil, err
		}
		old, ok := reflect.ValueOf(oldVal).Elem().Interface().(Old)
		if !ok {
			return "", nil, fmt.Errorf("upcast: stored body for %q did not decode to %T", oldTag, old)
		}
		newVal := fn(old)
		newBody, err := json.Marshal(newVal)
		if err != nil {
			return "", nil, err
		}
		return newVal.EventType(), newBody, nil
	}
	r.decoders[oldTag] = d
}

// Serializer encodes/decodes event bodies and metadata using a Registry,
// validating every produced document round-trips before it is considered
// fit to commit.
type Serializer struct {
	registry *Registry
}

func New(registry *Registry) *Serializer {
	return &Serializer{registry: registry}
}

// Encode marshals body and metadata to their JSON forms, then validates
// each round-trips through the type the Registry has on file for this
// event's tag. Validation failures are returned as
// *EventBodySerializationError / *EventMetadataSerializationError and
// must abort the enclosing transaction — they indicate a programming
// error, not a retriable condition.
func (s *Serializer) Encode(tag string, body event.DomainEvent, meta event.Metadata) (bodyJSON, metaJSON []byte, err error) {
	bodyJSON, err = json.Marshal(body)
	if err != nil {
		return nil, nil, &EventBodySerializationError{EventType: tag, Err: err}
	}
	metaJSON, err = json.Marshal(meta)
	if err != nil {
		return nil, nil, &EventMetadataSerializationError{MetadataType: reflect.TypeOf(meta).String(), Err: err}
	}

	d, ok := s.registry.decoders[tag]
	if !ok {
		return nil, nil, &EventBodySerializationError{EventType: tag, Err: fmt.Errorf("no type registered for event_type %q", tag)}
	}

	decodedBody, err := s.decodeBody(d.bodyType, bodyJSON)
	if err != nil {
		return nil, nil, &EventBodySerializationError{EventType: tag, Err: err}
	}
	if again, err := json.Marshal(decodedBody); err != nil || string(again) != string(bodyJSON) {
		return nil, nil, &EventBodySerializationError{EventType: tag, Err: fmt.Errorf("body %s does not round-trip through %s", bodyJSON, d.bodyType)}
	}

	metaType := d.metadataType
	if metaType == nil {
		metaType = s.registry.defaultMetadataType
	}
	decodedMeta, err := s.decodeMetadata(metaType, metaJSON)
	if err != nil {
		return nil, nil, &EventMetadataSerializationError{MetadataType: metaType.String(), Err: err}
	}
	if again, err := json.Marshal(decodedMeta); err != nil || string(again) != string(metaJSON) {
		return nil, nil, &EventMetadataSerializationError{MetadataType: metaType.String(), Err: fmt.Errorf("metadata %s does not round-trip through %s", metaJSON, metaType)}
	}

	return bodyJSON, metaJSON, nil
}

// Decode resolves tag to its registered Go type, applies any upcast rule
// declared for tag, and unmarshals body/metadata into typed values.
func (s *Serializer) Decode(tag string, bodyJSON, metaJSON []byte) (event.DomainEvent, event.Metadata, error) {
	d, ok := s.registry.decoders[tag]
	if !ok {
		return nil, nil, fmt.Errorf("no type registered for event_type %q", tag)
	}

	effectiveTag, effectiveBody := tag, bodyJSON
	if d.upcast != nil {
		newTag, newBody, err := d.upcast(bodyJSON)
		if err != nil {
			return nil, nil, fmt.Errorf("upcast %q: %w", tag, err)
		}
		effectiveTag, effectiveBody = newTag, newBody
		d, ok = s.registry.decoders[effectiveTag]
		if !ok {
			return nil, nil, fmt.Errorf("upcast %q produced unregistered tag %q", tag, effectiveTag)
		}
	}

	body, err := s.decodeBody(d.bodyType, effectiveBody)
	if err != nil {
		return nil, nil, fmt.Errorf("decode body for %q: %w", effectiveTag, err)
	}

	metaType := d.metadataType
	if metaType == nil {
		metaType = s.registry.defaultMetadataType
	}
	meta, err := s.decodeMetadata(metaType, metaJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("decode metadata for %q: %w", effectiveTag, err)
	}

	return body, meta, nil
}

func (s *Serializer) decodeBody(t reflect.Type, data []byte) (event.DomainEvent, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	de, ok := ptr.Elem().Interface().(event.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement event.DomainEvent", t)
	}
	return de, nil
}

func (s *Serializer) decodeMetadata(t reflect.Type, data []byte) (event.Metadata, error) {
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	m, ok := ptr.Elem().Interface().(event.Metadata)
	if !ok {
		return nil, fmt.Errorf("type %s does not implement event.Metadata", t)
	}
	return m, nil
}

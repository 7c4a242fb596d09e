package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Metadata keys understood by downstream consumers.
const (
	MetadataActorID = "actor_id"
)

// Event is the envelope every published message carries. Data holds the
// topic-specific payload as raw JSON.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// EventOption customises an Event while it is built.
type EventOption func(*Event)

// WithCorrelationID ties the event to the request that caused it. Empty ids
// are ignored.
func WithCorrelationID(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// WithActor records who triggered the event under MetadataActorID.
func WithActor(id string) EventOption {
	return WithMetadata(MetadataActorID, id)
}

// WithMetadata sets a metadata entry. Empty values are skipped so the
// envelope stays free of blank keys.
func WithMetadata(key, value string) EventOption {
	return func(e *Event) {
		if value == "" {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, 1)
		}
		e.Metadata[key] = value
	}
}

// NewEvent encodes data and wraps it in a version 1 envelope stamped with a
// fresh id and the current UTC time.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any, opts ...EventOption) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	e := &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

package pubsub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Domain event types.
const (
	EventUserRegistered      = "user.registered"
	EventConversationCreated = "conversation.created"
	EventMessageCreated      = "message.created"
	EventUserLeft            = "user.left"
)

// Event is a domain event published to the event bus.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with a ULID, so IDs sort by creation time,
// and the current timestamp.
// key groups related events (a conversation ID, a username) so brokers that
// partition can keep them in order.
func NewEvent(eventType, key string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        id.String(),
		Type:      eventType,
		Key:       key,
		Payload:   data,
		Timestamp: now,
	}, nil
}

// UnmarshalPayload unmarshals the event payload into v.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Publisher publishes events to the event bus.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

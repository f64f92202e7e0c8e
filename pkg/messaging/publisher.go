package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("publisher is closed")

// Message is a keyed domain event ready for the wire
type Message interface {
	// Topic is the logical topic without prefix, e.g. "registration.created"
	Topic() string
	// Key groups related messages; events use their event id
	Key() string
}

// Publisher delivers domain events to a broker
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Envelope is the JSON document written to the broker
type Envelope struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode wraps msg in an Envelope and marshals it
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msg.Topic(), err)
	}
	return json.Marshal(Envelope{
		Type:       msg.Topic(),
		Key:        msg.Key(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
}

// TopicName joins the configured prefix and the logical topic
func TopicName(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// NoopPublisher discards every message
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher for deployments without a broker
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (NoopPublisher) Publish(context.Context, Message) error { return nil }

func (NoopPublisher) Close() error { return nil }

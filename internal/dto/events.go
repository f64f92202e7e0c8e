package dto

import "time"

// Topic names for domain events
const (
	TopicRegistrationCreated   = "registration.created"
	TopicRegistrationCancelled = "registration.cancelled"
	TopicEventCreated          = "event.created"
	TopicEventUpdated          = "event.updated"
	TopicEventDeleted          = "event.deleted"
)

// RegistrationEvent is published after a registration is created or cancelled
type RegistrationEvent struct {
	EventType         string    `json:"event_type"`
	RegistrationID    string    `json:"registration_id"`
	EventID           string    `json:"event_id"`
	EventSlug         string    `json:"event_slug"`
	OrganizerID       string    `json:"organizer_id"`
	UserID            string    `json:"user_id,omitempty"`
	Email             string    `json:"email"`
	Quantity          int       `json:"quantity"`
	Status            string    `json:"status"`
	RegistrationCount int       `json:"registration_count"`
	Timestamp         time.Time `json:"timestamp"`
}

// Topic returns the routing topic
func (e *RegistrationEvent) Topic() string {
	return e.EventType
}

// Key returns the message key for partitioning
func (e *RegistrationEvent) Key() string {
	return e.EventID
}

// EventLifecycleEvent is published after an event is created, updated or deleted
type EventLifecycleEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Slug        string    `json:"slug"`
	OrganizerID string    `json:"organizer_id"`
	Status      string    `json:"status"`
	IsFeatured  bool      `json:"is_featured"`
	Timestamp   time.Time `json:"timestamp"`
}

// Topic returns the routing topic
func (e *EventLifecycleEvent) Topic() string {
	return e.EventType
}

// Key returns the message key for partitioning
func (e *EventLifecycleEvent) Key() string {
	return e.EventID
}

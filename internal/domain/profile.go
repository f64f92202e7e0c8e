package domain

import "time"

// OrganizerProfile carries informational aggregates for an organizer
type OrganizerProfile struct {
	UserID         string    `json:"user_id"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	Website        string    `json:"website"`
	TotalEvents    int       `json:"total_events"`
	TotalAttendees int       `json:"total_attendees"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Like is a user's presence marker on an event
type Like struct {
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

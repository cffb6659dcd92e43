package domain

import "time"

type EventType string

const (
	EventImageCreated EventType = "image.created"
	EventLinkIssued   EventType = "link.issued"
)

type Event struct {
	Type       EventType `json:"type"`
	ImageID    string    `json:"image_id"`
	OwnerID    string    `json:"owner_id,omitempty"`
	Children   []string  `json:"children,omitempty"`
	LinkID     string    `json:"link_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitzero"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublishTimeout bounds how long a request waits for an event to be
// accepted by the broker.
const EventPublishTimeout = 2 * time.Second

package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification lifecycle event on the event stream.
type EventType string

const (
	EventBroadcastCreated EventType = "notification.created"
	EventRecipientRead    EventType = "notification.read"
)

// Event is the envelope published to Kafka for downstream consumers
// (dashboards, audit).
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// BroadcastCreatedData describes a freshly composed broadcast.
type BroadcastCreatedData struct {
	NotificationID string   `json:"notification_id"`
	Category       string   `json:"category"`
	BaseIDs        []string `json:"base_ids"`
	RecipientCount int      `json:"recipient_count"`
	EmailCount     int      `json:"email_count"`
}

// RecipientReadData describes a recipient row transitioning to read.
type RecipientReadData struct {
	NotificationID string    `json:"notification_id,omitempty"`
	RecipientID    string    `json:"recipient_id"`
	ReadAt         time.Time `json:"read_at"`
}

// NewEvent wraps data in an event envelope with a fresh id.
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        "evt_" + uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ReadStore is the tracker's view of the store.
type ReadStore interface {
	MarkRead(ctx context.Context, recipientID string, at time.Time) error
}

// Tracker records that a recipient read a notification. It is invoked
// out-of-band, typically from the link embedded in the email.
type Tracker struct {
	store  ReadStore
	events EventPublisher
	log    *slog.Logger
}

func NewTracker(store ReadStore, events EventPublisher, log *slog.Logger) *Tracker {
	return &Tracker{store: store, events: events, log: log}
}

// MarkRead sets the row to read with the current time. Repeated calls on
// the same id succeed without changing the original read_at; an unknown id
// returns ErrRecipientNotFound.
func (t *Tracker) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	now := time.Now().UTC()
	if err := t.store.MarkRead(ctx, recipientID, now); err != nil {
		if !errors.Is(err, ErrRecipientNotFound) {
			t.log.Error("failed to mark recipient read", "recipient_id", recipientID, "error", err)
		}
		return err
	}

	ReadsRecorded.Inc()
	t.publishRead(ctx, notificationID, recipientID, now)
	return nil
}

func (t *Tracker) publishRead(ctx context.Context, notificationID, recipientID string, at time.Time) {
	if t.events == nil {
		return
	}

	event, err := NewEvent(EventRecipientRead, RecipientReadData{
		NotificationID: notificationID,
		RecipientID:    recipientID,
		ReadAt:         at,
	})
	if err != nil {
		t.log.Error("failed to build read event", "error", err)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.log.Error("failed to marshal read event", "error", err)
		return
	}
	if err := t.events.Publish(ctx, recipientID, payload); err != nil {
		t.log.Error("failed to publish read event", "recipient_id", recipientID, "error", err)
	}
}

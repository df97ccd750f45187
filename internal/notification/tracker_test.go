package notification

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type mockReadStore struct {
	MarkReadFunc func(ctx context.Context, recipientID string, at time.Time) error
	calls        []string
}

func (m *mockReadStore) MarkRead(ctx context.Context, recipientID string, at time.Time) error {
	m.calls = append(m.calls, recipientID)
	return m.MarkReadFunc(ctx, recipientID, at)
}

func TestTracker_MarkRead(t *testing.T) {
	store := &mockReadStore{
		MarkReadFunc: func(ctx context.Context, recipientID string, at time.Time) error {
			return nil
		},
	}
	events := &mockPublisher{}
	tracker := NewTracker(store, events, slog.Default())

	if err := tracker.MarkRead(context.Background(), "notif-1", "rec-7"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if len(store.calls) != 1 || store.calls[0] != "rec-7" {
		t.Errorf("store called with %v", store.calls)
	}
	if len(events.payloads) != 1 {
		t.Errorf("expected one read event, got %d", len(events.payloads))
	}
}

func TestTracker_MarkRead_NotFound(t *testing.T) {
	store := &mockReadStore{
		MarkReadFunc: func(ctx context.Context, recipientID string, at time.Time) error {
			return ErrRecipientNotFound
		},
	}
	events := &mockPublisher{}
	tracker := NewTracker(store, events, slog.Default())

	err := tracker.MarkRead(context.Background(), "notif-1", "nope")
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
	if len(events.payloads) != 0 {
		t.Error("no read event for a missing recipient")
	}
}

func TestTracker_MarkRead_EventPublishFailureIsSwallowed(t *testing.T) {
	store := &mockReadStore{
		MarkReadFunc: func(ctx context.Context, recipientID string, at time.Time) error {
			return nil
		},
	}
	events := &mockPublisher{err: errors.New("broker down")}
	tracker := NewTracker(store, events, slog.Default())

	if err := tracker.MarkRead(context.Background(), "notif-1", "rec-7"); err != nil {
		t.Fatalf("a failed event publish must not fail the read mark, got %v", err)
	}
}

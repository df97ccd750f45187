package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RecipientResolver is the composer's view of the resolver.
type RecipientResolver interface {
	Resolve(ctx context.Context, baseIDs []string) ([]User, error)
}

// BroadcastStore is the composer's view of the store.
type BroadcastStore interface {
	CategoryExists(ctx context.Context, id string) (bool, error)
	CreateBroadcast(ctx context.Context, b *Broadcast) error
}

// DrainSignaler wakes the dispatch worker. The signal is one-way: the
// composer never learns, and must not wait for, delivery results.
type DrainSignaler interface {
	SignalDrain(ctx context.Context) error
}

// EventPublisher pushes lifecycle events to the event stream.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Composer validates a draft, resolves its recipients, persists the whole
// broadcast in one transaction and signals the email dispatch worker.
type Composer struct {
	resolver RecipientResolver
	store    BroadcastStore
	queue    DrainSignaler
	events   EventPublisher
	signer   *LinkSigner
	log      *slog.Logger
}

func NewComposer(resolver RecipientResolver, store BroadcastStore, queue DrainSignaler, events EventPublisher, signer *LinkSigner, log *slog.Logger) *Composer {
	return &Composer{
		resolver: resolver,
		store:    store,
		queue:    queue,
		events:   events,
		signer:   signer,
		log:      log,
	}
}

// Compose fans one draft out to the resolved recipient set. It fails fast
// before any write on validation or resolution errors; after that the store
// transaction makes the broadcast all-or-nothing. Compose is not idempotent:
// the same draft composed twice creates two notifications.
func (c *Composer) Compose(ctx context.Context, draft *Draft, authorID string) (*ComposeResult, error) {
	timer := prometheus.NewTimer(ComposeLatency)
	defer timer.ObserveDuration()

	if err := draft.Validate(); err != nil {
		BroadcastsComposed.WithLabelValues("invalid").Inc()
		return nil, err
	}

	known, err := c.store.CategoryExists(ctx, draft.Category)
	if err != nil {
		BroadcastsComposed.WithLabelValues("error").Inc()
		return nil, err
	}
	if !known {
		BroadcastsComposed.WithLabelValues("invalid").Inc()
		return nil, ErrUnknownCategory
	}

	users, err := c.resolver.Resolve(ctx, draft.BaseIDs)
	if err != nil {
		BroadcastsComposed.WithLabelValues("error").Inc()
		return nil, err
	}

	broadcast, err := c.buildBroadcast(draft, authorID, users)
	if err != nil {
		BroadcastsComposed.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := c.store.CreateBroadcast(ctx, broadcast); err != nil {
		BroadcastsComposed.WithLabelValues("error").Inc()
		return nil, err
	}

	BroadcastsComposed.WithLabelValues("ok").Inc()
	EmailsEnqueued.Add(float64(len(broadcast.Emails)))

	// Wake the dispatcher and announce the broadcast. Both are
	// fire-and-forget: the broadcast is already durable and the worker
	// also polls, so a lost signal delays delivery instead of losing it.
	if err := c.queue.SignalDrain(ctx); err != nil {
		c.log.Error("failed to signal email dispatch", "notification_id", broadcast.Notification.ID, "error", err)
	}
	c.publishCreated(ctx, broadcast)

	return &ComposeResult{
		NotificationID: broadcast.Notification.ID,
		RecipientCount: len(broadcast.Deliveries),
		EmailCount:     len(broadcast.Emails),
	}, nil
}

// buildBroadcast materializes the notification, one delivery row per
// resolved user and one email job per user with a resolvable address.
// Ids are generated here so read links can be rendered before any insert.
func (c *Composer) buildBroadcast(draft *Draft, authorID string, users []User) (*Broadcast, error) {
	now := time.Now().UTC()
	n := Notification{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Body:        draft.Body,
		Category:    draft.Category,
		Attachments: draft.Attachments,
		AuthorID:    authorID,
		CreatedAt:   now,
	}

	deliveries := make([]RecipientDelivery, 0, len(users))
	emails := make([]EmailJob, 0, len(users))
	for _, u := range users {
		d := RecipientDelivery{
			ID:             uuid.New().String(),
			NotificationID: n.ID,
			UserID:         u.ID,
			State:          StatePending,
		}
		deliveries = append(deliveries, d)

		if u.Email == "" {
			continue
		}

		readURL, err := c.signer.ReadURL(n.ID, d.ID)
		if err != nil {
			return nil, err
		}
		body, err := RenderEmailBody(u.Name, n.Body, n.Category, now, readURL)
		if err != nil {
			return nil, err
		}
		emails = append(emails, EmailJob{
			ID:             uuid.New().String(),
			NotificationID: n.ID,
			RecipientID:    d.ID,
			ToEmail:        u.Email,
			Subject:        n.Title,
			Body:           body,
			Status:         JobPending,
			CreatedAt:      now,
		})
	}

	return &Broadcast{
		Notification: n,
		BaseIDs:      draft.BaseIDs,
		Deliveries:   deliveries,
		Emails:       emails,
	}, nil
}

func (c *Composer) publishCreated(ctx context.Context, b *Broadcast) {
	if c.events == nil {
		return
	}

	event, err := NewEvent(EventBroadcastCreated, BroadcastCreatedData{
		NotificationID: b.Notification.ID,
		Category:       b.Notification.Category,
		BaseIDs:        b.BaseIDs,
		RecipientCount: len(b.Deliveries),
		EmailCount:     len(b.Emails),
	})
	if err != nil {
		c.log.Error("failed to build created event", "error", err)
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		c.log.Error("failed to marshal created event", "error", err)
		return
	}
	if err := c.events.Publish(ctx, b.Notification.ID, payload); err != nil {
		c.log.Error("failed to publish created event", "notification_id", b.Notification.ID, "error", err)
	}
}

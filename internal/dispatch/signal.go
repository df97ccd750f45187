package dispatch

import (
	"context"
	"encoding/json"
	"time"
)

// drainSignal is the message published to wake the worker. It carries no
// payload the worker depends on; the outbox itself is the source of truth.
type drainSignal struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// QueuePublisher is the piece of the message client the signaler needs.
type QueuePublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// Signaler sends fire-and-forget drain signals to the dispatch queue.
type Signaler struct {
	queue     QueuePublisher
	queueName string
}

func NewSignaler(queue QueuePublisher, queueName string) *Signaler {
	return &Signaler{queue: queue, queueName: queueName}
}

func (s *Signaler) SignalDrain(ctx context.Context) error {
	body, err := json.Marshal(drainSignal{Reason: "compose", At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return s.queue.Publish(ctx, s.queueName, body)
}

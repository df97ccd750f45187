package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/camfleet/fleetnotify/internal/notification"
)

// JobSource is the worker's view of the outbox.
type JobSource interface {
	Claim(ctx context.Context, limit int) (Claimed, error)
	PendingCount(ctx context.Context) (int, error)
}

// Worker drains the email outbox. It wakes on drain signals from the
// compose path and on a poll interval, so a lost signal only delays
// delivery. Claimed rows stay locked until their settles commit, so an
// overlapping drain or a second replica can never pick up the same job.
// A Redis key per job id additionally covers the crash window between a
// successful send and the batch commit.
type Worker struct {
	outbox         JobSource
	sender         Sender
	redis          *redis.Client
	log            *slog.Logger
	batchSize      int
	maxAttempts    int
	idempotencyTTL time.Duration
}

func NewWorker(outbox JobSource, sender Sender, redisClient *redis.Client, log *slog.Logger, batchSize, maxAttempts int, idempotencyTTL time.Duration) *Worker {
	return &Worker{
		outbox:         outbox,
		sender:         sender,
		redis:          redisClient,
		log:            log,
		batchSize:      batchSize,
		maxAttempts:    maxAttempts,
		idempotencyTTL: idempotencyTTL,
	}
}

// Drain claims and processes pending jobs batch by batch until the outbox
// is empty. Each batch commits before the next claim, so a crash loses at
// most the settles of the batch in flight.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		batch, err := w.outbox.Claim(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if batch == nil {
			w.updateBacklog(ctx)
			return nil
		}

		jobs := batch.Jobs()
		for _, job := range jobs {
			if err := w.processJob(ctx, batch, job); err != nil {
				w.log.Error("failed to process email job", "job_id", job.ID, "to", job.ToEmail, "error", err)
			}
			if ctx.Err() != nil {
				// Keep the settles of the jobs already processed.
				if err := batch.Close(); err != nil {
					w.log.Error("failed to commit claimed batch", "error", err)
				}
				return ctx.Err()
			}
		}

		if err := batch.Close(); err != nil {
			return err
		}
		if len(jobs) < w.batchSize {
			w.updateBacklog(ctx)
			return nil
		}
	}
}

func (w *Worker) processJob(ctx context.Context, batch Claimed, job notification.EmailJob) error {
	sent, err := w.alreadySent(ctx, job.ID)
	if err != nil {
		w.log.Warn("redis idempotency check failed, proceeding", "job_id", job.ID, "error", err)
	} else if sent {
		w.log.Info("job already sent, settling row", "job_id", job.ID)
		return batch.MarkSent(ctx, job.ID)
	}

	if err := w.sender.Send(ctx, job.ToEmail, job.Subject, job.Body); err != nil {
		EmailsProcessed.WithLabelValues("failed").Inc()
		if markErr := batch.MarkFailed(ctx, job.ID, err.Error(), w.maxAttempts); markErr != nil {
			return fmt.Errorf("send failed (%v) and could not record failure: %w", err, markErr)
		}
		return err
	}

	// The key is set before the commit so a crash in between leaves a
	// pending row the next drain settles without re-sending.
	w.rememberSent(ctx, job.ID)
	EmailsProcessed.WithLabelValues("sent").Inc()

	if err := batch.MarkSent(ctx, job.ID); err != nil {
		return err
	}
	w.log.Info("email sent", "job_id", job.ID, "notification_id", job.NotificationID, "to", job.ToEmail)
	return nil
}

func (w *Worker) alreadySent(ctx context.Context, jobID string) (bool, error) {
	if w.redis == nil {
		return false, nil
	}
	n, err := w.redis.Exists(ctx, idempotencyKey(jobID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (w *Worker) rememberSent(ctx context.Context, jobID string) {
	if w.redis == nil {
		return
	}
	if err := w.redis.Set(ctx, idempotencyKey(jobID), "1", w.idempotencyTTL).Err(); err != nil {
		w.log.Warn("failed to record idempotency key", "job_id", jobID, "error", err)
	}
}

func (w *Worker) updateBacklog(ctx context.Context) {
	n, err := w.outbox.PendingCount(ctx)
	if err != nil {
		w.log.Warn("failed to read outbox backlog", "error", err)
		return
	}
	OutboxBacklog.Set(float64(n))
}

func idempotencyKey(jobID string) string {
	return "email:sent:" + jobID
}

// RunPoller drains on a fixed interval until ctx is cancelled. It backs up
// the signal-driven path.
func (w *Worker) RunPoller(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil && ctx.Err() == nil {
				w.log.Error("scheduled outbox drain failed", "error", err)
			}
		}
	}
}

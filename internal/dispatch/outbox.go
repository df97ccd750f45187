package dispatch

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/camfleet/fleetnotify/internal/notification"
)

// Outbox reads and settles email jobs. The composer is the only writer of
// new rows; this side owns the pending -> sent/failed transitions.
type Outbox struct {
	db *sql.DB
}

func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

// Claimed is a batch of jobs locked for exclusive processing. Settles are
// written on the claim transaction; Close commits them and releases the
// row locks. Rows left unsettled at Close stay pending for the next claim.
type Claimed interface {
	Jobs() []notification.EmailJob
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, sendErr string, maxAttempts int) error
	Close() error
}

// Claim locks up to limit pending jobs, oldest first, with
// FOR UPDATE SKIP LOCKED. Rows held by a concurrent drain or another
// dispatcher replica are skipped, never handed out twice. Returns nil when
// no pending row is claimable.
func (o *Outbox) Claim(ctx context.Context, limit int) (Claimed, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, notification_id, recipient_id, to_email, subject, body,
		       status, attempts, COALESCE(last_error, ''), created_at
		FROM email_outbox
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, notification.JobPending, limit)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to claim outbox batch: %w", err)
	}
	defer rows.Close()

	jobs := []notification.EmailJob{}
	for rows.Next() {
		var j notification.EmailJob
		err := rows.Scan(
			&j.ID, &j.NotificationID, &j.RecipientID, &j.ToEmail, &j.Subject,
			&j.Body, &j.Status, &j.Attempts, &j.LastError, &j.CreatedAt,
		)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to claim outbox batch: %w", err)
	}

	if len(jobs) == 0 {
		tx.Rollback()
		return nil, nil
	}
	return &claimedBatch{tx: tx, jobs: jobs}, nil
}

type claimedBatch struct {
	tx   *sql.Tx
	jobs []notification.EmailJob
}

func (b *claimedBatch) Jobs() []notification.EmailJob { return b.jobs }

// MarkSent settles a job after a successful send.
func (b *claimedBatch) MarkSent(ctx context.Context, id string) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE email_outbox
		SET status = $1, attempts = attempts + 1, last_error = NULL, updated_at = now()
		WHERE id = $2
	`, notification.JobSent, id)
	if err != nil {
		return fmt.Errorf("failed to mark job sent: %w", err)
	}
	return nil
}

// MarkFailed records a send failure. The job stays pending for another
// drain until its attempt count reaches maxAttempts, then becomes failed.
func (b *claimedBatch) MarkFailed(ctx context.Context, id, sendErr string, maxAttempts int) error {
	_, err := b.tx.ExecContext(ctx, `
		UPDATE email_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    updated_at = now(),
		    status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1
	`, id, sendErr, maxAttempts, notification.JobFailed)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

func (b *claimedBatch) Close() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to settle claimed batch: %w", err)
	}
	return nil
}

// PendingCount reports the current outbox backlog.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_outbox WHERE status = $1`, notification.JobPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return n, nil
}

package notification

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Store owns the notification tables and the referential consistency
// between a notification, its base associations, its recipient rows and
// its outbox email jobs.
type Store struct {
	db      DB
	timeout time.Duration
}

// NewStore wraps db. A non-zero timeout bounds every store call; an expired
// call surfaces as a persistence failure to the caller.
func NewStore(db *sql.DB, timeout time.Duration) *Store {
	return &Store{db: sqlDB{db: db}, timeout: timeout}
}

// NewTestStore builds a Store on a substitute DB, with no call timeout.
func NewTestStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

// CategoryExists checks the category against the known-categories table.
func (s *Store) CategoryExists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_categories WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, &PersistenceError{Op: "check category", Err: err}
	}
	return exists, nil
}

// CreateBroadcast persists the notification, its base associations, its
// recipient delivery rows and its outbox email jobs in a single
// transaction. Either the whole broadcast becomes visible or none of it
// does; a notification can never be observed with a partial recipient set.
func (s *Store) CreateBroadcast(ctx context.Context, b *Broadcast) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return &PersistenceError{Op: "begin broadcast", Err: err}
	}
	defer tx.Rollback()

	n := &b.Notification
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notifications (id, title, body, category, attachments, author_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, n.ID, n.Title, n.Body, n.Category, n.Attachments, n.AuthorID, n.CreatedAt)
	if err != nil {
		return &PersistenceError{Op: "insert notification", Err: err}
	}

	for _, baseID := range b.BaseIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notification_bases (notification_id, base_id)
			VALUES ($1, $2)
		`, n.ID, baseID)
		if err != nil {
			return &PersistenceError{Op: "insert base association", Err: err}
		}
	}

	for _, d := range b.Deliveries {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notification_recipients (id, notification_id, user_id, state)
			VALUES ($1, $2, $3, $4)
		`, d.ID, d.NotificationID, d.UserID, d.State)
		if err != nil {
			return &PersistenceError{Op: "insert recipient delivery", Err: err}
		}
	}

	for _, job := range b.Emails {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO email_outbox (id, notification_id, recipient_id, to_email, subject, body, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, job.ID, job.NotificationID, job.RecipientID, job.ToEmail, job.Subject, job.Body, job.Status, job.CreatedAt)
		if err != nil {
			return &PersistenceError{Op: "insert email job", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit broadcast", Err: err}
	}
	return nil
}

// MarkRead transitions a recipient row pending -> read. The conditional
// update makes concurrent duplicate calls safe: the first writer sets
// read_at and every later call is a success no-op that leaves it untouched.
// An unknown id reports ErrRecipientNotFound.
func (s *Store) MarkRead(ctx context.Context, recipientID string, at time.Time) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_recipients
		SET state = $1, read_at = $2
		WHERE id = $3 AND state = $4
	`, StateRead, at, recipientID, StatePending)
	if err != nil {
		return &PersistenceError{Op: "mark read", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "mark read", Err: err}
	}
	if affected > 0 {
		return nil
	}

	// Nothing updated: either the row is already read or it does not exist.
	var state DeliveryState
	err = s.db.QueryRowContext(ctx,
		`SELECT state FROM notification_recipients WHERE id = $1`, recipientID,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return ErrRecipientNotFound
	}
	if err != nil {
		return &PersistenceError{Op: "mark read lookup", Err: err}
	}
	return nil
}

// List returns every notification newest first, ties broken by insertion
// order, with its base ids and recipient counts embedded.
func (s *Store) List(ctx context.Context) ([]ListItem, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	query := `
		SELECT n.id, n.title, n.body, n.category, n.attachments, n.author_id,
		       COALESCE(u.name, ''), n.created_at,
		       COALESCE((SELECT array_agg(nb.base_id ORDER BY nb.base_id)
		                 FROM notification_bases nb
		                 WHERE nb.notification_id = n.id), '{}'),
		       (SELECT COUNT(*) FROM notification_recipients r
		        WHERE r.notification_id = n.id),
		       (SELECT COUNT(*) FROM notification_recipients r
		        WHERE r.notification_id = n.id AND r.state = $1)
		FROM notifications n
		LEFT JOIN users u ON u.id = n.author_id
		ORDER BY n.created_at DESC, n.seq DESC
	`
	rows, err := s.db.QueryContext(ctx, query, StateRead)
	if err != nil {
		return nil, &PersistenceError{Op: "list notifications", Err: err}
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var item ListItem
		var baseIDs pq.StringArray
		err := rows.Scan(
			&item.ID, &item.Title, &item.Body, &item.Category, &item.Attachments,
			&item.AuthorID, &item.AuthorName, &item.CreatedAt,
			&baseIDs, &item.RecipientCount, &item.ReadCount,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "scan notification", Err: err}
		}
		item.BaseIDs = baseIDs
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "list notifications", Err: err}
	}
	return items, nil
}

// Detail returns one notification with its full recipient list, or
// ErrNotificationNotFound.
func (s *Store) Detail(ctx context.Context, id string) (*DetailView, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	var view DetailView
	var baseIDs pq.StringArray
	err := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.title, n.body, n.category, n.attachments, n.author_id,
		       COALESCE(u.name, ''), n.created_at,
		       COALESCE((SELECT array_agg(nb.base_id ORDER BY nb.base_id)
		                 FROM notification_bases nb
		                 WHERE nb.notification_id = n.id), '{}')
		FROM notifications n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.id = $1
	`, id).Scan(
		&view.ID, &view.Title, &view.Body, &view.Category, &view.Attachments,
		&view.AuthorID, &view.AuthorName, &view.CreatedAt, &baseIDs,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get notification", Err: err}
	}
	view.BaseIDs = baseIDs

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.notification_id, r.user_id, r.state, r.read_at,
		       COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM notification_recipients r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.notification_id = $1
		ORDER BY u.name, r.id
	`, id)
	if err != nil {
		return nil, &PersistenceError{Op: "get recipients", Err: err}
	}
	defer rows.Close()

	view.Recipients = []RecipientSummary{}
	for rows.Next() {
		var rec RecipientSummary
		err := rows.Scan(
			&rec.ID, &rec.NotificationID, &rec.UserID, &rec.State, &rec.ReadAt,
			&rec.UserName, &rec.UserEmail,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "scan recipient", Err: err}
		}
		view.Recipients = append(view.Recipients, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "get recipients", Err: err}
	}
	return &view, nil
}

package notification

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeliveryState tracks whether a recipient has read a notification.
// The only legal transition is pending -> read.
type DeliveryState string

const (
	StatePending DeliveryState = "pending"
	StateRead    DeliveryState = "read"
)

// JobStatus is the lifecycle of an outbox email job. It is owned by the
// dispatch worker; the composer only ever creates pending jobs.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
)

// MaxAttachments bounds the attachment list of a single notification.
const MaxAttachments = 3

// Attachment is a display-name plus retrievable location pair.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Attachments is stored as a JSONB column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		a = Attachments{}
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(value interface{}) error {
	if value == nil {
		*a = Attachments{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan type %T into Attachments", value)
	}
	return json.Unmarshal(b, a)
}

// Notification is a single authored broadcast. It is immutable after
// creation; only its recipient rows change state afterwards.
type Notification struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	Category    string      `json:"category"`
	Attachments Attachments `json:"attachments"`
	AuthorID    string      `json:"author_id"`
	CreatedAt   time.Time   `json:"created_at"`
}

// RecipientDelivery is the per-user tracking row for one notification.
type RecipientDelivery struct {
	ID             string        `json:"id"`
	NotificationID string        `json:"notification_id"`
	UserID         string        `json:"user_id"`
	State          DeliveryState `json:"state"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
}

// User is a base member eligible to receive notifications.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	BaseID string `json:"base_id"`
}

// Base is an organizational unit used to scope notification targeting.
type Base struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EmailJob is one pending outbox email for a recipient with a resolvable
// address. At most one job exists per (notification, recipient) pair.
type EmailJob struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	ToEmail        string    `json:"to_email"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	Status         JobStatus `json:"status"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Draft is the compose-time input validated before any write.
type Draft struct {
	Title       string      `json:"title"`
	Body        string      `json:"body"`
	Category    string      `json:"category"`
	BaseIDs     []string    `json:"base_ids"`
	Attachments Attachments `json:"attachments"`
}

// Validate applies the field checks that do not need store access.
func (d *Draft) Validate() error {
	if d.Title == "" {
		return ErrEmptyTitle
	}
	if d.Body == "" {
		return ErrEmptyBody
	}
	if d.Category == "" {
		return ErrUnknownCategory
	}
	if len(d.BaseIDs) == 0 {
		return ErrNoBases
	}
	if len(d.Attachments) > MaxAttachments {
		return ErrTooManyAttachments
	}
	return nil
}

// ComposeResult reports what a compose actually achieved.
type ComposeResult struct {
	NotificationID string `json:"notification_id"`
	RecipientCount int    `json:"recipient_count"`
	EmailCount     int    `json:"email_count"`
}

// Broadcast is the fully materialized unit persisted in one transaction.
type Broadcast struct {
	Notification Notification
	BaseIDs      []string
	Deliveries   []RecipientDelivery
	Emails       []EmailJob
}

// RecipientSummary is the delivery row joined with its user for display.
type RecipientSummary struct {
	RecipientDelivery
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ListItem is one row of the newest-first notification listing.
type ListItem struct {
	Notification
	AuthorName     string   `json:"author_name"`
	BaseIDs        []string `json:"base_ids"`
	RecipientCount int      `json:"recipient_count"`
	ReadCount      int      `json:"read_count"`
}

// DetailView is a single notification with its full recipient list.
type DetailView struct {
	Notification
	AuthorName string             `json:"author_name"`
	BaseIDs    []string           `json:"base_ids"`
	Recipients []RecipientSummary `json:"recipients"`
}

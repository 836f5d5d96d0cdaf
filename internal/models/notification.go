package models

import "time"

// NotificationStatus tracks an outbox row through delivery.
type NotificationStatus string

const (
	// NotificationStatusPending means the row is waiting to be claimed.
	NotificationStatusPending NotificationStatus = "pending"
	// NotificationStatusSending means a dispatcher has claimed the row.
	NotificationStatusSending NotificationStatus = "sending"
	// NotificationStatusSent means delivery succeeded.
	NotificationStatusSent NotificationStatus = "sent"
	// NotificationStatusFailed means delivery was abandoned after the
	// configured number of attempts.
	NotificationStatusFailed NotificationStatus = "failed"
)

// Notification is a queued email. Workflows append rows here after committing
// their own state; the outbox dispatcher drains the table asynchronously.
// A delivery failure never reverses the state transition that enqueued it.
type Notification struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	Recipient     string             `gorm:"size:254;not null" json:"recipient"`
	Subject       string             `gorm:"size:200;not null" json:"subject"`
	Body          string             `gorm:"type:text;not null" json:"body"`
	Status        NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts      int                `gorm:"not null;default:0" json:"attempts"`
	LastError     string             `gorm:"type:text" json:"last_error"`
	NextAttemptAt time.Time          `gorm:"not null;index" json:"next_attempt_at"`
	SentAt        *time.Time         `json:"sent_at"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

package models

import "time"

// TicketCategory classifies a support ticket.
type TicketCategory string

const (
	TicketCategoryResources TicketCategory = "resources"
	TicketCategoryLegal     TicketCategory = "legal"
	TicketCategoryMedical   TicketCategory = "medical"
	TicketCategoryOther     TicketCategory = "other"
)

// TicketStatus is the workflow state of a support ticket. Any status is
// reachable from any other; only the enumeration is enforced.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketVisibility controls which queue a ticket appears in.
type TicketVisibility string

const (
	TicketVisibilityMember TicketVisibility = "member"
	TicketVisibilityAdmin  TicketVisibility = "admin"
)

// SupportTicket is a private request thread opened by a member. LastUpdated
// is monotonically non-decreasing and never behind any message in the thread.
type SupportTicket struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	CreatedByUserID uint             `gorm:"not null;index" json:"created_by_user_id"`
	CreatedByUser   *User            `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	Category        TicketCategory   `gorm:"type:varchar(20);not null" json:"category"`
	Subject         string           `gorm:"size:120;not null" json:"subject"`
	Body            string           `gorm:"type:text;not null" json:"body"`
	Status          TicketStatus     `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Visibility      TicketVisibility `gorm:"type:varchar(20);not null;default:'admin'" json:"visibility"`
	UrgentNote      string           `gorm:"type:text" json:"urgent_note"`
	CreatedAt       time.Time        `json:"created_at"`
	LastUpdated     time.Time        `gorm:"not null;index" json:"last_updated"`
}

// TicketMessage is an append-only thread entry. Internal messages are
// producible by admin-or-above only and never appear in the author-facing
// projection.
type TicketMessage struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	TicketID     uint           `gorm:"not null;index" json:"ticket_id"`
	Ticket       *SupportTicket `gorm:"foreignKey:TicketID" json:"-"`
	AuthorUserID uint           `gorm:"not null" json:"author_user_id"`
	AuthorUser   *User          `gorm:"foreignKey:AuthorUserID" json:"author_user,omitempty"`
	Body         string         `gorm:"type:text;not null" json:"body"`
	IsInternal   bool           `gorm:"not null;default:false" json:"is_internal"`
	CreatedAt    time.Time      `json:"created_at"`
}

package models

import "time"

// AccessRequestStatus defines lifecycle states for onboarding applications.
type AccessRequestStatus string

const (
	// AccessRequestStatusPending indicates the application awaits review.
	AccessRequestStatusPending AccessRequestStatus = "pending"
	// AccessRequestStatusApproved indicates the application was accepted.
	AccessRequestStatusApproved AccessRequestStatus = "approved"
	// AccessRequestStatusDenied indicates the application was turned down.
	AccessRequestStatusDenied AccessRequestStatus = "denied"
)

// AccessRequest is an onboarding application submitted by an unauthenticated
// applicant. Status leaves pending exactly once; approved and denied are
// terminal in both directions.
type AccessRequest struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	FullName         string              `gorm:"size:120;not null" json:"full_name"`
	Email            string              `gorm:"size:254;not null;index" json:"email"`
	Message          string              `gorm:"type:text;not null" json:"message"`
	Status           AccessRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedByUserID *uint               `json:"reviewed_by_user_id"`
	ReviewedByUser   *User               `gorm:"foreignKey:ReviewedByUserID" json:"reviewed_by_user,omitempty"`
	ReviewedAt       *time.Time          `json:"reviewed_at"`
	ReviewNote       string              `gorm:"type:text" json:"review_note"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// AccessRequestDecision is an admin's verdict on a pending request.
type AccessRequestDecision string

const (
	// DecisionApprove provisions the applicant as a member.
	DecisionApprove AccessRequestDecision = "approve"
	// DecisionDeny turns the applicant down.
	DecisionDeny AccessRequestDecision = "deny"
)

// Status returns the terminal status this decision maps to.
func (d AccessRequestDecision) Status() AccessRequestStatus {
	if d == DecisionApprove {
		return AccessRequestStatusApproved
	}
	return AccessRequestStatusDenied
}

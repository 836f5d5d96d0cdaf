package models

import "time"

// Profile holds a member's directory entry. Exactly one per user; it is
// created by the approval side effect or on first self-edit, whichever
// comes first.
type Profile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User         *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DisplayName  string    `gorm:"size:120;not null" json:"display_name"`
	Pronouns     string    `gorm:"size:40" json:"pronouns"`
	Location     string    `gorm:"size:120" json:"location"`
	Bio          string    `gorm:"type:text" json:"bio"`
	ContactEmail string    `gorm:"size:254" json:"contact_email"`
	ShowEmail    bool      `gorm:"not null;default:false" json:"show_email"`
	ShowLocation bool      `gorm:"not null;default:true" json:"show_location"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

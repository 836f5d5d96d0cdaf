package models

import "time"

// Role is a trust tier in Haven's fixed hierarchy:
// new < member < admin < superadmin < god.
// The ordering itself lives in the authz package; nothing else may compare
// roles directly.
type Role string

const (
	// RoleNew is the tier of any principal without a role row.
	RoleNew Role = "new"
	// RoleMember is a vetted community member.
	RoleMember Role = "member"
	// RoleAdmin reviews access requests and works the ticket queue.
	RoleAdmin Role = "admin"
	// RoleSuperadmin manages admins and role assignments.
	RoleSuperadmin Role = "superadmin"
	// RoleGod is the unrestricted operator tier.
	RoleGod Role = "god"
)

// UserRole maps a principal to its single current role. Absence of a row
// means RoleNew; lookups never default upward.
type UserRole struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'new'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

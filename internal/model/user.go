package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants. Members submit claims; officers run the review
// workflow; auditors sign off receipts; admins can do everything.
const (
	RoleMember  = "member"
	RoleOfficer = "officer"
	RoleAuditor = "auditor"
	RoleAdmin   = "admin"
)

// User represents the central user entity for logic and database structure
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`   // Omit password from JSON requests/responses
	Role      string         `gorm:"type:varchar(50);not null" json:"role"` // member, officer, auditor, admin
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// ValidRole reports whether role is one of the role enum values.
func ValidRole(role string) bool {
	switch role {
	case RoleMember, RoleOfficer, RoleAuditor, RoleAdmin:
		return true
	}
	return false
}

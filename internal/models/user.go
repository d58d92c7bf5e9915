package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleHR       = "hr"
	RoleEmployee = "employee"
	RoleCoach    = "coach"
)

type User struct {
	gorm.Model
	Email          string `gorm:"uniqueIndex;not null"`
	Password       string `gorm:"not null"`
	Name           string `gorm:"not null"`
	Role           string `gorm:"default:'employee'"`
	OrganizationID *uint  `gorm:"index"` // nil for platform admins
	Status         string `gorm:"default:'active'"`
	TokenVersion   int    `gorm:"default:1"`
	LastLoginAt    time.Time
}

// BelongsTo reports whether the user is a member of the organization.
func (u *User) BelongsTo(orgID uint) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}

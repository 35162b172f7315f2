package models

import "time"

// Platform roles. Authentication itself is an external collaborator; this
// backend only needs the stored role to build the policy actor per request.
const (
	RoleOwner    = "owner"
	RoleEmployee = "employee"
	RoleVendor   = "vendor"
	RoleClient   = "client"
)

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Role      string `gorm:"not null"` // owner, employee, vendor, client
	CreatedAt time.Time
	UpdatedAt time.Time
}

package models

import "time"

// Project is the construction project that owns material requests and orders.
// Only the fields the negotiation engine depends on are modeled here; the rest
// of project CRUD lives outside this core.
type Project struct {
	ID          uint                `gorm:"primaryKey"`
	Name        string              `gorm:"not null"`
	ClientID    uint                `gorm:"not null;index"`
	Assignments []ProjectAssignment `gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectAssignment links an employee to a project. Employees get read/write
// access to every order under their assigned projects.
type ProjectAssignment struct {
	ID        uint `gorm:"primaryKey"`
	ProjectID uint `gorm:"not null;uniqueIndex:idx_project_employee"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_project_employee"`
	CreatedAt time.Time
}

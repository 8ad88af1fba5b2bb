package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewerProfile describes a reviewer. MaxConcurrentAssignments is informational;
// reviewer selection does not consult it.
type ReviewerProfile struct {
	UserID                   int                         `gorm:"primaryKey;column:user_id;autoIncrement:false" json:"user_id"`
	Expertise                datatypes.JSONSlice[string] `gorm:"column:expertise" json:"expertise"`
	MaxConcurrentAssignments int                         `gorm:"column:max_concurrent_assignments" json:"max_concurrent_assignments"`
	Role                     string                      `gorm:"column:role;size:32" json:"role"`
	CreatedAt                time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt                time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (ReviewerProfile) TableName() string {
	return "reviewer_profiles"
}

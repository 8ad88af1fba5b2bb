package models

import "time"

// AbstractStatusHistory tracks historical status changes for abstracts.
type AbstractStatusHistory struct {
	HistoryID  int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	AbstractID int       `gorm:"column:abstract_id;index" json:"abstract_id"`
	OldStatus  *string   `gorm:"column:old_status;size:32" json:"old_status"`
	NewStatus  string    `gorm:"column:new_status;size:32" json:"new_status"`
	ChangedBy  int       `gorm:"column:changed_by" json:"changed_by"`
	Notes      *string   `gorm:"column:notes" json:"notes"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for AbstractStatusHistory.
func (AbstractStatusHistory) TableName() string {
	return "abstract_status_history"
}

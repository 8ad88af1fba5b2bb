package models

import "time"

// Keys of the documents kept in abstract_config.
const (
	ConfigKeyAbstractsSettings = "abstracts_settings"
	ConfigKeyAssignmentRules   = "assignment_rules"
)

// AbstractConfig is a keyed JSON blob holding one admin-maintained document.
type AbstractConfig struct {
	Key       string    `gorm:"primaryKey;column:key;size:64" json:"key"`
	Value     string    `gorm:"column:value;type:longtext" json:"value"`
	UpdatedBy *int      `gorm:"column:updated_by" json:"updated_by,omitempty"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AbstractConfig) TableName() string {
	return "abstract_config"
}

// RoundRobinCursor stores the next offset into a track's reviewer list.
type RoundRobinCursor struct {
	Track     string    `gorm:"primaryKey;column:track;size:191" json:"track"`
	Position  int       `gorm:"column:position" json:"position"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (RoundRobinCursor) TableName() string {
	return "abstract_round_robin_cursors"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Abstract lifecycle states.
const (
	AbstractStatusSubmitted      = "submitted"
	AbstractStatusUnderReview    = "under_review"
	AbstractStatusAccepted       = "accepted"
	AbstractStatusRejected       = "rejected"
	AbstractStatusFinalSubmitted = "final_submitted"
)

// FinalCodeSuffix is appended to the display code for the final-stage submission.
const FinalCodeSuffix = "-F"

// AbstractAuthor is one entry of the author list stored with a submission.
type AbstractAuthor struct {
	Name         string `json:"name" yaml:"name"`
	Affiliation  string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty"`
	IsPresenting bool   `json:"is_presenting,omitempty" yaml:"is_presenting,omitempty"`
}

// AbstractSubmission is a research abstract moving through review.
type AbstractSubmission struct {
	ID                  int                                 `gorm:"primaryKey;column:abstract_id" json:"abstract_id"`
	Code                string                              `gorm:"column:code;size:64;uniqueIndex" json:"code"`
	OwnerUserID         int                                 `gorm:"column:owner_user_id;index" json:"owner_user_id"`
	RegistrationRef     *string                             `gorm:"column:registration_ref" json:"registration_ref,omitempty"`
	Track               string                              `gorm:"column:track;size:191;index" json:"track"`
	Category            *string                             `gorm:"column:category;size:191" json:"category,omitempty"`
	Subcategory         *string                             `gorm:"column:subcategory;size:191" json:"subcategory,omitempty"`
	Title               string                              `gorm:"column:title" json:"title"`
	Authors             datatypes.JSONSlice[AbstractAuthor] `gorm:"column:authors" json:"authors"`
	Keywords            datatypes.JSONSlice[string]         `gorm:"column:keywords" json:"keywords"`
	Status              string                              `gorm:"column:status;size:32;index" json:"status"`
	SubmittedAt         time.Time                           `gorm:"column:submitted_at" json:"submitted_at"`
	InitialFileID       *int                                `gorm:"column:initial_file_id" json:"initial_file_id,omitempty"`
	FinalFileID         *int                                `gorm:"column:final_file_id" json:"final_file_id,omitempty"`
	FinalSubmittedAt    *time.Time                          `gorm:"column:final_submitted_at" json:"final_submitted_at,omitempty"`
	FinalDisplayCode    *string                             `gorm:"column:final_display_code;size:70" json:"final_display_code,omitempty"`
	AverageScore        *float64                            `gorm:"column:average_score" json:"average_score,omitempty"`
	DecisionAt          *time.Time                          `gorm:"column:decision_at" json:"decision_at,omitempty"`
	AssignedReviewerIDs datatypes.JSONSlice[int]            `gorm:"column:assigned_reviewer_ids" json:"assigned_reviewer_ids"`
	CreatedAt           time.Time                           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time                           `gorm:"column:updated_at" json:"updated_at"`

	InitialFile *FileUpload `gorm:"foreignKey:InitialFileID" json:"initial_file,omitempty"`
	FinalFile   *FileUpload `gorm:"foreignKey:FinalFileID" json:"final_file,omitempty"`
}

// TableName specifies the table name for GORM
func (AbstractSubmission) TableName() string {
	return "abstract_submissions"
}

// HasReviewer reports whether reviewerID appears in the assignment list.
func (a *AbstractSubmission) HasReviewer(reviewerID int) bool {
	for _, id := range a.AssignedReviewerIDs {
		if id == reviewerID {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave the current status.
func (a *AbstractSubmission) IsTerminal() bool {
	return a.Status == AbstractStatusRejected || a.Status == AbstractStatusFinalSubmitted
}

// ReviewerAssignment is the relational copy of one assignment, used for load scans.
type ReviewerAssignment struct {
	AssignmentID int       `gorm:"primaryKey;column:assignment_id" json:"assignment_id"`
	AbstractID   int       `gorm:"column:abstract_id;uniqueIndex:uq_assignment_pair" json:"abstract_id"`
	ReviewerID   int       `gorm:"column:reviewer_id;uniqueIndex:uq_assignment_pair;index" json:"reviewer_id"`
	Strategy     string    `gorm:"column:strategy;size:32" json:"strategy"`
	AssignedAt   time.Time `gorm:"column:assigned_at" json:"assigned_at"`
}

func (ReviewerAssignment) TableName() string {
	return "abstract_reviewer_assignments"
}

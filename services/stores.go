package services

import (
	"context"
	"time"

	"conference-abstracts-api/models"
)

// SettingsStore persists the admin-maintained documents. Saves replace the whole document.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (models.AbstractsSettings, error)
	SaveSettings(ctx context.Context, settings models.AbstractsSettings, updatedBy int) error
	LoadRules(ctx context.Context) ([]models.AssignmentRule, error)
	SaveRules(ctx context.Context, rules []models.AssignmentRule, updatedBy int) error
}

// CursorStore keeps one round-robin offset per track.
type CursorStore interface {
	// AdvanceCursor returns the current offset for track reduced modulo length and
	// stores (offset+step) mod length, as one atomic step.
	AdvanceCursor(ctx context.Context, track string, step, length int) (int, error)
}

// LoadCounter reports how many active abstracts (submitted or under review) list each reviewer.
// Reviewers with no active abstracts may be absent from the result.
type LoadCounter interface {
	ActiveLoads(ctx context.Context, reviewerIDs []int) (map[int]int, error)
}

// AbstractFilter narrows abstract listings. Zero values mean "any".
type AbstractFilter struct {
	OwnerUserID int
	Status      string
	Track       string
}

// AbstractStore persists abstracts and their lifecycle transitions.
// Transition methods are conditional on the expected current status and
// return ErrInvalidTransition when the row has moved on.
type AbstractStore interface {
	CountByOwner(ctx context.Context, ownerUserID int) (int64, error)
	CountCodesWithPrefix(ctx context.Context, prefix string) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// Create inserts abstract. A positive maxPerOwner is checked against the owner's
	// existing rows atomically with the insert and fails with ErrSubmissionCapReached.
	Create(ctx context.Context, abstract *models.AbstractSubmission, maxPerOwner int) error
	FindByCode(ctx context.Context, code string) (*models.AbstractSubmission, error)
	List(ctx context.Context, filter AbstractFilter) ([]models.AbstractSubmission, error)
	ListAssignedTo(ctx context.Context, reviewerID int) ([]models.AbstractSubmission, error)
	AssignReviewers(ctx context.Context, abstractID int, reviewerIDs []int, strategy string, at time.Time, changedBy int) error
	ApplyDecision(ctx context.Context, abstractID int, status string, averageScore *float64, at time.Time, changedBy int) error
	SaveInitialFile(ctx context.Context, abstractID int, expectedStatus string, upload *models.FileUpload) error
	SaveFinalFile(ctx context.Context, abstractID int, expectedStatus string, upload *models.FileUpload, finalCode string, at time.Time, changedBy int) error
	History(ctx context.Context, abstractID int) ([]models.AbstractStatusHistory, error)
}

// ReviewStore persists reviews. CreateReview returns ErrDuplicateReview when the
// (reviewer, abstract) pair already exists.
type ReviewStore interface {
	CreateReview(ctx context.Context, review *models.AbstractReview) error
	ListByAbstract(ctx context.Context, abstractID int) ([]models.AbstractReview, error)
}

// ReviewerProfileStore persists reviewer profiles.
type ReviewerProfileStore interface {
	ListProfiles(ctx context.Context) ([]models.ReviewerProfile, error)
	UpsertProfile(ctx context.Context, profile *models.ReviewerProfile) error
}

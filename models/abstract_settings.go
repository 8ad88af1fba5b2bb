package models

import "time"

// Reviewer assignment policies.
const (
	AssignmentPolicyLoadBased  = "load_based"
	AssignmentPolicyRoundRobin = "round_robin"
)

// Default values used when no settings document has been stored yet.
const (
	DefaultReviewersPerAbstract = 2
	DefaultMaxFileSizeMB        = 10
)

// AbstractSubcategory is the finest classification level under a category.
type AbstractSubcategory struct {
	Name string `json:"name" yaml:"name"`
}

// AbstractCategory groups subcategories under a track.
type AbstractCategory struct {
	Name          string                `json:"name" yaml:"name"`
	Subcategories []AbstractSubcategory `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
}

// AbstractTrack is a top-level submission category such as "Free Paper" or "Poster".
type AbstractTrack struct {
	Name       string             `json:"name" yaml:"name"`
	Code       string             `json:"code,omitempty" yaml:"code,omitempty"`
	Enabled    bool               `json:"enabled" yaml:"enabled"`
	Categories []AbstractCategory `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// SubmissionWindow bounds when new abstracts may be created. Both ends are inclusive.
type SubmissionWindow struct {
	Enabled bool       `json:"enabled" yaml:"enabled"`
	Start   *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End     *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
}

// FileConstraints restricts uploaded abstract files.
type FileConstraints struct {
	MaxSizeMB        int      `json:"max_size_mb" yaml:"max_size_mb"`
	AllowedMimeTypes []string `json:"allowed_mime_types" yaml:"allowed_mime_types"`
}

// AbstractsSettings is the admin-maintained settings document.
type AbstractsSettings struct {
	Tracks                []AbstractTrack  `json:"tracks" yaml:"tracks"`
	Window                SubmissionWindow `json:"window" yaml:"window"`
	MaxSubmissionsPerUser int              `json:"max_submissions_per_user" yaml:"max_submissions_per_user"`
	AssignmentPolicy      string           `json:"assignment_policy" yaml:"assignment_policy"`
	DefaultReviewerCount  int              `json:"default_reviewer_count" yaml:"default_reviewer_count"`
	FileConstraints       FileConstraints  `json:"file_constraints" yaml:"file_constraints"`
}

// DefaultAbstractsSettings returns the settings used before an admin saves any.
func DefaultAbstractsSettings() AbstractsSettings {
	return AbstractsSettings{
		Tracks:               []AbstractTrack{},
		AssignmentPolicy:     AssignmentPolicyLoadBased,
		DefaultReviewerCount: DefaultReviewersPerAbstract,
		FileConstraints: FileConstraints{
			MaxSizeMB:        DefaultMaxFileSizeMB,
			AllowedMimeTypes: []string{"application/pdf"},
		},
	}
}

// FindTrack returns the track with the given name, if configured.
func (s *AbstractsSettings) FindTrack(name string) (*AbstractTrack, bool) {
	for i := range s.Tracks {
		if s.Tracks[i].Name == name {
			return &s.Tracks[i], true
		}
	}
	return nil, false
}

// IsOpen reports whether now falls inside the window. A disabled window is always open.
func (w SubmissionWindow) IsOpen(now time.Time) bool {
	if !w.Enabled {
		return true
	}
	if w.Start != nil && now.Before(*w.Start) {
		return false
	}
	if w.End != nil && now.After(*w.End) {
		return false
	}
	return true
}

// AssignmentRule maps a (track, category?, subcategory?) scope to a reviewer pool.
type AssignmentRule struct {
	Track                string  `json:"track" yaml:"track"`
	Category             *string `json:"category,omitempty" yaml:"category,omitempty"`
	Subcategory          *string `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	ReviewerIDs          []int   `json:"reviewer_ids" yaml:"reviewer_ids"`
	ReviewersPerAbstract int     `json:"reviewers_per_abstract" yaml:"reviewers_per_abstract"`
}

// UsableReviewerIDs returns the rule's reviewer ids with duplicates and non-positive ids removed,
// preserving list order.
func (r *AssignmentRule) UsableReviewerIDs() []int {
	seen := make(map[int]struct{}, len(r.ReviewerIDs))
	ids := make([]int, 0, len(r.ReviewerIDs))
	for _, id := range r.ReviewerIDs {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

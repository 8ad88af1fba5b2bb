package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"conference-abstracts-api/models"
)

// PublicSettings is the subset of settings shown to authors.
type PublicSettings struct {
	Tracks          []models.AbstractTrack  `json:"tracks"`
	Window          models.SubmissionWindow `json:"window"`
	WindowOpen      bool                    `json:"window_open"`
	FileConstraints models.FileConstraints  `json:"file_constraints"`
}

// SettingsService maintains the settings document, the assignment rules and reviewer profiles.
type SettingsService struct {
	store    SettingsStore
	profiles ReviewerProfileStore
	now      func() time.Time
}

func NewSettingsService(store SettingsStore, profiles ReviewerProfileStore) *SettingsService {
	return &SettingsService{
		store:    store,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SettingsService) GetSettings(ctx context.Context, actor Actor) (models.AbstractsSettings, error) {
	if !actor.IsAdmin() {
		return models.AbstractsSettings{}, ErrAdminOnly
	}
	return s.store.LoadSettings(ctx)
}

// GetPublicSettings returns tracks, window and file constraints for any caller.
func (s *SettingsService) GetPublicSettings(ctx context.Context) (*PublicSettings, error) {
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]models.AbstractTrack, 0, len(settings.Tracks))
	for _, track := range settings.Tracks {
		if track.Enabled {
			enabled = append(enabled, track)
		}
	}
	return &PublicSettings{
		Tracks:          enabled,
		Window:          settings.Window,
		WindowOpen:      settings.Window.IsOpen(s.now()),
		FileConstraints: settings.FileConstraints,
	}, nil
}

// ReplaceSettings validates and stores a full settings document.
func (s *SettingsService) ReplaceSettings(ctx context.Context, actor Actor, settings models.AbstractsSettings) (models.AbstractsSettings, error) {
	if !actor.IsAdmin() {
		return models.AbstractsSettings{}, ErrAdminOnly
	}
	normalized, err := NormalizeSettings(settings)
	if err != nil {
		return models.AbstractsSettings{}, err
	}
	if err := s.store.SaveSettings(ctx, normalized, actor.UserID); err != nil {
		return models.AbstractsSettings{}, fmt.Errorf("failed to save abstracts settings: %w", err)
	}
	return normalized, nil
}

func (s *SettingsService) GetRules(ctx context.Context, actor Actor) ([]models.AssignmentRule, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.store.LoadRules(ctx)
}

// ReplaceRules validates and stores the full rule list. Order is kept as given.
func (s *SettingsService) ReplaceRules(ctx context.Context, actor Actor, rules []models.AssignmentRule) ([]models.AssignmentRule, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	normalized, err := NormalizeRules(rules)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveRules(ctx, normalized, actor.UserID); err != nil {
		return nil, fmt.Errorf("failed to save assignment rules: %w", err)
	}
	return normalized, nil
}

func (s *SettingsService) ListReviewers(ctx context.Context, actor Actor) ([]models.ReviewerProfile, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.profiles.ListProfiles(ctx)
}

// UpsertReviewer creates or replaces a reviewer profile.
func (s *SettingsService) UpsertReviewer(ctx context.Context, actor Actor, profile models.ReviewerProfile) (*models.ReviewerProfile, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if profile.UserID <= 0 {
		return nil, validationError("user_id is required")
	}
	if profile.MaxConcurrentAssignments < 0 {
		return nil, validationError("max_concurrent_assignments must not be negative")
	}
	profile.Expertise = trimList(profile.Expertise)
	profile.Role = strings.TrimSpace(profile.Role)
	if profile.Role == "" {
		profile.Role = "reviewer"
	}
	if err := s.profiles.UpsertProfile(ctx, &profile); err != nil {
		return nil, fmt.Errorf("failed to save reviewer profile: %w", err)
	}
	return &profile, nil
}

// NormalizeSettings fills defaults and rejects inconsistent documents.
func NormalizeSettings(settings models.AbstractsSettings) (models.AbstractsSettings, error) {
	if settings.Tracks == nil {
		settings.Tracks = []models.AbstractTrack{}
	}
	seen := make(map[string]bool, len(settings.Tracks))
	for i := range settings.Tracks {
		track := &settings.Tracks[i]
		track.Name = strings.TrimSpace(track.Name)
		track.Code = strings.TrimSpace(track.Code)
		if track.Name == "" {
			return settings, validationError("every track needs a name")
		}
		if seen[track.Name] {
			return settings, validationError(fmt.Sprintf("duplicate track %q", track.Name))
		}
		seen[track.Name] = true
		for j := range track.Categories {
			track.Categories[j].Name = strings.TrimSpace(track.Categories[j].Name)
			if track.Categories[j].Name == "" {
				return settings, validationError(fmt.Sprintf("track %q has a category without a name", track.Name))
			}
		}
	}

	w := settings.Window
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return settings, validationError("submission window end must not be before its start")
	}

	if settings.MaxSubmissionsPerUser < 0 {
		return settings, validationError("max_submissions_per_user must not be negative")
	}

	switch settings.AssignmentPolicy {
	case "":
		settings.AssignmentPolicy = models.AssignmentPolicyLoadBased
	case models.AssignmentPolicyLoadBased, models.AssignmentPolicyRoundRobin:
	default:
		return settings, validationError("assignment_policy must be load_based or round_robin")
	}

	if settings.DefaultReviewerCount < 0 {
		return settings, validationError("default_reviewer_count must not be negative")
	}
	if settings.DefaultReviewerCount == 0 {
		settings.DefaultReviewerCount = models.DefaultReviewersPerAbstract
	}

	if settings.FileConstraints.MaxSizeMB < 0 {
		return settings, validationError("file_constraints.max_size_mb must not be negative")
	}
	settings.FileConstraints.AllowedMimeTypes = lowerList(settings.FileConstraints.AllowedMimeTypes)
	return settings, nil
}

// NormalizeRules trims scopes and rejects rules without a track or with invalid ids.
func NormalizeRules(rules []models.AssignmentRule) ([]models.AssignmentRule, error) {
	normalized := make([]models.AssignmentRule, 0, len(rules))
	for i, rule := range rules {
		rule.Track = strings.TrimSpace(rule.Track)
		if rule.Track == "" {
			return nil, validationError(fmt.Sprintf("rule %d: track is required", i+1))
		}
		rule.Category = trimOptional(rule.Category)
		rule.Subcategory = trimOptional(rule.Subcategory)
		if rule.Subcategory != nil && rule.Category == nil {
			return nil, validationError(fmt.Sprintf("rule %d: subcategory requires a category", i+1))
		}
		if rule.ReviewersPerAbstract < 0 {
			return nil, validationError(fmt.Sprintf("rule %d: reviewers_per_abstract must not be negative", i+1))
		}
		for _, id := range rule.ReviewerIDs {
			if id <= 0 {
				return nil, validationError(fmt.Sprintf("rule %d: reviewer ids must be positive", i+1))
			}
		}
		rule.ReviewerIDs = rule.UsableReviewerIDs()
		normalized = append(normalized, rule)
	}
	return normalized, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerList(values []string) []string {
	out := trimList(values)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"conference-abstracts-api/models"
)

func TestNormalizeSettingsFillsDefaults(t *testing.T) {
	settings, err := NormalizeSettings(models.AbstractsSettings{
		Tracks: []models.AbstractTrack{{Name: "  Poster ", Enabled: true}},
		FileConstraints: models.FileConstraints{
			MaxSizeMB:        5,
			AllowedMimeTypes: []string{" Application/PDF ", ""},
		},
	})
	if err != nil {
		t.Fatalf("NormalizeSettings returned error: %v", err)
	}

	if settings.Tracks[0].Name != "Poster" {
		t.Fatalf("track name not trimmed: %q", settings.Tracks[0].Name)
	}
	if settings.AssignmentPolicy != models.AssignmentPolicyLoadBased {
		t.Fatalf("expected load_based default, got %q", settings.AssignmentPolicy)
	}
	if settings.DefaultReviewerCount != models.DefaultReviewersPerAbstract {
		t.Fatalf("expected default reviewer count, got %d", settings.DefaultReviewerCount)
	}
	if len(settings.FileConstraints.AllowedMimeTypes) != 1 || settings.FileConstraints.AllowedMimeTypes[0] != "application/pdf" {
		t.Fatalf("unexpected mime types: %v", settings.FileConstraints.AllowedMimeTypes)
	}
}

func TestNormalizeSettingsRejectsInconsistentDocuments(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	cases := map[string]models.AbstractsSettings{
		"unnamed track":    {Tracks: []models.AbstractTrack{{Name: " "}}},
		"duplicate track":  {Tracks: []models.AbstractTrack{{Name: "Poster"}, {Name: "Poster"}}},
		"unnamed category": {Tracks: []models.AbstractTrack{{Name: "Poster", Categories: []models.AbstractCategory{{Name: ""}}}}},
		"inverted window":  {Window: models.SubmissionWindow{Enabled: true, Start: &start, End: &end}},
		"negative cap":     {MaxSubmissionsPerUser: -1},
		"unknown policy":   {AssignmentPolicy: "lottery"},
		"negative count":   {DefaultReviewerCount: -2},
		"negative size":    {FileConstraints: models.FileConstraints{MaxSizeMB: -1}},
	}
	for name, settings := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NormalizeSettings(settings); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeRules(t *testing.T) {
	rules, err := NormalizeRules([]models.AssignmentRule{
		{Track: " Free Paper ", Category: strPtr(" Cardiology "), Subcategory: strPtr(""), ReviewerIDs: []int{3, 3, 4}},
		{Track: "Poster", ReviewerIDs: []int{9}, ReviewersPerAbstract: 1},
	})
	if err != nil {
		t.Fatalf("NormalizeRules returned error: %v", err)
	}
	if len(rules) != 2 || rules[0].Track != "Free Paper" || *rules[0].Category != "Cardiology" || rules[0].Subcategory != nil {
		t.Fatalf("unexpected normalized rules: %#v", rules)
	}
	if len(rules[0].ReviewerIDs) != 2 {
		t.Fatalf("expected duplicate ids removed, got %v", rules[0].ReviewerIDs)
	}

	bad := [][]models.AssignmentRule{
		{{Track: ""}},
		{{Track: "Poster", Subcategory: strPtr("Clinical")}},
		{{Track: "Poster", ReviewerIDs: []int{0}}},
		{{Track: "Poster", ReviewersPerAbstract: -1}},
	}
	for i, rules := range bad {
		if _, err := NormalizeRules(rules); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestSettingsServiceWholeDocumentReplace(t *testing.T) {
	store := newMemorySettingsStore(models.DefaultAbstractsSettings())
	svc := NewSettingsService(store, &memoryProfileStore{})
	ctx := context.Background()

	if _, err := svc.ReplaceSettings(ctx, authorActor, conferenceSettings()); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("expected ErrAdminOnly, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("non-admin must not write, saves=%d", store.saves)
	}

	saved, err := svc.ReplaceSettings(ctx, adminActor, conferenceSettings())
	if err != nil {
		t.Fatalf("ReplaceSettings returned error: %v", err)
	}
	if len(saved.Tracks) != 3 {
		t.Fatalf("expected three tracks, got %d", len(saved.Tracks))
	}

	if _, err := svc.ReplaceRules(ctx, adminActor, []models.AssignmentRule{{Track: "Poster", ReviewerIDs: []int{4}}}); err != nil {
		t.Fatalf("ReplaceRules returned error: %v", err)
	}
	rules, err := svc.GetRules(ctx, adminActor)
	if err != nil || len(rules) != 1 {
		t.Fatalf("unexpected rules %v (%v)", rules, err)
	}
}

func TestGetPublicSettingsHidesDisabledTracks(t *testing.T) {
	settings := conferenceSettings()
	end := fixedNow.Add(-time.Minute)
	settings.Window = models.SubmissionWindow{Enabled: true, End: &end}
	svc := NewSettingsService(newMemorySettingsStore(settings), &memoryProfileStore{})
	svc.now = func() time.Time { return fixedNow }

	public, err := svc.GetPublicSettings(context.Background())
	if err != nil {
		t.Fatalf("GetPublicSettings returned error: %v", err)
	}
	if len(public.Tracks) != 2 {
		t.Fatalf("expected only enabled tracks, got %#v", public.Tracks)
	}
	if public.WindowOpen {
		t.Fatal("window should be reported closed")
	}
}

func TestUpsertReviewerDefaultsRole(t *testing.T) {
	profiles := &memoryProfileStore{}
	svc := NewSettingsService(newMemorySettingsStore(models.DefaultAbstractsSettings()), profiles)
	ctx := context.Background()

	profile, err := svc.UpsertReviewer(ctx, adminActor, models.ReviewerProfile{
		UserID:                   50,
		Expertise:                []string{" cardiology ", ""},
		MaxConcurrentAssignments: 4,
	})
	if err != nil {
		t.Fatalf("UpsertReviewer returned error: %v", err)
	}
	if profile.Role != "reviewer" || len(profile.Expertise) != 1 || profile.Expertise[0] != "cardiology" {
		t.Fatalf("unexpected profile: %#v", profile)
	}

	if _, err := svc.UpsertReviewer(ctx, adminActor, models.ReviewerProfile{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for missing user id, got %v", err)
	}
	listed, err := svc.ListReviewers(ctx, adminActor)
	if err != nil || len(listed) != 1 {
		t.Fatalf("unexpected reviewers %v (%v)", listed, err)
	}
}

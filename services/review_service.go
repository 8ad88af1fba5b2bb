package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conference-abstracts-api/models"
	"conference-abstracts-api/utils"
)

// SubmitReviewInput is a reviewer's review form. Scores are pointers so that a
// missing score can be told apart from a zero.
type SubmitReviewInput struct {
	AbstractCode   string
	Originality    *int
	Methodology    *int
	Relevance      *int
	Clarity        *int
	Recommendation string
	Comments       *string
}

// ReviewService collects one immutable review per (reviewer, abstract).
type ReviewService struct {
	abstracts AbstractStore
	reviews   ReviewStore
	now       func() time.Time
}

func NewReviewService(abstracts AbstractStore, reviews ReviewStore) *ReviewService {
	return &ReviewService{
		abstracts: abstracts,
		reviews:   reviews,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the actor's review. The actor must be on the abstract's assignment list.
// Submitting a review never changes the abstract's status.
func (s *ReviewService) Submit(ctx context.Context, actor Actor, input SubmitReviewInput) (*models.AbstractReview, error) {
	code := strings.TrimSpace(input.AbstractCode)
	if code == "" {
		return nil, validationError("abstract_code is required")
	}

	abstract, err := s.abstracts.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !abstract.HasReviewer(actor.UserID) {
		return nil, ErrNotAssigned
	}

	if err := validateScores(input); err != nil {
		return nil, err
	}
	recommendation := strings.ToLower(strings.TrimSpace(input.Recommendation))
	if !models.IsValidRecommendation(recommendation) {
		return nil, ErrInvalidRecommendation
	}

	review := &models.AbstractReview{
		AbstractID:     abstract.ID,
		ReviewerID:     actor.UserID,
		Track:          abstract.Track,
		Category:       abstract.Category,
		Subcategory:    abstract.Subcategory,
		Originality:    *input.Originality,
		Methodology:    *input.Methodology,
		Relevance:      *input.Relevance,
		Clarity:        input.Clarity,
		Recommendation: recommendation,
		Comments:       utils.SanitizeOptional(input.Comments),
		SubmittedAt:    s.now(),
	}

	if err := s.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, ErrDuplicateReview) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return review, nil
}

// ListForAbstract returns every review of an abstract. Admin only.
func (s *ReviewService) ListForAbstract(ctx context.Context, actor Actor, code string) ([]models.AbstractReview, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	return s.reviews.ListByAbstract(ctx, abstract.ID)
}

func validateScores(input SubmitReviewInput) error {
	required := []*int{input.Originality, input.Methodology, input.Relevance}
	for _, score := range required {
		if score == nil || !scoreInRange(*score) {
			return ErrInvalidScore
		}
	}
	if input.Clarity != nil && !scoreInRange(*input.Clarity) {
		return ErrInvalidScore
	}
	return nil
}

func scoreInRange(score int) bool {
	return score >= models.MinReviewScore && score <= models.MaxReviewScore
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"conference-abstracts-api/models"
)

// DecisionResult is returned to the administrator after a decision.
type DecisionResult struct {
	AbstractCode string   `json:"abstract_code"`
	Status       string   `json:"status"`
	AverageScore *float64 `json:"average_score"`
	ReviewCount  int      `json:"review_count"`
}

// DecisionService moves abstracts from under review to accepted or rejected.
type DecisionService struct {
	abstracts AbstractStore
	reviews   ReviewStore
	notifier  Notifier
	now       func() time.Time
}

func NewDecisionService(abstracts AbstractStore, reviews ReviewStore, notifier Notifier) *DecisionService {
	return &DecisionService{
		abstracts: abstracts,
		reviews:   reviews,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AggregateScore is the mean of each review's summed four-criterion score, with a
// missing clarity counted as 0. It returns nil when there are no reviews.
func AggregateScore(reviews []models.AbstractReview) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	total := 0
	for i := range reviews {
		total += reviews[i].TotalScore()
	}
	avg := float64(total) / float64(len(reviews))
	return &avg
}

// ParseDecision accepts "accepted"/"rejected" and the short forms "accept"/"reject".
func ParseDecision(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.AbstractStatusAccepted, "accept":
		return models.AbstractStatusAccepted, nil
	case models.AbstractStatusRejected, "reject":
		return models.AbstractStatusRejected, nil
	}
	return "", ErrInvalidDecision
}

// Decide aggregates the reviews present now and applies the decision. Reviews that
// arrive later are not folded in. Owner notification failures do not affect the result.
func (s *DecisionService) Decide(ctx context.Context, actor Actor, code, decision string) (*DecisionResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	status, err := ParseDecision(decision)
	if err != nil {
		return nil, err
	}

	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if abstract.Status != models.AbstractStatusUnderReview {
		return nil, ErrAbstractNotUnderReview
	}

	reviews, err := s.reviews.ListByAbstract(ctx, abstract.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reviews: %w", err)
	}
	average := AggregateScore(reviews)

	now := s.now()
	if err := s.abstracts.ApplyDecision(ctx, abstract.ID, status, average, now, actor.UserID); err != nil {
		return nil, err
	}

	dispatchNotifications(ctx, s.notifier, decisionMessage(abstract, status))

	return &DecisionResult{
		AbstractCode: abstract.Code,
		Status:       status,
		AverageScore: average,
		ReviewCount:  len(reviews),
	}, nil
}

func decisionMessage(abstract *models.AbstractSubmission, status string) Message {
	verdict := "accepted"
	next := "You may now upload your final submission."
	if status == models.AbstractStatusRejected {
		verdict = "not accepted"
		next = "Thank you for your submission."
	}
	return Message{
		RecipientID: abstract.OwnerUserID,
		Subject:     fmt.Sprintf("Decision on abstract %s", abstract.Code),
		Content:     fmt.Sprintf("Your abstract \"%s\" (%s) has been %s. %s", abstract.Title, abstract.Code, verdict, next),
		AbstractID:  abstract.ID,
	}
}

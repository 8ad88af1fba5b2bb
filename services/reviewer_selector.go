package services

import (
	"context"
	"fmt"
	"sort"

	"conference-abstracts-api/models"
)

// ReviewerSelector picks the reviewers to attach to a new abstract.
type ReviewerSelector struct {
	loads   LoadCounter
	cursors CursorStore
}

func NewReviewerSelector(loads LoadCounter, cursors CursorStore) *ReviewerSelector {
	return &ReviewerSelector{loads: loads, cursors: cursors}
}

// NormalizePolicy maps unknown or empty policies to load-based selection.
func NormalizePolicy(policy string) string {
	if policy == models.AssignmentPolicyRoundRobin {
		return models.AssignmentPolicyRoundRobin
	}
	return models.AssignmentPolicyLoadBased
}

// Select returns min(count, available) distinct reviewer ids from rule, where count is the
// rule's reviewers_per_abstract or defaultCount when the rule leaves it unset.
// A nil rule or a rule with no usable ids yields an empty list.
func (s *ReviewerSelector) Select(ctx context.Context, rule *models.AssignmentRule, policy string, defaultCount int) ([]int, error) {
	if rule == nil {
		return []int{}, nil
	}
	ids := rule.UsableReviewerIDs()
	count := rule.ReviewersPerAbstract
	if count <= 0 {
		count = defaultCount
	}
	if count > len(ids) {
		count = len(ids)
	}
	if count <= 0 {
		return []int{}, nil
	}

	switch NormalizePolicy(policy) {
	case models.AssignmentPolicyRoundRobin:
		return s.selectRoundRobin(ctx, rule.Track, ids, count)
	default:
		return s.selectLeastLoaded(ctx, ids, count)
	}
}

// selectLeastLoaded orders candidates by current active load; ties keep rule order.
func (s *ReviewerSelector) selectLeastLoaded(ctx context.Context, ids []int, count int) ([]int, error) {
	loads, err := s.loads.ActiveLoads(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reviewer loads: %w", err)
	}

	ordered := make([]int, len(ids))
	copy(ordered, ids)
	sort.SliceStable(ordered, func(i, j int) bool {
		return loads[ordered[i]] < loads[ordered[j]]
	})
	return ordered[:count], nil
}

// selectRoundRobin hands out count consecutive ids starting at the track cursor, wrapping.
func (s *ReviewerSelector) selectRoundRobin(ctx context.Context, track string, ids []int, count int) ([]int, error) {
	start, err := s.cursors.AdvanceCursor(ctx, track, count, len(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to advance round-robin cursor for %q: %w", track, err)
	}

	start = wrapOffset(start, len(ids))
	selected := make([]int, 0, count)
	for i := 0; i < count; i++ {
		selected = append(selected, ids[(start+i)%len(ids)])
	}
	return selected, nil
}

// wrapOffset reduces position into [0, length).
func wrapOffset(position, length int) int {
	if length <= 0 {
		return 0
	}
	return ((position % length) + length) % length
}

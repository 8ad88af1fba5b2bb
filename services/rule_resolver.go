package services

import (
	"strings"

	"conference-abstracts-api/models"
)

func normalizeScope(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// ResolveRule returns the single rule governing (track, category, subcategory), or nil.
//
// Tiers are tried most specific first: exact (track, category, subcategory); then
// (track, category) rules without a subcategory; then track-only rules. Within a tier
// the first qualifying entry in list order wins.
func ResolveRule(rules []models.AssignmentRule, track string, category, subcategory *string) *models.AssignmentRule {
	track = strings.TrimSpace(track)
	cat := normalizeScope(category)
	sub := normalizeScope(subcategory)
	if track == "" {
		return nil
	}

	matchTier := func(wantCat, wantSub string) *models.AssignmentRule {
		for i := range rules {
			rule := &rules[i]
			if strings.TrimSpace(rule.Track) != track {
				continue
			}
			if normalizeScope(rule.Category) != wantCat || normalizeScope(rule.Subcategory) != wantSub {
				continue
			}
			return rule
		}
		return nil
	}

	if cat != "" && sub != "" {
		if rule := matchTier(cat, sub); rule != nil {
			return rule
		}
	}
	if cat != "" {
		if rule := matchTier(cat, ""); rule != nil {
			return rule
		}
	}
	return matchTier("", "")
}

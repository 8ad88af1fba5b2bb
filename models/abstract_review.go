package models

import "time"

// Review recommendations.
const (
	RecommendationAccept = "accept"
	RecommendationReject = "reject"
	RecommendationRevise = "revise"
)

// Score bounds applied to every review criterion.
const (
	MinReviewScore = 0
	MaxReviewScore = 10
)

// AbstractReview is one reviewer's structured review of an abstract.
// The (reviewer_id, abstract_id) pair is unique.
type AbstractReview struct {
	ReviewID       int       `gorm:"primaryKey;column:review_id" json:"review_id"`
	AbstractID     int       `gorm:"column:abstract_id;uniqueIndex:uq_review_pair" json:"abstract_id"`
	ReviewerID     int       `gorm:"column:reviewer_id;uniqueIndex:uq_review_pair" json:"reviewer_id"`
	Track          string    `gorm:"column:track;size:191" json:"track"`
	Category       *string   `gorm:"column:category;size:191" json:"category,omitempty"`
	Subcategory    *string   `gorm:"column:subcategory;size:191" json:"subcategory,omitempty"`
	Originality    int       `gorm:"column:originality" json:"originality"`
	Methodology    int       `gorm:"column:methodology" json:"methodology"`
	Relevance      int       `gorm:"column:relevance" json:"relevance"`
	Clarity        *int      `gorm:"column:clarity" json:"clarity,omitempty"`
	Recommendation string    `gorm:"column:recommendation;size:16" json:"recommendation"`
	Comments       *string   `gorm:"column:comments;type:text" json:"comments,omitempty"`
	SubmittedAt    time.Time `gorm:"column:submitted_at" json:"submitted_at"`
}

// TableName specifies the table name for AbstractReview.
func (AbstractReview) TableName() string {
	return "abstract_reviews"
}

// TotalScore sums the four criteria, counting a missing clarity score as 0.
func (r *AbstractReview) TotalScore() int {
	total := r.Originality + r.Methodology + r.Relevance
	if r.Clarity != nil {
		total += *r.Clarity
	}
	return total
}

// IsValidRecommendation reports whether value is one of the accepted recommendations.
func IsValidRecommendation(value string) bool {
	switch value {
	case RecommendationAccept, RecommendationReject, RecommendationRevise:
		return true
	}
	return false
}

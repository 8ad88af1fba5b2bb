package controllers

import (
	"net/http"

	"conference-abstracts-api/services"

	"github.com/gin-gonic/gin"
)

type SubmitReviewRequest struct {
	AbstractCode   string  `json:"abstract_code" binding:"required"`
	Originality    *int    `json:"originality"`
	Methodology    *int    `json:"methodology"`
	Relevance      *int    `json:"relevance"`
	Clarity        *int    `json:"clarity"`
	Recommendation string  `json:"recommendation" binding:"required"`
	Comments       *string `json:"comments"`
}

// GetAssignedAbstracts GET /reviews/assigned
func GetAssignedAbstracts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	abstracts, err := getServices().Abstracts.ListAssigned(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "abstracts": abstracts, "total": len(abstracts)})
}

// SubmitReview POST /reviews
func SubmitReview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := getServices().Reviews.Submit(c.Request.Context(), actor, services.SubmitReviewInput{
		AbstractCode:   req.AbstractCode,
		Originality:    req.Originality,
		Methodology:    req.Methodology,
		Relevance:      req.Relevance,
		Clarity:        req.Clarity,
		Recommendation: req.Recommendation,
		Comments:       req.Comments,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Review submitted successfully",
		"review":  review,
	})
}

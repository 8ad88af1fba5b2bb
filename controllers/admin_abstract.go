package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"conference-abstracts-api/models"
	"conference-abstracts-api/services"

	"github.com/gin-gonic/gin"
)

type DecisionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// AdminListAbstracts GET /admin/abstracts?status=&track=
func AdminListAbstracts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := services.AbstractFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Track:  strings.TrimSpace(c.Query("track")),
	}
	abstracts, err := getServices().Abstracts.ListAll(c.Request.Context(), actor, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "abstracts": abstracts, "total": len(abstracts)})
}

// AdminGetAbstractReviews GET /admin/abstracts/:code/reviews
func AdminGetAbstractReviews(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	reviews, err := getServices().Reviews.ListForAbstract(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"reviews":       reviews,
		"total":         len(reviews),
		"average_score": services.AggregateScore(reviews),
	})
}

// AdminDecideAbstract POST /admin/abstracts/:code/decision
func AdminDecideAbstract(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := getServices().Decisions.Decide(c.Request.Context(), actor, c.Param("code"), req.Decision)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// AdminGetAbstractHistory GET /admin/abstracts/:code/history
func AdminGetAbstractHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	history, err := getServices().Abstracts.History(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

// AdminGetAbstractSettings GET /admin/abstracts/settings
func AdminGetAbstractSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	settings, err := getServices().Settings.GetSettings(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// AdminUpdateAbstractSettings PUT /admin/abstracts/settings
func AdminUpdateAbstractSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req models.AbstractsSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := getServices().Settings.ReplaceSettings(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Settings updated", "settings": settings})
}

// AdminGetAssignmentRules GET /admin/abstracts/assignment-rules
func AdminGetAssignmentRules(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	rules, err := getServices().Settings.GetRules(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rules": rules})
}

// AdminUpdateAssignmentRules PUT /admin/abstracts/assignment-rules
func AdminUpdateAssignmentRules(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req struct {
		Rules []models.AssignmentRule `json:"rules"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules, err := getServices().Settings.ReplaceRules(c.Request.Context(), actor, req.Rules)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Assignment rules updated", "rules": rules})
}

// AdminListReviewers GET /admin/reviewers
func AdminListReviewers(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	profiles, err := getServices().Settings.ListReviewers(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewers": profiles})
}

// AdminUpsertReviewer PUT /admin/reviewers/:user_id
func AdminUpsertReviewer(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req models.ReviewerProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.UserID = userID

	profile, err := getServices().Settings.UpsertReviewer(c.Request.Context(), actor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewer": profile})
}

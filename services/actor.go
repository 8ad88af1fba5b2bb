package services

import "conference-abstracts-api/models"

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	UserID int
	RoleID int
}

func (a Actor) IsAdmin() bool { return a.RoleID == models.RoleAdmin }

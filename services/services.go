package services

import (
	"conference-abstracts-api/config"

	"gorm.io/gorm"
)

// Services bundles the abstract pipeline services sharing one set of stores.
type Services struct {
	Abstracts *AbstractService
	Reviews   *ReviewService
	Decisions *DecisionService
	Settings  *SettingsService
}

// NewDefaultServices wires the gorm-backed stores, local file storage and the mail notifier.
func NewDefaultServices(db *gorm.DB) *Services {
	if db == nil {
		db = config.DB
	}

	settings := NewGormSettingsStore(db)
	abstracts := NewGormAbstractStore(db)
	reviews := NewGormReviewStore(db)
	profiles := NewGormReviewerProfileStore(db)
	notifier := NewMailNotifier(db)
	selector := NewReviewerSelector(abstracts, settings)

	return &Services{
		Abstracts: NewAbstractService(abstracts, settings, selector, NewLocalFileStorage(config.UploadPath()), notifier),
		Reviews:   NewReviewService(abstracts, reviews),
		Decisions: NewDecisionService(abstracts, reviews, notifier),
		Settings:  NewSettingsService(settings, profiles),
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"conference-abstracts-api/config"
	"conference-abstracts-api/models"

	"github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// activeStatuses are the statuses counted as reviewer load.
var activeStatuses = []string{models.AbstractStatusSubmitted, models.AbstractStatusUnderReview}

const mysqlDuplicateEntry = 1062

func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

func stringPtr(value string) *string {
	return &value
}

/* ==========================
   Settings / rules / cursors
   ========================== */

// GormSettingsStore keeps documents in abstract_config and cursors in abstract_round_robin_cursors.
type GormSettingsStore struct {
	db *gorm.DB
}

func NewGormSettingsStore(db *gorm.DB) *GormSettingsStore {
	if db == nil {
		db = config.DB
	}
	return &GormSettingsStore{db: db}
}

func (s *GormSettingsStore) loadDocument(ctx context.Context, key string, dest interface{}) (bool, error) {
	var rows []struct {
		Value string
	}
	if err := s.db.WithContext(ctx).
		Raw("SELECT `value` FROM abstract_config WHERE `key` = ?", key).
		Scan(&rows).Error; err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if len(rows) == 0 || rows[0].Value == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(rows[0].Value), dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *GormSettingsStore) saveDocument(ctx context.Context, key string, value interface{}, updatedBy int) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	row := models.AbstractConfig{
		Key:       key,
		Value:     string(encoded),
		UpdatedAt: time.Now().UTC(),
	}
	if updatedBy > 0 {
		row.UpdatedBy = &updatedBy
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *GormSettingsStore) LoadSettings(ctx context.Context) (models.AbstractsSettings, error) {
	settings := models.DefaultAbstractsSettings()
	found, err := s.loadDocument(ctx, models.ConfigKeyAbstractsSettings, &settings)
	if err != nil {
		return models.AbstractsSettings{}, err
	}
	if !found {
		return models.DefaultAbstractsSettings(), nil
	}
	settings.AssignmentPolicy = NormalizePolicy(settings.AssignmentPolicy)
	return settings, nil
}

func (s *GormSettingsStore) SaveSettings(ctx context.Context, settings models.AbstractsSettings, updatedBy int) error {
	return s.saveDocument(ctx, models.ConfigKeyAbstractsSettings, settings, updatedBy)
}

func (s *GormSettingsStore) LoadRules(ctx context.Context) ([]models.AssignmentRule, error) {
	rules := []models.AssignmentRule{}
	if _, err := s.loadDocument(ctx, models.ConfigKeyAssignmentRules, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormSettingsStore) SaveRules(ctx context.Context, rules []models.AssignmentRule, updatedBy int) error {
	if rules == nil {
		rules = []models.AssignmentRule{}
	}
	return s.saveDocument(ctx, models.ConfigKeyAssignmentRules, rules, updatedBy)
}

// AdvanceCursor reads and moves the track cursor under a row lock, so concurrent
// callers for the same track receive consecutive, non-overlapping windows.
func (s *GormSettingsStore) AdvanceCursor(ctx context.Context, track string, step, length int) (int, error) {
	if length <= 0 {
		return 0, nil
	}
	var start int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := models.RoundRobinCursor{Track: track, Position: 0, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var cursor models.RoundRobinCursor
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("track = ?", track).
			First(&cursor).Error; err != nil {
			return err
		}

		start = wrapOffset(cursor.Position, length)
		next := wrapOffset(start+step, length)
		return tx.Model(&models.RoundRobinCursor{}).
			Where("track = ?", track).
			Updates(map[string]interface{}{
				"position":   next,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return start, nil
}

/* ==========================
   Abstracts
   ========================== */

// GormAbstractStore persists abstracts, their assignments and status history.
type GormAbstractStore struct {
	db *gorm.DB
}

func NewGormAbstractStore(db *gorm.DB) *GormAbstractStore {
	if db == nil {
		db = config.DB
	}
	return &GormAbstractStore{db: db}
}

func (s *GormAbstractStore) CountByOwner(ctx context.Context, ownerUserID int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AbstractSubmission{}).
		Where("owner_user_id = ?", ownerUserID).
		Count(&count).Error
	return count, err
}

func (s *GormAbstractStore) CountCodesWithPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AbstractSubmission{}).
		Where("code LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

func (s *GormAbstractStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AbstractSubmission{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (s *GormAbstractStore) Create(ctx context.Context, abstract *models.AbstractSubmission, maxPerOwner int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if maxPerOwner > 0 {
			// The owner's user row serializes concurrent creates by the same author.
			var locked []int
			if err := tx.Raw("SELECT user_id FROM users WHERE user_id = ? FOR UPDATE", abstract.OwnerUserID).
				Scan(&locked).Error; err != nil {
				return err
			}

			var owned int64
			if err := tx.Model(&models.AbstractSubmission{}).
				Where("owner_user_id = ?", abstract.OwnerUserID).
				Count(&owned).Error; err != nil {
				return err
			}
			if owned >= int64(maxPerOwner) {
				return ErrSubmissionCapReached
			}
		}
		return tx.Omit(clause.Associations).Create(abstract).Error
	})
	if isDuplicateKeyError(err) {
		return errDuplicateCode
	}
	return err
}

func (s *GormAbstractStore) FindByCode(ctx context.Context, code string) (*models.AbstractSubmission, error) {
	var abstract models.AbstractSubmission
	if err := s.db.WithContext(ctx).
		Preload("InitialFile").
		Preload("FinalFile").
		Where("code = ?", code).
		First(&abstract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAbstractNotFound
		}
		return nil, err
	}
	return &abstract, nil
}

func (s *GormAbstractStore) List(ctx context.Context, filter AbstractFilter) ([]models.AbstractSubmission, error) {
	query := s.db.WithContext(ctx).Model(&models.AbstractSubmission{})
	if filter.OwnerUserID > 0 {
		query = query.Where("owner_user_id = ?", filter.OwnerUserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Track != "" {
		query = query.Where("track = ?", filter.Track)
	}

	abstracts := []models.AbstractSubmission{}
	if err := query.Order("submitted_at DESC").Find(&abstracts).Error; err != nil {
		return nil, err
	}
	return abstracts, nil
}

func (s *GormAbstractStore) ListAssignedTo(ctx context.Context, reviewerID int) ([]models.AbstractSubmission, error) {
	assigned := s.db.Model(&models.ReviewerAssignment{}).
		Select("abstract_id").
		Where("reviewer_id = ?", reviewerID)

	abstracts := []models.AbstractSubmission{}
	if err := s.db.WithContext(ctx).
		Where("abstract_id IN (?)", assigned).
		Order("submitted_at DESC").
		Find(&abstracts).Error; err != nil {
		return nil, err
	}
	return abstracts, nil
}

// ActiveLoads counts, per reviewer, the submitted or under-review abstracts they are assigned to.
func (s *GormAbstractStore) ActiveLoads(ctx context.Context, reviewerIDs []int) (map[int]int, error) {
	loads := make(map[int]int, len(reviewerIDs))
	if len(reviewerIDs) == 0 {
		return loads, nil
	}

	var rows []struct {
		ReviewerID int
		ActiveLoad int
	}
	if err := s.db.WithContext(ctx).Raw(`
		SELECT ara.reviewer_id AS reviewer_id, COUNT(*) AS active_load
		FROM abstract_reviewer_assignments AS ara
		JOIN abstract_submissions AS a ON a.abstract_id = ara.abstract_id
		WHERE a.status IN ? AND ara.reviewer_id IN ?
		GROUP BY ara.reviewer_id
	`, activeStatuses, reviewerIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		loads[row.ReviewerID] = row.ActiveLoad
	}
	return loads, nil
}

func (s *GormAbstractStore) AssignReviewers(ctx context.Context, abstractID int, reviewerIDs []int, strategy string, at time.Time, changedBy int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AbstractSubmission{}).
			Where("abstract_id = ? AND status = ?", abstractID, models.AbstractStatusSubmitted).
			Updates(map[string]interface{}{
				"assigned_reviewer_ids": datatypes.JSONSlice[int](reviewerIDs),
				"status":                models.AbstractStatusUnderReview,
				"updated_at":            at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		assignments := make([]models.ReviewerAssignment, 0, len(reviewerIDs))
		for _, reviewerID := range reviewerIDs {
			assignments = append(assignments, models.ReviewerAssignment{
				AbstractID: abstractID,
				ReviewerID: reviewerID,
				Strategy:   strategy,
				AssignedAt: at,
			})
		}
		if err := tx.Create(&assignments).Error; err != nil {
			return err
		}

		return tx.Create(&models.AbstractStatusHistory{
			AbstractID: abstractID,
			OldStatus:  stringPtr(models.AbstractStatusSubmitted),
			NewStatus:  models.AbstractStatusUnderReview,
			ChangedBy:  changedBy,
			Notes:      stringPtr(fmt.Sprintf("auto_assignment:%s", strategy)),
			CreatedAt:  at,
		}).Error
	})
}

func (s *GormAbstractStore) ApplyDecision(ctx context.Context, abstractID int, status string, averageScore *float64, at time.Time, changedBy int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":      status,
			"decision_at": at,
			"updated_at":  at,
		}
		if averageScore != nil {
			updates["average_score"] = *averageScore
		}

		res := tx.Model(&models.AbstractSubmission{}).
			Where("abstract_id = ? AND status = ?", abstractID, models.AbstractStatusUnderReview).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAbstractNotUnderReview
		}

		return tx.Create(&models.AbstractStatusHistory{
			AbstractID: abstractID,
			OldStatus:  stringPtr(models.AbstractStatusUnderReview),
			NewStatus:  status,
			ChangedBy:  changedBy,
			Notes:      stringPtr(fmt.Sprintf("admin_decision:%s", status)),
			CreatedAt:  at,
		}).Error
	})
}

func (s *GormAbstractStore) SaveInitialFile(ctx context.Context, abstractID int, expectedStatus string, upload *models.FileUpload) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(upload).Error; err != nil {
			return err
		}
		res := tx.Model(&models.AbstractSubmission{}).
			Where("abstract_id = ? AND status = ?", abstractID, expectedStatus).
			Updates(map[string]interface{}{
				"initial_file_id": upload.FileID,
				"updated_at":      upload.UploadedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
}

func (s *GormAbstractStore) SaveFinalFile(ctx context.Context, abstractID int, expectedStatus string, upload *models.FileUpload, finalCode string, at time.Time, changedBy int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(upload).Error; err != nil {
			return err
		}
		res := tx.Model(&models.AbstractSubmission{}).
			Where("abstract_id = ? AND status = ?", abstractID, expectedStatus).
			Updates(map[string]interface{}{
				"final_file_id":      upload.FileID,
				"final_submitted_at": at,
				"final_display_code": finalCode,
				"status":             models.AbstractStatusFinalSubmitted,
				"updated_at":         at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		if expectedStatus == models.AbstractStatusFinalSubmitted {
			return nil
		}

		old := expectedStatus
		return tx.Create(&models.AbstractStatusHistory{
			AbstractID: abstractID,
			OldStatus:  &old,
			NewStatus:  models.AbstractStatusFinalSubmitted,
			ChangedBy:  changedBy,
			Notes:      stringPtr("final_submission:" + finalCode),
			CreatedAt:  at,
		}).Error
	})
}

func (s *GormAbstractStore) History(ctx context.Context, abstractID int) ([]models.AbstractStatusHistory, error) {
	history := []models.AbstractStatusHistory{}
	err := s.db.WithContext(ctx).
		Where("abstract_id = ?", abstractID).
		Order("created_at ASC, history_id ASC").
		Find(&history).Error
	return history, err
}

/* ==========================
   Reviews / reviewer profiles
   ========================== */

// GormReviewStore persists reviews; the unique (reviewer_id, abstract_id) index rejects duplicates.
type GormReviewStore struct {
	db *gorm.DB
}

func NewGormReviewStore(db *gorm.DB) *GormReviewStore {
	if db == nil {
		db = config.DB
	}
	return &GormReviewStore{db: db}
}

func (s *GormReviewStore) CreateReview(ctx context.Context, review *models.AbstractReview) error {
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateReview
		}
		return err
	}
	return nil
}

func (s *GormReviewStore) ListByAbstract(ctx context.Context, abstractID int) ([]models.AbstractReview, error) {
	reviews := []models.AbstractReview{}
	err := s.db.WithContext(ctx).
		Where("abstract_id = ?", abstractID).
		Order("submitted_at ASC, review_id ASC").
		Find(&reviews).Error
	return reviews, err
}

// GormReviewerProfileStore persists reviewer profiles.
type GormReviewerProfileStore struct {
	db *gorm.DB
}

func NewGormReviewerProfileStore(db *gorm.DB) *GormReviewerProfileStore {
	if db == nil {
		db = config.DB
	}
	return &GormReviewerProfileStore{db: db}
}

func (s *GormReviewerProfileStore) ListProfiles(ctx context.Context) ([]models.ReviewerProfile, error) {
	profiles := []models.ReviewerProfile{}
	err := s.db.WithContext(ctx).Order("user_id ASC").Find(&profiles).Error
	return profiles, err
}

func (s *GormReviewerProfileStore) UpsertProfile(ctx context.Context, profile *models.ReviewerProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"expertise", "max_concurrent_assignments", "role", "updated_at"}),
		}).
		Create(profile).Error
}

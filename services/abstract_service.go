package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"conference-abstracts-api/models"
	"conference-abstracts-api/utils"
)

const (
	defaultCodePrefix    = "ABS"
	maxCodeProbes        = 10
	maxCreateCodeClashes = 3
)

// CreateAbstractInput is the author-supplied part of a new submission.
type CreateAbstractInput struct {
	Title           string
	Track           string
	Category        *string
	Subcategory     *string
	Authors         []models.AbstractAuthor
	Keywords        []string
	RegistrationRef *string
}

// FileInput is an uploaded file as received from the transport layer.
type FileInput struct {
	Name     string
	Size     int64
	MimeType string
	Content  io.Reader
}

// AbstractService owns the abstract lifecycle: creation guards, automatic
// reviewer assignment and the file stages.
type AbstractService struct {
	abstracts AbstractStore
	settings  SettingsStore
	selector  *ReviewerSelector
	files     FileStorage
	notifier  Notifier
	now       func() time.Time
}

func NewAbstractService(abstracts AbstractStore, settings SettingsStore, selector *ReviewerSelector, files FileStorage, notifier Notifier) *AbstractService {
	return &AbstractService{
		abstracts: abstracts,
		settings:  settings,
		selector:  selector,
		files:     files,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates and stores a new abstract, then runs rule resolution and reviewer
// selection. When at least one reviewer is selected the abstract moves to under review.
func (s *AbstractService) Create(ctx context.Context, actor Actor, input CreateAbstractInput) (*models.AbstractSubmission, error) {
	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load abstracts settings: %w", err)
	}

	now := s.now()
	if !settings.Window.IsOpen(now) {
		return nil, ErrSubmissionWindowClosed
	}

	input, err = normalizeCreateInput(input)
	if err != nil {
		return nil, err
	}

	track, ok := settings.FindTrack(input.Track)
	if !ok || !track.Enabled {
		return nil, ErrTrackUnavailable
	}
	if err := validateClassification(track, input.Category, input.Subcategory); err != nil {
		return nil, err
	}

	if settings.MaxSubmissionsPerUser > 0 {
		owned, err := s.abstracts.CountByOwner(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to count submissions: %w", err)
		}
		if owned >= int64(settings.MaxSubmissionsPerUser) {
			return nil, ErrSubmissionCapReached
		}
	}

	abstract := &models.AbstractSubmission{
		OwnerUserID:         actor.UserID,
		RegistrationRef:     input.RegistrationRef,
		Track:               track.Name,
		Category:            input.Category,
		Subcategory:         input.Subcategory,
		Title:               input.Title,
		Authors:             input.Authors,
		Keywords:            input.Keywords,
		Status:              models.AbstractStatusSubmitted,
		SubmittedAt:         now,
		AssignedReviewerIDs: []int{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for attempt := 0; ; attempt++ {
		code, err := s.generateCode(ctx, track, now)
		if err != nil {
			return nil, err
		}
		abstract.Code = code
		err = s.abstracts.Create(ctx, abstract, settings.MaxSubmissionsPerUser)
		if err == nil {
			break
		}
		if errors.Is(err, ErrSubmissionCapReached) {
			return nil, err
		}
		if errors.Is(err, errDuplicateCode) && attempt < maxCreateCodeClashes {
			continue
		}
		return nil, fmt.Errorf("failed to create abstract: %w", err)
	}

	s.assignReviewers(ctx, actor, abstract, settings)
	return abstract, nil
}

// assignReviewers runs the resolver and selector for a freshly created abstract. Failures
// leave the abstract submitted and unassigned, which is a valid resting state.
func (s *AbstractService) assignReviewers(ctx context.Context, actor Actor, abstract *models.AbstractSubmission, settings models.AbstractsSettings) {
	rules, err := s.settings.LoadRules(ctx)
	if err != nil {
		log.Printf("abstract %s: failed to load assignment rules: %v", abstract.Code, err)
		return
	}

	rule := ResolveRule(rules, abstract.Track, abstract.Category, abstract.Subcategory)
	if rule == nil {
		log.Printf("abstract %s: no assignment rule matched track=%q", abstract.Code, abstract.Track)
		return
	}

	policy := NormalizePolicy(settings.AssignmentPolicy)
	reviewerIDs, err := s.selector.Select(ctx, rule, policy, settings.DefaultReviewerCount)
	if err != nil {
		log.Printf("abstract %s: reviewer selection failed: %v", abstract.Code, err)
		return
	}
	if len(reviewerIDs) == 0 {
		log.Printf("abstract %s: matched rule has no usable reviewers", abstract.Code)
		return
	}

	now := s.now()
	if err := s.abstracts.AssignReviewers(ctx, abstract.ID, reviewerIDs, policy, now, actor.UserID); err != nil {
		log.Printf("abstract %s: failed to store reviewer assignment: %v", abstract.Code, err)
		return
	}

	abstract.AssignedReviewerIDs = reviewerIDs
	abstract.Status = models.AbstractStatusUnderReview
	abstract.UpdatedAt = now

	msgs := make([]Message, 0, len(reviewerIDs))
	for _, reviewerID := range reviewerIDs {
		msgs = append(msgs, Message{
			RecipientID: reviewerID,
			Subject:     fmt.Sprintf("New abstract assigned for review: %s", abstract.Code),
			Content:     fmt.Sprintf("You have been assigned to review \"%s\" (%s, track %s).", abstract.Title, abstract.Code, abstract.Track),
			AbstractID:  abstract.ID,
		})
	}
	dispatchNotifications(ctx, s.notifier, msgs...)
}

// Get returns an abstract visible to actor: its owner, an assigned reviewer, or an admin.
func (s *AbstractService) Get(ctx context.Context, actor Actor, code string) (*models.AbstractSubmission, error) {
	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || abstract.OwnerUserID == actor.UserID || abstract.HasReviewer(actor.UserID) {
		return abstract, nil
	}
	return nil, newError(ErrForbidden, "you do not have access to this abstract")
}

// ListOwned returns the actor's own submissions.
func (s *AbstractService) ListOwned(ctx context.Context, actor Actor) ([]models.AbstractSubmission, error) {
	return s.abstracts.List(ctx, AbstractFilter{OwnerUserID: actor.UserID})
}

// ListAll returns every abstract matching filter. Admin only.
func (s *AbstractService) ListAll(ctx context.Context, actor Actor, filter AbstractFilter) ([]models.AbstractSubmission, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.abstracts.List(ctx, filter)
}

// ListAssigned returns the abstracts the actor has been assigned to review.
func (s *AbstractService) ListAssigned(ctx context.Context, actor Actor) ([]models.AbstractSubmission, error) {
	return s.abstracts.ListAssignedTo(ctx, actor.UserID)
}

// History returns the status history of an abstract. Admin only.
func (s *AbstractService) History(ctx context.Context, actor Actor, code string) ([]models.AbstractStatusHistory, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	return s.abstracts.History(ctx, abstract.ID)
}

// UploadInitialFile attaches the first-stage file. Owners may upload while the abstract is
// submitted or under review; admins at any non-terminal status.
func (s *AbstractService) UploadInitialFile(ctx context.Context, actor Actor, code string, file FileInput) (*models.AbstractSubmission, error) {
	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && abstract.OwnerUserID != actor.UserID {
		return nil, ErrNotOwner
	}

	switch {
	case abstract.IsTerminal():
		return nil, ErrAbstractClosed
	case actor.IsAdmin():
	case abstract.Status != models.AbstractStatusSubmitted && abstract.Status != models.AbstractStatusUnderReview:
		return nil, ErrAbstractClosed
	}

	upload, err := s.storeFile(ctx, actor, abstract, file, models.FileStageInitial)
	if err != nil {
		return nil, err
	}

	if err := s.abstracts.SaveInitialFile(ctx, abstract.ID, abstract.Status, upload); err != nil {
		s.discardFile(abstract, upload)
		return nil, err
	}

	abstract.InitialFileID = &upload.FileID
	abstract.InitialFile = upload
	return abstract, nil
}

// SubmitFinal records the final-stage file. Owners need an accepted (or already final)
// abstract; admins bypass that guard, but a rejected abstract never reaches the final stage.
// Repeat uploads replace the file and keep the existing final display code.
func (s *AbstractService) SubmitFinal(ctx context.Context, actor Actor, code string, file FileInput) (*models.AbstractSubmission, error) {
	abstract, err := s.abstracts.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && abstract.OwnerUserID != actor.UserID {
		return nil, ErrNotOwner
	}
	if err := CheckFinalStageAllowed(abstract.Status, actor.IsAdmin()); err != nil {
		return nil, err
	}

	upload, err := s.storeFile(ctx, actor, abstract, file, models.FileStageFinal)
	if err != nil {
		return nil, err
	}

	finalCode := abstract.Code + models.FinalCodeSuffix
	if abstract.FinalDisplayCode != nil && *abstract.FinalDisplayCode != "" {
		finalCode = *abstract.FinalDisplayCode
	}

	now := s.now()
	if err := s.abstracts.SaveFinalFile(ctx, abstract.ID, abstract.Status, upload, finalCode, now, actor.UserID); err != nil {
		s.discardFile(abstract, upload)
		return nil, err
	}

	abstract.Status = models.AbstractStatusFinalSubmitted
	abstract.FinalFileID = &upload.FileID
	abstract.FinalFile = upload
	abstract.FinalSubmittedAt = &now
	abstract.FinalDisplayCode = &finalCode
	abstract.UpdatedAt = now

	dispatchNotifications(ctx, s.notifier, Message{
		RecipientID: abstract.OwnerUserID,
		Subject:     fmt.Sprintf("Final submission received: %s", finalCode),
		Content:     fmt.Sprintf("Your final file for \"%s\" has been received as %s.", abstract.Title, finalCode),
		AbstractID:  abstract.ID,
	})
	return abstract, nil
}

// CheckFinalStageAllowed applies the final-stage guard for an abstract in status.
func CheckFinalStageAllowed(status string, isAdmin bool) error {
	if status == models.AbstractStatusRejected {
		return ErrAbstractRejected
	}
	if isAdmin {
		return nil
	}
	if status != models.AbstractStatusAccepted && status != models.AbstractStatusFinalSubmitted {
		return ErrFinalStageLocked
	}
	return nil
}

func (s *AbstractService) storeFile(ctx context.Context, actor Actor, abstract *models.AbstractSubmission, file FileInput, stage string) (*models.FileUpload, error) {
	settings, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load abstracts settings: %w", err)
	}
	constraints := settings.FileConstraints

	if file.Content == nil || strings.TrimSpace(file.Name) == "" {
		return nil, validationError("file is required")
	}

	upload := &models.FileUpload{
		OriginalName: utils.SanitizeFilename(file.Name),
		FileSize:     file.Size,
		MimeType:     strings.ToLower(strings.TrimSpace(file.MimeType)),
		Stage:        stage,
		UploadedBy:   actor.UserID,
	}
	if !upload.IsAllowedMimeType(constraints.AllowedMimeTypes) {
		return nil, newError(ErrValidation, fmt.Sprintf("%s: type %q not allowed", ErrFileRejected.Message, upload.MimeType))
	}
	maxBytes := int64(constraints.MaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && file.Size > maxBytes {
		return nil, newError(ErrValidation, fmt.Sprintf("%s: %.2f MB exceeds %d MB", ErrFileRejected.Message, upload.GetFileSizeInMB(), constraints.MaxSizeMB))
	}

	stored, err := s.files.Save(ctx, abstract.OwnerUserID, file.Name, file.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if maxBytes > 0 && stored.Size > maxBytes {
		if rmErr := s.files.Remove(stored.Path); rmErr != nil {
			log.Printf("abstract %s: failed to remove oversized file %s: %v", abstract.Code, stored.Path, rmErr)
		}
		return nil, ErrFileRejected
	}

	upload.StoredPath = stored.Path
	upload.FileSize = stored.Size
	upload.FileHash = stored.Hash
	upload.UploadedAt = s.now()
	return upload, nil
}

func (s *AbstractService) discardFile(abstract *models.AbstractSubmission, upload *models.FileUpload) {
	if err := s.files.Remove(upload.StoredPath); err != nil {
		log.Printf("abstract %s: failed to remove orphaned file %s: %v", abstract.Code, upload.StoredPath, err)
	}
}

// generateCode builds <PREFIX>-<YYYY>-<NNNN>, probing a few sequence numbers before
// falling back to a random suffix.
func (s *AbstractService) generateCode(ctx context.Context, track *models.AbstractTrack, now time.Time) (string, error) {
	prefix := utils.CodePrefix(track.Code, defaultCodePrefix)
	prefixYear := fmt.Sprintf("%s-%04d-", prefix, now.Year())

	count, err := s.abstracts.CountCodesWithPrefix(ctx, prefixYear)
	if err != nil {
		return "", fmt.Errorf("failed to count abstract codes: %w", err)
	}

	for i := int64(1); i <= maxCodeProbes; i++ {
		candidate := fmt.Sprintf("%s%04d", prefixYear, count+i)
		exists, err := s.abstracts.CodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check abstract code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	bytes := make([]byte, 3)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate abstract code: %w", err)
	}
	return fmt.Sprintf("%sR-%s", prefixYear, strings.ToUpper(hex.EncodeToString(bytes))), nil
}

func normalizeCreateInput(input CreateAbstractInput) (CreateAbstractInput, error) {
	input.Title = utils.SanitizeInput(input.Title)
	input.Track = utils.SanitizeInput(input.Track)
	input.Category = utils.SanitizeOptional(input.Category)
	input.Subcategory = utils.SanitizeOptional(input.Subcategory)
	input.RegistrationRef = utils.SanitizeOptional(input.RegistrationRef)

	if input.Title == "" {
		return input, validationError("title is required")
	}
	if input.Track == "" {
		return input, validationError("track is required")
	}
	if input.Subcategory != nil && input.Category == nil {
		return input, validationError("subcategory requires a category")
	}

	authors := make([]models.AbstractAuthor, 0, len(input.Authors))
	for _, author := range input.Authors {
		author.Name = utils.SanitizeInput(author.Name)
		author.Affiliation = utils.SanitizeInput(author.Affiliation)
		author.Email = utils.SanitizeInput(author.Email)
		if author.Name == "" {
			return input, validationError("every author needs a name")
		}
		if author.Email != "" && !utils.ValidateEmail(author.Email) {
			return input, validationError(fmt.Sprintf("invalid author email %q", author.Email))
		}
		authors = append(authors, author)
	}
	if len(authors) == 0 {
		return input, validationError("at least one author is required")
	}
	input.Authors = authors
	input.Keywords = utils.NormalizeKeywords(input.Keywords)
	return input, nil
}

// validateClassification checks category/subcategory against the track's configured tree.
func validateClassification(track *models.AbstractTrack, category, subcategory *string) error {
	if category == nil {
		return nil
	}
	for _, cat := range track.Categories {
		if cat.Name != *category {
			continue
		}
		if subcategory == nil {
			return nil
		}
		for _, sub := range cat.Subcategories {
			if sub.Name == *subcategory {
				return nil
			}
		}
		return validationError(fmt.Sprintf("unknown subcategory %q for category %q", *subcategory, *category))
	}
	return validationError(fmt.Sprintf("unknown category %q for track %q", *category, track.Name))
}

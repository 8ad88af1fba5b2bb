package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"conference-abstracts-api/models"
)

/* ==========================
   Abstract store (also a LoadCounter)
   ========================== */

type memoryAbstractStore struct {
	mu          sync.Mutex
	nextID      int
	nextFileID  int
	abstracts   map[int]*models.AbstractSubmission
	assignments []models.ReviewerAssignment
	history     []models.AbstractStatusHistory
	files       map[int]*models.FileUpload

	// extraLoads is added to the computed load per reviewer.
	extraLoads map[int]int
	assignErr  error
}

func newMemoryAbstractStore() *memoryAbstractStore {
	return &memoryAbstractStore{
		abstracts:  map[int]*models.AbstractSubmission{},
		files:      map[int]*models.FileUpload{},
		extraLoads: map[int]int{},
	}
}

func cloneAbstract(a *models.AbstractSubmission) *models.AbstractSubmission {
	c := *a
	c.AssignedReviewerIDs = append([]int(nil), a.AssignedReviewerIDs...)
	return &c
}

func (s *memoryAbstractStore) CountByOwner(_ context.Context, ownerUserID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.abstracts {
		if a.OwnerUserID == ownerUserID {
			n++
		}
	}
	return n, nil
}

func (s *memoryAbstractStore) CountCodesWithPrefix(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.abstracts {
		if strings.HasPrefix(a.Code, prefix) {
			n++
		}
	}
	return n, nil
}

func (s *memoryAbstractStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.abstracts {
		if a.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryAbstractStore) Create(_ context.Context, abstract *models.AbstractSubmission, maxPerOwner int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := 0
	for _, a := range s.abstracts {
		if a.OwnerUserID == abstract.OwnerUserID {
			owned++
		}
	}
	if maxPerOwner > 0 && owned >= maxPerOwner {
		return ErrSubmissionCapReached
	}
	for _, a := range s.abstracts {
		if a.Code == abstract.Code {
			return errDuplicateCode
		}
	}
	s.nextID++
	abstract.ID = s.nextID
	s.abstracts[abstract.ID] = cloneAbstract(abstract)
	return nil
}

func (s *memoryAbstractStore) FindByCode(_ context.Context, code string) (*models.AbstractSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.abstracts {
		if a.Code == code {
			return cloneAbstract(a), nil
		}
	}
	return nil, ErrAbstractNotFound
}

func (s *memoryAbstractStore) List(_ context.Context, filter AbstractFilter) ([]models.AbstractSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AbstractSubmission{}
	for _, a := range s.abstracts {
		if filter.OwnerUserID > 0 && a.OwnerUserID != filter.OwnerUserID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Track != "" && a.Track != filter.Track {
			continue
		}
		out = append(out, *cloneAbstract(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryAbstractStore) ListAssignedTo(_ context.Context, reviewerID int) ([]models.AbstractSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AbstractSubmission{}
	for _, a := range s.abstracts {
		if a.HasReviewer(reviewerID) {
			out = append(out, *cloneAbstract(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memoryAbstractStore) ActiveLoads(_ context.Context, reviewerIDs []int) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loads := map[int]int{}
	for _, id := range reviewerIDs {
		if extra := s.extraLoads[id]; extra > 0 {
			loads[id] = extra
		}
		for _, a := range s.abstracts {
			if a.IsTerminal() || a.Status == models.AbstractStatusAccepted {
				continue
			}
			if a.HasReviewer(id) {
				loads[id]++
			}
		}
	}
	return loads, nil
}

func (s *memoryAbstractStore) AssignReviewers(_ context.Context, abstractID int, reviewerIDs []int, strategy string, at time.Time, changedBy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assignErr != nil {
		return s.assignErr
	}
	a, ok := s.abstracts[abstractID]
	if !ok || a.Status != models.AbstractStatusSubmitted {
		return ErrInvalidTransition
	}
	a.AssignedReviewerIDs = append([]int(nil), reviewerIDs...)
	a.Status = models.AbstractStatusUnderReview
	a.UpdatedAt = at
	for _, id := range reviewerIDs {
		s.assignments = append(s.assignments, models.ReviewerAssignment{AbstractID: abstractID, ReviewerID: id, Strategy: strategy, AssignedAt: at})
	}
	s.appendHistory(abstractID, models.AbstractStatusSubmitted, models.AbstractStatusUnderReview, changedBy, at)
	return nil
}

func (s *memoryAbstractStore) ApplyDecision(_ context.Context, abstractID int, status string, averageScore *float64, at time.Time, changedBy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.abstracts[abstractID]
	if !ok || a.Status != models.AbstractStatusUnderReview {
		return ErrAbstractNotUnderReview
	}
	a.Status = status
	a.AverageScore = averageScore
	a.DecisionAt = &at
	s.appendHistory(abstractID, models.AbstractStatusUnderReview, status, changedBy, at)
	return nil
}

func (s *memoryAbstractStore) SaveInitialFile(_ context.Context, abstractID int, expectedStatus string, upload *models.FileUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.abstracts[abstractID]
	if !ok || a.Status != expectedStatus {
		return ErrInvalidTransition
	}
	s.nextFileID++
	upload.FileID = s.nextFileID
	s.files[upload.FileID] = upload
	a.InitialFileID = &upload.FileID
	return nil
}

func (s *memoryAbstractStore) SaveFinalFile(_ context.Context, abstractID int, expectedStatus string, upload *models.FileUpload, finalCode string, at time.Time, changedBy int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.abstracts[abstractID]
	if !ok || a.Status != expectedStatus {
		return ErrInvalidTransition
	}
	s.nextFileID++
	upload.FileID = s.nextFileID
	s.files[upload.FileID] = upload
	a.FinalFileID = &upload.FileID
	a.FinalSubmittedAt = &at
	a.FinalDisplayCode = &finalCode
	if a.Status != models.AbstractStatusFinalSubmitted {
		s.appendHistory(abstractID, a.Status, models.AbstractStatusFinalSubmitted, changedBy, at)
	}
	a.Status = models.AbstractStatusFinalSubmitted
	return nil
}

func (s *memoryAbstractStore) History(_ context.Context, abstractID int) ([]models.AbstractStatusHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AbstractStatusHistory{}
	for _, h := range s.history {
		if h.AbstractID == abstractID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *memoryAbstractStore) appendHistory(abstractID int, from, to string, changedBy int, at time.Time) {
	old := from
	s.history = append(s.history, models.AbstractStatusHistory{
		HistoryID:  len(s.history) + 1,
		AbstractID: abstractID,
		OldStatus:  &old,
		NewStatus:  to,
		ChangedBy:  changedBy,
		CreatedAt:  at,
	})
}

// put stores a copy of abstract as-is, for tests that start mid-lifecycle.
func (s *memoryAbstractStore) put(abstract models.AbstractSubmission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if abstract.ID == 0 {
		s.nextID++
		abstract.ID = s.nextID
	} else if abstract.ID > s.nextID {
		s.nextID = abstract.ID
	}
	s.abstracts[abstract.ID] = cloneAbstract(&abstract)
}

func (s *memoryAbstractStore) get(code string) *models.AbstractSubmission {
	a, err := s.FindByCode(context.Background(), code)
	if err != nil {
		return nil
	}
	return a
}

/* ==========================
   Settings store (also a CursorStore)
   ========================== */

type memorySettingsStore struct {
	mu       sync.Mutex
	settings models.AbstractsSettings
	rules    []models.AssignmentRule
	cursors  map[string]int
	rulesErr error
	saves    int
}

func newMemorySettingsStore(settings models.AbstractsSettings, rules ...models.AssignmentRule) *memorySettingsStore {
	return &memorySettingsStore{settings: settings, rules: rules, cursors: map[string]int{}}
}

func (s *memorySettingsStore) LoadSettings(context.Context) (models.AbstractsSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *memorySettingsStore) SaveSettings(_ context.Context, settings models.AbstractsSettings, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saves++
	return nil
}

func (s *memorySettingsStore) LoadRules(context.Context) ([]models.AssignmentRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	return append([]models.AssignmentRule(nil), s.rules...), nil
}

func (s *memorySettingsStore) SaveRules(_ context.Context, rules []models.AssignmentRule, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	s.saves++
	return nil
}

func (s *memorySettingsStore) AdvanceCursor(_ context.Context, track string, step, length int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := wrapOffset(s.cursors[track], length)
	s.cursors[track] = wrapOffset(start+step, length)
	return start, nil
}

type failingCursorStore struct{}

func (failingCursorStore) AdvanceCursor(context.Context, string, int, int) (int, error) {
	return 0, errors.New("cursor unavailable")
}

/* ==========================
   Reviews / profiles
   ========================== */

type memoryReviewStore struct {
	mu      sync.Mutex
	nextID  int
	reviews []models.AbstractReview
}

func (s *memoryReviewStore) CreateReview(_ context.Context, review *models.AbstractReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.AbstractID == review.AbstractID && r.ReviewerID == review.ReviewerID {
			return ErrDuplicateReview
		}
	}
	s.nextID++
	review.ReviewID = s.nextID
	s.reviews = append(s.reviews, *review)
	return nil
}

func (s *memoryReviewStore) ListByAbstract(_ context.Context, abstractID int) ([]models.AbstractReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AbstractReview{}
	for _, r := range s.reviews {
		if r.AbstractID == abstractID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memoryProfileStore struct {
	mu       sync.Mutex
	profiles map[int]models.ReviewerProfile
}

func (s *memoryProfileStore) ListProfiles(context.Context) ([]models.ReviewerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ReviewerProfile{}
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memoryProfileStore) UpsertProfile(_ context.Context, profile *models.ReviewerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profiles == nil {
		s.profiles = map[int]models.ReviewerProfile{}
	}
	s.profiles[profile.UserID] = *profile
	return nil
}

/* ==========================
   Files / notifications
   ========================== */

type memoryFileStorage struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	seq     int
}

func newMemoryFileStorage() *memoryFileStorage {
	return &memoryFileStorage{saved: map[string][]byte{}}
}

func (s *memoryFileStorage) Save(_ context.Context, ownerID int, originalName string, content io.Reader) (StoredFile, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return StoredFile{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	path := fmt.Sprintf("mem/%d/%d-%s", ownerID, s.seq, originalName)
	s.saved[path] = data
	return StoredFile{Path: path, Size: int64(len(data)), Hash: fmt.Sprintf("hash-%d", s.seq)}, nil
}

func (s *memoryFileStorage) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, path)
	s.removed = append(s.removed, path)
	return nil
}

func pdfFile(name string, size int) FileInput {
	return FileInput{
		Name:     name,
		Size:     int64(size),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(bytes.Repeat([]byte("x"), size)),
	}
}

// recordingNotifier forwards every message to a buffered channel.
type recordingNotifier struct {
	messages chan Message
	err      error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(chan Message, 64)}
}

func (n *recordingNotifier) Notify(_ context.Context, msg Message) error {
	n.messages <- msg
	return n.err
}

// waitMessages collects count messages or gives up after a second.
func (n *recordingNotifier) waitMessages(count int) []Message {
	out := make([]Message, 0, count)
	timeout := time.After(time.Second)
	for len(out) < count {
		select {
		case msg := <-n.messages:
			out = append(out, msg)
		case <-timeout:
			return out
		}
	}
	return out
}

/* ==========================
   Fixtures
   ========================== */

var (
	fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	adminActor    = Actor{UserID: 1, RoleID: models.RoleAdmin}
	authorActor   = Actor{UserID: 100, RoleID: models.RoleAuthor}
	strangerActor = Actor{UserID: 200, RoleID: models.RoleAuthor}
)

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func conferenceSettings() models.AbstractsSettings {
	settings := models.DefaultAbstractsSettings()
	settings.Tracks = []models.AbstractTrack{
		{
			Name:    "Free Paper",
			Code:    "fp",
			Enabled: true,
			Categories: []models.AbstractCategory{
				{Name: "Cardiology", Subcategories: []models.AbstractSubcategory{{Name: "Heart Failure"}}},
				{Name: "Imaging"},
			},
		},
		{Name: "Poster", Enabled: true},
		{Name: "Workshop", Code: "ws", Enabled: false},
	}
	return settings
}

type serviceFixture struct {
	abstracts *memoryAbstractStore
	settings  *memorySettingsStore
	reviews   *memoryReviewStore
	files     *memoryFileStorage
	notifier  *recordingNotifier
	svc       *AbstractService
}

func newServiceFixture(settings models.AbstractsSettings, rules ...models.AssignmentRule) *serviceFixture {
	f := &serviceFixture{
		abstracts: newMemoryAbstractStore(),
		settings:  newMemorySettingsStore(settings, rules...),
		reviews:   &memoryReviewStore{},
		files:     newMemoryFileStorage(),
		notifier:  newRecordingNotifier(),
	}
	selector := NewReviewerSelector(f.abstracts, f.settings)
	f.svc = NewAbstractService(f.abstracts, f.settings, selector, f.files, f.notifier)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func freePaperInput() CreateAbstractInput {
	return CreateAbstractInput{
		Title:    "  Outcomes of early mobilisation  ",
		Track:    "Free Paper",
		Category: strPtr("Cardiology"),
		Authors: []models.AbstractAuthor{
			{Name: "A. Author", Affiliation: "General Hospital", Email: "a.author@example.org", IsPresenting: true},
		},
		Keywords: []string{"mobilisation", " Mobilisation ", "heart"},
	}
}

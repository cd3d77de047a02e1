package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/skillproof/testing-service/internal/events"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
	"github.com/skillproof/testing-service/internal/validator"
)

// fakeRepository is an in-memory Repository. Every sub-repository method is
// implemented on the same struct so one fixture backs the whole engine.
type fakeRepository struct {
	subjects    map[uint]*models.Subject
	users       map[uint]*models.User
	questions   map[uint]*models.Question
	assignments []*models.Assignment
	nextID      uint

	invalidatedSessions []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subjects:  make(map[uint]*models.Subject),
		users:     make(map[uint]*models.User),
		questions: make(map[uint]*models.Question),
		nextID:    1,
	}
}

func (f *fakeRepository) Subject() repositories.SubjectRepository       { return f }
func (f *fakeRepository) Question() repositories.QuestionRepository     { return f }
func (f *fakeRepository) Assignment() repositories.AssignmentRepository { return f }
func (f *fakeRepository) User() repositories.UserRepository             { return f }
func (f *fakeRepository) Session() repositories.SessionRepository       { return f }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// Subject store

func (f *fakeRepository) GetActiveByID(ctx context.Context, id uint) (*models.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok || !subject.IsActive {
		return nil, repositories.ErrNotFound
	}
	return subject, nil
}

func (f *fakeRepository) CountActiveQuestions(ctx context.Context, subjectID uint) (int64, error) {
	var count int64
	for _, q := range f.questions {
		if q.SubjectID == subjectID && q.IsActive {
			count++
		}
	}
	return count, nil
}

// Question store

func (f *fakeRepository) GetActiveBySubject(ctx context.Context, subjectID uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range f.questions {
		if q.SubjectID == subjectID && q.IsActive {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetCorrectOptionID(ctx context.Context, questionID uint) (uint, error) {
	q, ok := f.questions[questionID]
	if !ok || !q.IsActive {
		return 0, repositories.ErrNotFound
	}
	for _, o := range q.Options {
		if o.IsCorrect && o.IsActive {
			return o.ID, nil
		}
	}
	return 0, repositories.ErrNotFound
}

// Assignment store

func (f *fakeRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = f.nextID
	f.nextID++
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = assignment.CreatedAt
	f.assignments = append(f.assignments, assignment)
	return nil
}

func (f *fakeRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	for i, a := range f.assignments {
		if a.ID == assignment.ID {
			assignment.UpdatedAt = time.Now()
			f.assignments[i] = assignment
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (f *fakeRepository) GetLiveByUser(ctx context.Context, userID uint) (*models.Assignment, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.Status.IsLive() {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRepository) GetLiveByPair(ctx context.Context, userID, subjectID uint) (*models.Assignment, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.SubjectID == subjectID && a.Status.IsLive() {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeRepository) HistoryExists(ctx context.Context, userID, subjectID uint) (bool, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.SubjectID == subjectID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) FinishedExists(ctx context.Context, userID, subjectID uint) (bool, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.SubjectID == subjectID && a.Status == models.AssignmentFinished {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) CountUnfinished(ctx context.Context, userID, subjectID uint) (int64, error) {
	var count int64
	for _, a := range f.assignments {
		if a.UserID == userID && a.SubjectID == subjectID && a.Status != models.AssignmentFinished {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) SupersedeLive(ctx context.Context, userID, subjectID uint, now time.Time) error {
	for _, a := range f.assignments {
		if a.UserID == userID && a.SubjectID == subjectID && a.Status.IsLive() {
			a.Status = models.AssignmentSuperseded
			a.UpdatedAt = now
		}
	}
	return nil
}

func (f *fakeRepository) ListPending(ctx context.Context, filters repositories.PendingFilters) ([]*models.Assignment, int64, error) {
	var matched []*models.Assignment
	for _, a := range f.assignments {
		if a.Status != models.AssignmentStarted {
			continue
		}
		user := f.users[a.UserID]
		if filters.SubjectID != nil && a.SubjectID != *filters.SubjectID {
			continue
		}
		if filters.PositionID != nil {
			if user == nil || user.PositionID == nil || *user.PositionID != *filters.PositionID {
				continue
			}
		}
		if filters.Search != "" && user != nil {
			needle := strings.ToLower(filters.Search)
			haystack := strings.ToLower(user.FirstName + " " + user.LastName + " " + user.Email + " " + user.Mobile)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		if filters.DateFrom != nil && a.UpdatedAt.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && !a.UpdatedAt.Before(*filters.DateTo) {
			continue
		}
		copied := *a
		if user != nil {
			copied.User = *user
		}
		if subject := f.subjects[a.SubjectID]; subject != nil {
			copied.Subject = *subject
		}
		matched = append(matched, &copied)
	}

	total := int64(len(matched))
	if filters.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[filters.Offset:]
	if filters.Limit > 0 && len(matched) > filters.Limit {
		matched = matched[:filters.Limit]
	}
	return matched, total, nil
}

// User directory

func (f *fakeRepository) GetActiveCandidate(ctx context.Context, id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok || !user.IsActive || user.Role != models.RoleCandidate {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repositories.ErrNotFound
}

// Session store

func (f *fakeRepository) Invalidate(ctx context.Context, email string) error {
	f.invalidatedSessions = append(f.invalidatedSessions, email)
	return nil
}

// ===== FIXTURE =====

type lifecycleFixture struct {
	repo      *fakeRepository
	publisher *events.MockEventPublisher
	service   LifecycleService
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(logger)

	return &lifecycleFixture{
		repo:      repo,
		publisher: publisher,
		service:   NewLifecycleService(repo, logger, validator.New(), publisher),
	}
}

// seedSubject creates an active subject with n questions of four options
// each; the first option of every question is the correct one.
func (fx *lifecycleFixture) seedSubject(id uint, n int) {
	subject := &models.Subject{ID: id, Name: fmt.Sprintf("Subject %d", id), IsActive: true}
	fx.repo.subjects[id] = subject

	for i := 0; i < n; i++ {
		questionID := id*100 + uint(i)
		question := &models.Question{
			ID:        questionID,
			SubjectID: id,
			Text:      fmt.Sprintf("Question %d", questionID),
			IsActive:  true,
		}
		for j := 0; j < 4; j++ {
			question.Options = append(question.Options, models.Option{
				ID:         questionID*10 + uint(j),
				QuestionID: questionID,
				Text:       fmt.Sprintf("Option %d", j),
				IsCorrect:  j == 0,
				IsActive:   true,
			})
		}
		fx.repo.questions[questionID] = question
	}
}

func (fx *lifecycleFixture) seedCandidate(id uint) {
	fx.repo.users[id] = &models.User{
		ID:        id,
		FirstName: "Jordan",
		LastName:  "Reyes",
		Email:     fmt.Sprintf("user%d@example.com", id),
		Mobile:    "5550100",
		Role:      models.RoleCandidate,
		IsActive:  true,
	}
}

// correctAnswers builds a full-marks submission for a seeded subject.
func (fx *lifecycleFixture) correctAnswers(subjectID uint, n int) []models.AnswerSubmission {
	answers := make([]models.AnswerSubmission, 0, n)
	for i := 0; i < n; i++ {
		questionID := subjectID*100 + uint(i)
		answers = append(answers, models.AnswerSubmission{
			QuestionID: questionID,
			OptionID:   questionID * 10,
		})
	}
	return answers
}

func (fx *lifecycleFixture) liveRows(userID, subjectID uint) []*models.Assignment {
	var live []*models.Assignment
	for _, a := range fx.repo.assignments {
		if a.UserID == userID && a.SubjectID == subjectID && a.Status.IsLive() {
			live = append(live, a)
		}
	}
	return live
}

func (fx *lifecycleFixture) eventTypes() []string {
	var types []string
	for _, e := range fx.publisher.GetPublishedEvents() {
		types = append(types, e.Type)
	}
	return types
}

// ===== ASSIGN =====

func TestLifecycleService_Assign(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the first attempt", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1})
		if err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		live := fx.liveRows(10, 1)
		if len(live) != 1 {
			t.Fatalf("expected 1 live row, got %d", len(live))
		}
		if live[0].Status != models.AssignmentAssigned {
			t.Errorf("expected status %q, got %q", models.AssignmentAssigned, live[0].Status)
		}
		if live[0].ReassignCount != 0 {
			t.Errorf("expected reassign count 0, got %d", live[0].ReassignCount)
		}

		published := fx.publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.TypeAssignmentAssigned {
			t.Errorf("expected one %q event, got %v", events.TypeAssignmentAssigned, fx.eventTypes())
		}
	})

	t.Run("unknown subject", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedCandidate(10)

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 99})
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Errorf("expected ErrSubjectNotFound, got %v", err)
		}
	})

	t.Run("inactive subject", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.repo.subjects[1].IsActive = false
		fx.seedCandidate(10)

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Errorf("expected ErrSubjectNotFound, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("non-candidate user", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		fx.repo.users[10].Role = models.RoleAdmin

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("outstanding attempt on another subject blocks", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedSubject(2, 4)
		fx.seedCandidate(10)

		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("first Assign failed: %v", err)
		}

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 2})
		if !errors.Is(err, ErrOutstandingAssignment) {
			t.Errorf("expected ErrOutstandingAssignment, got %v", err)
		}
	})

	t.Run("pair assigned once ever", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)

		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("first Assign failed: %v", err)
		}
		if _, err := fx.service.Start(ctx, 10); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if _, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)}); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}

		// The pair's attempt is finished, so no outstanding attempt remains,
		// yet re-assigning the same subject is still rejected.
		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrAssignmentExists) {
			t.Errorf("expected ErrAssignmentExists, got %v", err)
		}
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		fx := newLifecycleFixture(t)

		err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("expected ErrValidationFailed, got %v", err)
		}
	})
}

// ===== START =====

func TestLifecycleService_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the attempt started and hands out questions", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		resp, err := fx.service.Start(ctx, 10)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if resp.SubjectID != 1 {
			t.Errorf("expected subject 1, got %d", resp.SubjectID)
		}
		if len(resp.Questions) != 4 {
			t.Fatalf("expected 4 questions, got %d", len(resp.Questions))
		}
		for _, q := range resp.Questions {
			if len(q.Options) != 4 {
				t.Errorf("question %d: expected 4 options, got %d", q.ID, len(q.Options))
			}
		}

		live := fx.liveRows(10, 1)
		if len(live) != 1 || live[0].Status != models.AssignmentStarted {
			t.Fatalf("expected one started live row, got %+v", live)
		}
		if live[0].StartedAt == nil {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("second call is idempotent", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		first, err := fx.service.Start(ctx, 10)
		if err != nil {
			t.Fatalf("first Start failed: %v", err)
		}
		startedAt := *fx.liveRows(10, 1)[0].StartedAt

		second, err := fx.service.Start(ctx, 10)
		if err != nil {
			t.Fatalf("second Start failed: %v", err)
		}
		if second.AssignmentID != first.AssignmentID {
			t.Errorf("expected the same attempt, got %d then %d", first.AssignmentID, second.AssignmentID)
		}
		if !fx.liveRows(10, 1)[0].StartedAt.Equal(startedAt) {
			t.Error("StartedAt must not change on repeat calls")
		}

		var startedEvents int
		for _, typ := range fx.eventTypes() {
			if typ == events.TypeAssignmentStarted {
				startedEvents++
			}
		}
		if startedEvents != 1 {
			t.Errorf("expected exactly 1 started event, got %d", startedEvents)
		}
	})

	t.Run("no live attempt", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedCandidate(10)

		_, err := fx.service.Start(ctx, 10)
		if !errors.Is(err, ErrAssignmentNotFound) {
			t.Errorf("expected ErrAssignmentNotFound, got %v", err)
		}
	})

	t.Run("delivered questions cover the bank", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 8)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		resp, err := fx.service.Start(ctx, 10)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		seen := make(map[uint]bool)
		for _, q := range resp.Questions {
			seen[q.ID] = true
			optionSeen := make(map[uint]bool)
			for _, o := range q.Options {
				optionSeen[o.ID] = true
			}
			if len(optionSeen) != 4 {
				t.Errorf("question %d: options lost or duplicated in shuffle", q.ID)
			}
		}
		if len(seen) != 8 {
			t.Errorf("expected all 8 questions exactly once, got %d distinct", len(seen))
		}
	})
}

// ===== EVALUATE =====

func TestLifecycleService_Evaluate(t *testing.T) {
	ctx := context.Background()

	assignAndStart := func(t *testing.T, fx *lifecycleFixture, userID, subjectID uint) {
		t.Helper()
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: userID, SubjectID: subjectID}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if _, err := fx.service.Start(ctx, userID); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}

	t.Run("full marks", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		resp, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if resp.Score != "4 / 4" {
			t.Errorf("expected score %q, got %q", "4 / 4", resp.Score)
		}
		if resp.Percentage != 100 {
			t.Errorf("expected percentage 100, got %d", resp.Percentage)
		}
		if got := fx.liveRows(10, 1); len(got) != 0 {
			t.Errorf("expected no live rows after submission, got %d", len(got))
		}
		if len(fx.repo.invalidatedSessions) != 1 || fx.repo.invalidatedSessions[0] != "user10@example.com" {
			t.Errorf("expected the candidate's session to be invalidated, got %v", fx.repo.invalidatedSessions)
		}

		// A finished row always carries its result.
		for _, a := range fx.repo.assignments {
			if a.ID == resp.AssignmentID {
				if a.Status != models.AssignmentFinished {
					t.Errorf("expected status finished, got %q", a.Status)
				}
				if a.Score == nil || a.Percentage == nil || a.FinishedAt == nil {
					t.Errorf("finished row missing score, percentage or timestamp: %+v", a)
				}
			}
		}
	})

	t.Run("partial marks round half up", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 3)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		// 2 of 3 correct: 66.67 rounds to 67.
		answers := fx.correctAnswers(1, 2)
		answers = append(answers, models.AnswerSubmission{QuestionID: 102, OptionID: 1021})

		resp, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: answers})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if resp.Score != "2 / 3" {
			t.Errorf("expected score %q, got %q", "2 / 3", resp.Score)
		}
		if resp.Percentage != 67 {
			t.Errorf("expected percentage 67, got %d", resp.Percentage)
		}
	})

	t.Run("all wrong scores zero", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		answers := make([]models.AnswerSubmission, 0, 4)
		for i := uint(0); i < 4; i++ {
			answers = append(answers, models.AnswerSubmission{QuestionID: 100 + i, OptionID: (100+i)*10 + 1})
		}

		resp, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: answers})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if resp.Score != "0 / 4" || resp.Percentage != 0 {
			t.Errorf("expected 0 / 4 at 0%%, got %q at %d%%", resp.Score, resp.Percentage)
		}
	})

	t.Run("unknown question ids earn nothing and raise no error", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		answers := fx.correctAnswers(1, 2)
		answers = append(answers, models.AnswerSubmission{QuestionID: 9999, OptionID: 1})

		resp, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: answers})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if resp.Score != "2 / 4" || resp.Percentage != 50 {
			t.Errorf("expected 2 / 4 at 50%%, got %q at %d%%", resp.Score, resp.Percentage)
		}
	})

	t.Run("partial submission scored against full question set", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		resp, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 1)})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if resp.Score != "1 / 4" || resp.Percentage != 25 {
			t.Errorf("expected 1 / 4 at 25%%, got %q at %d%%", resp.Score, resp.Percentage)
		}
	})

	t.Run("not started", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		_, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)})
		if !errors.Is(err, ErrTestNotStarted) {
			t.Errorf("expected ErrTestNotStarted, got %v", err)
		}
	})

	t.Run("no live attempt", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)

		_, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)})
		if !errors.Is(err, ErrAssignmentNotFound) {
			t.Errorf("expected ErrAssignmentNotFound, got %v", err)
		}
	})

	t.Run("double submission rejected, stored score untouched", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		first, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)})
		if err != nil {
			t.Fatalf("first Evaluate failed: %v", err)
		}

		_, err = fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 1)})
		if !errors.Is(err, ErrAlreadySubmitted) {
			t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
		}

		for _, a := range fx.repo.assignments {
			if a.ID == first.AssignmentID {
				if a.Score == nil || *a.Score != "4 / 4" {
					t.Errorf("stored score changed after rejected resubmission: %v", a.Score)
				}
			}
		}
	})

	t.Run("zero-question subject rejected before any write", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		assignAndStart(t, fx, 10, 1)

		for _, q := range fx.repo.questions {
			q.IsActive = false
		}

		_, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)})
		if !errors.Is(err, ErrNoActiveQuestions) {
			t.Fatalf("expected ErrNoActiveQuestions, got %v", err)
		}

		live := fx.liveRows(10, 1)
		if len(live) != 1 || live[0].Status != models.AssignmentStarted {
			t.Errorf("attempt must stay started after a rejected evaluation, got %+v", live)
		}
		if len(fx.repo.invalidatedSessions) != 0 {
			t.Error("session must not be invalidated when evaluation is rejected")
		}
	})
}

// ===== REASSIGN =====

func TestLifecycleService_Reassign(t *testing.T) {
	ctx := context.Background()

	seedStartedAttempt := func(t *testing.T, fx *lifecycleFixture) {
		t.Helper()
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if _, err := fx.service.Start(ctx, 10); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
	}

	t.Run("supersedes the started attempt with a fresh one", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		seedStartedAttempt(t, fx)
		priorID := fx.liveRows(10, 1)[0].ID

		if err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Reassign failed: %v", err)
		}

		live := fx.liveRows(10, 1)
		if len(live) != 1 {
			t.Fatalf("expected exactly 1 live row after reassignment, got %d", len(live))
		}
		fresh := live[0]
		if fresh.Status != models.AssignmentAssigned {
			t.Errorf("expected fresh attempt to be assigned, got %q", fresh.Status)
		}
		if fresh.ReassignCount != 1 {
			t.Errorf("expected reassign count 1, got %d", fresh.ReassignCount)
		}
		if fresh.PriorAttemptID == nil || *fresh.PriorAttemptID != priorID {
			t.Errorf("expected prior attempt link to %d, got %v", priorID, fresh.PriorAttemptID)
		}

		var superseded int
		for _, a := range fx.repo.assignments {
			if a.Status == models.AssignmentSuperseded {
				superseded++
			}
		}
		if superseded != 1 {
			t.Errorf("expected 1 superseded row, got %d", superseded)
		}
	})

	t.Run("no history", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)

		err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrAssignmentNotFound) {
			t.Errorf("expected ErrAssignmentNotFound, got %v", err)
		}
	})

	t.Run("unstarted attempt cannot be reassigned", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		fx.seedCandidate(10)
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrTestNotStarted) {
			t.Errorf("expected ErrTestNotStarted, got %v", err)
		}
	})

	t.Run("finished attempt cannot be reassigned", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		seedStartedAttempt(t, fx)
		if _, err := fx.service.Evaluate(ctx, 10, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)}); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}

		err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrTestAlreadyFinished) {
			t.Errorf("expected ErrTestAlreadyFinished, got %v", err)
		}
	})

	t.Run("ten reassignments succeed, the eleventh is rejected", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		seedStartedAttempt(t, fx)

		for k := 1; k <= maxReassignments; k++ {
			if err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1}); err != nil {
				t.Fatalf("reassignment %d failed: %v", k, err)
			}

			live := fx.liveRows(10, 1)
			if len(live) != 1 {
				t.Fatalf("after reassignment %d: expected 1 live row, got %d", k, len(live))
			}
			if live[0].ReassignCount != k {
				t.Fatalf("after reassignment %d: expected reassign count %d, got %d", k, k, live[0].ReassignCount)
			}

			if _, err := fx.service.Start(ctx, 10); err != nil {
				t.Fatalf("Start after reassignment %d failed: %v", k, err)
			}
		}

		err := fx.service.Reassign(ctx, &ReassignTestRequest{UserID: 10, SubjectID: 1})
		if !errors.Is(err, ErrReassignLimitExceeded) {
			t.Fatalf("expected ErrReassignLimitExceeded on reassignment %d, got %v", maxReassignments+1, err)
		}

		// The rejected reassignment must leave the chain untouched.
		live := fx.liveRows(10, 1)
		if len(live) != 1 || live[0].ReassignCount != maxReassignments {
			t.Errorf("rejected reassignment mutated the chain: %+v", live)
		}
	})
}

// ===== LIST PENDING =====

func TestLifecycleService_ListPending(t *testing.T) {
	ctx := context.Background()

	seedStarted := func(t *testing.T, fx *lifecycleFixture, userID, subjectID uint) {
		t.Helper()
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: userID, SubjectID: subjectID}); err != nil {
			t.Fatalf("Assign(%d, %d) failed: %v", userID, subjectID, err)
		}
		if _, err := fx.service.Start(ctx, userID); err != nil {
			t.Fatalf("Start(%d) failed: %v", userID, err)
		}
	}

	t.Run("lists only started unfinished attempts", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 4)
		for id := uint(10); id < 13; id++ {
			fx.seedCandidate(id)
		}

		seedStarted(t, fx, 10, 1)
		seedStarted(t, fx, 11, 1)
		// Assigned but never started: must not appear.
		if err := fx.service.Assign(ctx, &AssignTestRequest{UserID: 12, SubjectID: 1}); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		// Finished: must not appear.
		if _, err := fx.service.Evaluate(ctx, 11, &SubmitTestRequest{SubjectID: 1, Answers: fx.correctAnswers(1, 4)}); err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}

		resp, err := fx.service.ListPending(ctx, &ListPendingParams{Page: 1})
		if err != nil {
			t.Fatalf("ListPending failed: %v", err)
		}
		if resp.Total != 1 {
			t.Fatalf("expected 1 pending attempt, got %d", resp.Total)
		}

		items, ok := resp.Data.([]PendingReassignment)
		if !ok {
			t.Fatalf("unexpected data type %T", resp.Data)
		}
		if items[0].UserID != 10 || items[0].Subject != "Subject 1" {
			t.Errorf("unexpected listing item: %+v", items[0])
		}
	})

	t.Run("pages at ten per page", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		for id := uint(1); id <= 13; id++ {
			fx.seedSubject(id, 1)
			fx.seedCandidate(100 + id)
			seedStarted(t, fx, 100+id, id)
		}

		page1, err := fx.service.ListPending(ctx, &ListPendingParams{Page: 1})
		if err != nil {
			t.Fatalf("ListPending page 1 failed: %v", err)
		}
		if page1.Total != 13 || page1.LastPage != 2 || page1.PerPage != models.ItemsPerPage {
			t.Errorf("unexpected envelope: %+v", page1)
		}
		if got := len(page1.Data.([]PendingReassignment)); got != 10 {
			t.Errorf("expected 10 items on page 1, got %d", got)
		}

		page2, err := fx.service.ListPending(ctx, &ListPendingParams{Page: 2})
		if err != nil {
			t.Fatalf("ListPending page 2 failed: %v", err)
		}
		if got := len(page2.Data.([]PendingReassignment)); got != 3 {
			t.Errorf("expected 3 items on page 2, got %d", got)
		}
	})

	t.Run("filters by subject and search", func(t *testing.T) {
		fx := newLifecycleFixture(t)
		fx.seedSubject(1, 1)
		fx.seedSubject(2, 1)
		fx.seedCandidate(10)
		fx.seedCandidate(11)
		fx.repo.users[11].FirstName = "Amara"
		seedStarted(t, fx, 10, 1)
		seedStarted(t, fx, 11, 2)

		bySubject, err := fx.service.ListPending(ctx, &ListPendingParams{Page: 1, SubjectID: 2})
		if err != nil {
			t.Fatalf("ListPending by subject failed: %v", err)
		}
		if bySubject.Total != 1 {
			t.Errorf("expected 1 match by subject, got %d", bySubject.Total)
		}

		bySearch, err := fx.service.ListPending(ctx, &ListPendingParams{Page: 1, Search: "amara"})
		if err != nil {
			t.Fatalf("ListPending by search failed: %v", err)
		}
		if bySearch.Total != 1 {
			t.Errorf("expected 1 match by search, got %d", bySearch.Total)
		}
		items := bySearch.Data.([]PendingReassignment)
		if len(items) != 1 || items[0].UserID != 11 {
			t.Errorf("unexpected search result: %+v", items)
		}
	})
}

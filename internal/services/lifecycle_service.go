package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/skillproof/testing-service/internal/events"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
	"github.com/skillproof/testing-service/internal/validator"
)

// maxReassignments caps how often an unfinished test may be handed back to
// the same candidate. The cap counts prior incomplete attempts: the check is
// strictly-greater-than, so up to 10 reassignments succeed and the 11th is
// rejected.
const maxReassignments = 10

type lifecycleService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewLifecycleService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) LifecycleService {
	return &lifecycleService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== ASSIGN =====

func (s *lifecycleService) Assign(ctx context.Context, req *AssignTestRequest) error {
	s.logger.Info("Assigning test",
		"user_id", req.UserID,
		"subject_id", req.SubjectID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	subject, err := s.repo.Subject().GetActiveByID(ctx, req.SubjectID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSubjectNotFound
		}
		return fmt.Errorf("failed to get subject: %w", err)
	}

	user, err := s.repo.User().GetActiveCandidate(ctx, req.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	// An outstanding attempt for ANY subject blocks new assignments: a
	// candidate works through one test at a time.
	outstanding, err := s.repo.Assignment().GetLiveByUser(ctx, user.ID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to check outstanding assignments: %w", err)
	}
	if outstanding != nil {
		return ErrOutstandingAssignment
	}

	// A subject is assigned to a user at most once, ever; only an explicit
	// reassignment creates another attempt.
	exists, err := s.repo.Assignment().HistoryExists(ctx, user.ID, subject.ID)
	if err != nil {
		return fmt.Errorf("failed to check assignment history: %w", err)
	}
	if exists {
		return ErrAssignmentExists
	}

	assignment := &models.Assignment{
		UserID:    user.ID,
		SubjectID: subject.ID,
		Status:    models.AssignmentAssigned,
	}
	if err := s.repo.Assignment().Create(ctx, assignment); err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	s.publishAssignmentEvent(ctx, events.TypeAssignmentAssigned, assignment)

	s.logger.Info("Test assigned",
		"assignment_id", assignment.ID,
		"user_id", user.ID,
		"subject_id", subject.ID)
	return nil
}

// ===== START =====

func (s *lifecycleService) Start(ctx context.Context, userID uint) (*StartTestResponse, error) {
	assignment, err := s.repo.Assignment().GetLiveByUser(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get live assignment: %w", err)
	}

	questions, err := s.repo.Question().GetActiveBySubject(ctx, assignment.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions: %w", err)
	}

	// The start flag transitions at most once; handing the questions out
	// again for an already-started attempt is an idempotent lookup.
	if assignment.Status == models.AssignmentAssigned {
		now := time.Now()
		assignment.Status = models.AssignmentStarted
		assignment.StartedAt = &now
		if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
			return nil, fmt.Errorf("failed to mark assignment started: %w", err)
		}
		s.publishAssignmentEvent(ctx, events.TypeAssignmentStarted, assignment)

		s.logger.Info("Test started",
			"assignment_id", assignment.ID,
			"user_id", userID,
			"subject_id", assignment.SubjectID)
	}

	return &StartTestResponse{
		AssignmentID: assignment.ID,
		SubjectID:    assignment.SubjectID,
		Questions:    buildShuffledQuestions(questions),
	}, nil
}

// ===== EVALUATE =====

func (s *lifecycleService) Evaluate(ctx context.Context, userID uint, req *SubmitTestRequest) (*EvaluateTestResponse, error) {
	s.logger.Info("Evaluating test",
		"user_id", userID,
		"subject_id", req.SubjectID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	subject, err := s.repo.Subject().GetActiveByID(ctx, req.SubjectID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}

	user, err := s.repo.User().GetActiveCandidate(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var result *scoringResult
	var assignmentID uint

	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		// Replay guard first: a finished row anywhere in the pair's history
		// means this submission is a duplicate, and that beats the generic
		// no-live-attempt answer.
		finished, err := r.Assignment().FinishedExists(ctx, user.ID, subject.ID)
		if err != nil {
			return fmt.Errorf("failed to check prior submissions: %w", err)
		}
		if finished {
			return ErrAlreadySubmitted
		}

		assignment, err := r.Assignment().GetLiveByPair(ctx, user.ID, subject.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to get live assignment: %w", err)
		}
		if assignment.Status != models.AssignmentStarted {
			return ErrTestNotStarted
		}

		total, err := r.Subject().CountActiveQuestions(ctx, subject.ID)
		if err != nil {
			return fmt.Errorf("failed to count questions: %w", err)
		}
		if total == 0 {
			// A test with no questions cannot be scored; reject instead of
			// dividing by zero.
			return ErrNoActiveQuestions
		}

		evaluator := &scoringEvaluator{questions: r.Question()}
		result, err = evaluator.evaluate(ctx, int(total), req.Answers)
		if err != nil {
			return err
		}

		now := time.Now()
		assignment.Status = models.AssignmentFinished
		assignment.Score = &result.Score
		assignment.Percentage = &result.Percentage
		assignment.FinishedAt = &now
		if raw, err := json.Marshal(req.Answers); err == nil {
			assignment.SubmittedAnswers = raw
		}

		if err := r.Assignment().Update(ctx, assignment); err != nil {
			return fmt.Errorf("failed to finish assignment: %w", err)
		}

		assignmentID = assignment.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A finished test must not be resumable: revoke the candidate's session.
	// The score is already durable; a failed revocation is logged, not
	// propagated.
	if err := s.repo.Session().Invalidate(ctx, user.Email); err != nil {
		s.logger.Error("Failed to invalidate session after submission",
			"user_id", user.ID,
			"error", err)
	}

	s.publishAssignmentEvent(ctx, events.TypeAssignmentFinished, &models.Assignment{
		ID:         assignmentID,
		UserID:     user.ID,
		SubjectID:  subject.ID,
		Status:     models.AssignmentFinished,
		Score:      &result.Score,
		Percentage: &result.Percentage,
	})

	s.logger.Info("Test evaluated",
		"assignment_id", assignmentID,
		"user_id", user.ID,
		"subject_id", subject.ID,
		"score", result.Score,
		"percentage", result.Percentage)

	return &EvaluateTestResponse{
		AssignmentID: assignmentID,
		Score:        result.Score,
		Percentage:   result.Percentage,
	}, nil
}

// ===== REASSIGN =====

func (s *lifecycleService) Reassign(ctx context.Context, req *ReassignTestRequest) error {
	s.logger.Info("Reassigning test",
		"user_id", req.UserID,
		"subject_id", req.SubjectID)

	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var created *models.Assignment

	// Guards and the supersede/insert pair run in one transaction so a
	// concurrent submission or reassignment of the same pair cannot
	// interleave and leave two live rows.
	err := s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		exists, err := r.Assignment().HistoryExists(ctx, req.UserID, req.SubjectID)
		if err != nil {
			return fmt.Errorf("failed to check assignment history: %w", err)
		}
		if !exists {
			return ErrAssignmentNotFound
		}

		finished, err := r.Assignment().FinishedExists(ctx, req.UserID, req.SubjectID)
		if err != nil {
			return fmt.Errorf("failed to check finished attempts: %w", err)
		}
		if finished {
			return ErrTestAlreadyFinished
		}

		current, err := r.Assignment().GetLiveByPair(ctx, req.UserID, req.SubjectID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get live assignment: %w", err)
		}
		if current == nil || current.Status != models.AssignmentStarted {
			return ErrTestNotStarted
		}

		// The cap counts prior incomplete attempts, not a running counter on
		// the latest row; strictly greater than the limit rejects the 11th
		// reassignment.
		unfinished, err := r.Assignment().CountUnfinished(ctx, req.UserID, req.SubjectID)
		if err != nil {
			return fmt.Errorf("failed to count unfinished attempts: %w", err)
		}
		if unfinished > maxReassignments {
			return ErrReassignLimitExceeded
		}

		now := time.Now()
		// Defensive: deactivate every live row for the pair, not only the
		// expected single one.
		if err := r.Assignment().SupersedeLive(ctx, req.UserID, req.SubjectID, now); err != nil {
			return err
		}

		created = &models.Assignment{
			UserID:         req.UserID,
			SubjectID:      req.SubjectID,
			Status:         models.AssignmentAssigned,
			ReassignCount:  int(unfinished),
			PriorAttemptID: &current.ID,
		}
		return r.Assignment().Create(ctx, created)
	})
	if err != nil {
		return err
	}

	s.publishAssignmentEvent(ctx, events.TypeAssignmentReassigned, created)

	s.logger.Info("Test reassigned",
		"assignment_id", created.ID,
		"user_id", req.UserID,
		"subject_id", req.SubjectID,
		"reassign_count", created.ReassignCount)
	return nil
}

package repositories

import (
	"context"
	"time"

	"github.com/skillproof/testing-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

// PendingFilters narrows the pending-reassignment listing: tests that were
// started but never submitted and are still the live attempt.
type PendingFilters struct {
	SubjectID  *uint      `json:"subject_id"`
	PositionID *uint      `json:"position_id"`
	Search     string     `json:"search"` // matches first/last name, email, mobile
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

// SubjectRepository is the read side of the question bank at subject level.
type SubjectRepository interface {
	GetActiveByID(ctx context.Context, id uint) (*models.Subject, error)
	CountActiveQuestions(ctx context.Context, subjectID uint) (int64, error)
}

// QuestionRepository reads active questions and options for test delivery
// and grading. Delivery paths never see correctness.
type QuestionRepository interface {
	// GetActiveBySubject returns active questions with their active options.
	GetActiveBySubject(ctx context.Context, subjectID uint) ([]*models.Question, error)

	// GetCorrectOptionID returns the id of the single active option flagged
	// correct for an active question, or a not-found error.
	GetCorrectOptionID(ctx context.Context, questionID uint) (uint, error)
}

// AssignmentRepository is the assignment store: one row per attempt of one
// subject by one user, chained across reassignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error

	// GetLiveByUser returns the user's current attempt across all subjects
	// (status assigned or started), if any.
	GetLiveByUser(ctx context.Context, userID uint) (*models.Assignment, error)

	// GetLiveByPair returns the current attempt for a (user, subject) pair.
	GetLiveByPair(ctx context.Context, userID, subjectID uint) (*models.Assignment, error)

	// HistoryExists reports whether any row for the pair was ever created,
	// superseded rows included.
	HistoryExists(ctx context.Context, userID, subjectID uint) (bool, error)

	// FinishedExists reports whether the pair has a finished row anywhere in
	// its history.
	FinishedExists(ctx context.Context, userID, subjectID uint) (bool, error)

	// CountUnfinished counts the pair's historical rows that never finished.
	// This is the value carried as ReassignCount onto a reassigned row.
	CountUnfinished(ctx context.Context, userID, subjectID uint) (int64, error)

	// SupersedeLive marks every live row of the pair superseded and
	// soft-deletes it. Defensive against stale duplicates: all live rows go,
	// not just the expected single one.
	SupersedeLive(ctx context.Context, userID, subjectID uint, now time.Time) error

	// ListPending returns started-but-unfinished live attempts with their
	// user and subject, newest activity first.
	ListPending(ctx context.Context, filters PendingFilters) ([]*models.Assignment, int64, error)
}

// UserRepository is the read-only user directory.
type UserRepository interface {
	// GetActiveCandidate returns the user iff it exists, is active and holds
	// the candidate role.
	GetActiveCandidate(ctx context.Context, id uint) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionRepository invalidates a user's authentication sessions. Token
// issuance belongs to the identity service; the engine only revokes.
type SessionRepository interface {
	Invalidate(ctx context.Context, email string) error
}

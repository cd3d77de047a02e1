package services

import (
	"context"
	"time"

	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
)

// ===== REQUEST/RESPONSE DTOs =====

type AssignTestRequest struct {
	UserID    uint `json:"user_id" validate:"required"`
	SubjectID uint `json:"subject_id" validate:"required"`
}

type SubmitTestRequest struct {
	SubjectID uint                      `json:"subject_id" validate:"required"`
	Answers   []models.AnswerSubmission `json:"answers" validate:"required,dive"`
}

type ReassignTestRequest struct {
	UserID    uint `json:"user_id" validate:"required"`
	SubjectID uint `json:"subject_id" validate:"required"`
}

// OptionForTest is an answer choice as handed to a candidate: no
// correctness flag.
type OptionForTest struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// QuestionForTest is one question in delivery order, options already
// shuffled.
type QuestionForTest struct {
	ID      uint            `json:"id"`
	Text    string          `json:"text"`
	Options []OptionForTest `json:"options"`
}

// StartTestResponse is the question set handed out at test start.
type StartTestResponse struct {
	AssignmentID uint              `json:"assignment_id"`
	SubjectID    uint              `json:"subject_id"`
	Questions    []QuestionForTest `json:"questions"`
}

// EvaluateTestResponse reports the computed result of a submission.
type EvaluateTestResponse struct {
	AssignmentID uint   `json:"assignment_id"`
	Score        string `json:"score"`
	Percentage   int    `json:"percentage"`
}

// PendingReassignment is one started-but-unfinished attempt in the listing.
type PendingReassignment struct {
	AssignmentID  uint      `json:"assignment_id"`
	UserID        uint      `json:"user_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Mobile        string    `json:"mobile"`
	Position      *string   `json:"position,omitempty"`
	SubjectID     uint      `json:"subject_id"`
	Subject       string    `json:"subject"`
	ReassignCount int       `json:"reassign_count"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListPendingParams carries the query-side filters of the pending listing.
type ListPendingParams struct {
	Page       int               `json:"page" validate:"min=0"`
	Search     string            `json:"search"`
	SubjectID  uint              `json:"subject_id"`
	PositionID uint              `json:"position_id"`
	DateFilter models.DateFilter `json:"date_filter" validate:"omitempty,oneof=on before after"`
	StartDate  time.Time         `json:"start_date"`
	EndDate    time.Time         `json:"end_date"`
}

// ===== SERVICE INTERFACES =====

// LifecycleService is the test-assignment lifecycle engine: the state
// machine over assigned, started and finished attempts, with reassignment
// superseding a started attempt.
type LifecycleService interface {
	// Assign creates the first attempt of a subject for a candidate.
	Assign(ctx context.Context, req *AssignTestRequest) error

	// Start hands out the candidate's current test with freshly shuffled
	// questions and options, marking the attempt started on first call.
	Start(ctx context.Context, userID uint) (*StartTestResponse, error)

	// Evaluate scores a submission, finishes the attempt and revokes the
	// candidate's session.
	Evaluate(ctx context.Context, userID uint, req *SubmitTestRequest) (*EvaluateTestResponse, error)

	// Reassign supersedes a started-but-unfinished attempt with a fresh one,
	// bounded by the reassignment cap.
	Reassign(ctx context.Context, req *ReassignTestRequest) error

	// ListPending pages through started-but-unfinished attempts eligible for
	// reassignment.
	ListPending(ctx context.Context, params *ListPendingParams) (*models.PaginationResponse, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Lifecycle() LifecycleService
	Repository() repositories.Repository

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

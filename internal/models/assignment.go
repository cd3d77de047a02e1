package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AssignmentStatus is the explicit lifecycle tag of an attempt. The legacy
// schema encoded the same states as three independent booleans
// (isActive/isStart/isFinish); the tagged value makes illegal combinations
// unrepresentable and keeps transition checks in one place.
type AssignmentStatus string

const (
	// AssignmentAssigned: created, question set not yet handed out.
	AssignmentAssigned AssignmentStatus = "assigned"
	// AssignmentStarted: the candidate has received the (shuffled) questions.
	AssignmentStarted AssignmentStatus = "started"
	// AssignmentFinished: a submission has been evaluated and scored.
	AssignmentFinished AssignmentStatus = "finished"
	// AssignmentSuperseded: replaced by a reassignment; kept for history.
	AssignmentSuperseded AssignmentStatus = "superseded"
)

// IsLive reports whether the status represents the current attempt of a
// (user, subject) pair. At most one live row may exist per pair.
func (s AssignmentStatus) IsLive() bool {
	return s == AssignmentAssigned || s == AssignmentStarted
}

// Assignment is one attempt of one subject by one user. Attempts form a
// chain: a reassignment supersedes the current row and inserts a fresh one
// pointing back at it via PriorAttemptID.
type Assignment struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	UserID    uint `json:"user_id" gorm:"not null;index:idx_assignments_pair;uniqueIndex:idx_assignments_live_pair,where:status IN ('assigned','started')"`
	SubjectID uint `json:"subject_id" gorm:"not null;index:idx_assignments_pair;uniqueIndex:idx_assignments_live_pair,where:status IN ('assigned','started')"`

	Status AssignmentStatus `json:"status" gorm:"not null;default:assigned;index"`

	// Scoring; set only when the attempt finishes.
	Score      *string `json:"score" gorm:"size:20"`
	Percentage *int    `json:"percentage"`

	// Answers as submitted, kept for audit alongside the computed score.
	SubmittedAnswers datatypes.JSON `json:"-" gorm:"type:jsonb"`

	// ReassignCount is the number of prior attempts of this pair that never
	// finished, carried onto the row created by each reassignment.
	ReassignCount int `json:"reassign_count" gorm:"not null;default:0"`

	// PriorAttemptID links to the row this one superseded, making the
	// reassignment history a traversable chain.
	PriorAttemptID *uint `json:"prior_attempt_id" gorm:"index"`

	StartedAt  *time.Time     `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	User         User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Subject      Subject     `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
	PriorAttempt *Assignment `json:"-" gorm:"foreignKey:PriorAttemptID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the lifecycle engine.
const (
	TypeAssignmentAssigned   = "assignment.assigned"
	TypeAssignmentStarted    = "assignment.started"
	TypeAssignmentFinished   = "assignment.finished"
	TypeAssignmentReassigned = "assignment.reassigned"
)

const (
	eventSource  = "testing-service"
	eventVersion = "1.0"
)

// Event is the envelope every lifecycle event ships in.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope for one lifecycle event.
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// AssignmentEvent is the payload of every assignment lifecycle event.
type AssignmentEvent struct {
	AssignmentID  uint   `json:"assignment_id"`
	UserID        uint   `json:"user_id"`
	SubjectID     uint   `json:"subject_id"`
	Status        string `json:"status"`
	Score         string `json:"score,omitempty"`
	Percentage    *int   `json:"percentage,omitempty"`
	ReassignCount int    `json:"reassign_count"`
}

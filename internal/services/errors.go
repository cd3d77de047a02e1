package services

import (
	"errors"
	"fmt"

	"github.com/skillproof/testing-service/internal/validator"
)

// ValidationErrors re-exported so handlers can match it without importing
// the validator package.
type ValidationErrors = validator.ValidationErrors

// Sentinel errors of the lifecycle engine. Handlers map each one onto a
// stable HTTP classification exactly once.
var (
	// Not found
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAssignmentNotFound = errors.New("assignment not found")

	// Conflict
	ErrAssignmentExists      = errors.New("subject already assigned to the user")
	ErrOutstandingAssignment = errors.New("user has not yet completed the assigned test")
	ErrTestNotStarted        = errors.New("test not yet taken")
	ErrTestAlreadyFinished   = errors.New("user has already completed the test")
	ErrAlreadySubmitted      = errors.New("test has already been submitted")

	// Limit exceeded
	ErrReassignLimitExceeded = errors.New("reassignment limit for the test exceeded")

	// Unprocessable
	ErrNoActiveQuestions = errors.New("subject has no active questions")

	// Generic
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidationFailed = errors.New("validation failed")
)

// BusinessRuleError carries a named rule violation with context for the
// caller to act on.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// PermissionError reports a caller acting outside its role.
type PermissionError struct {
	UserID   uint
	Resource string
	Action   string
	Reason   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

func NewPermissionError(userID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Reason:   reason,
	}
}

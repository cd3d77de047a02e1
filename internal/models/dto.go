package models

import (
	"time"
)

// DateFilter selects how a date window is applied when listing pending
// reassignments.
type DateFilter string

const (
	DateFilterNone   DateFilter = ""
	DateFilterOn     DateFilter = "on"
	DateFilterBefore DateFilter = "before"
	DateFilterAfter  DateFilter = "after"
)

// AnswerSubmission is one (question, chosen option) pair of a submission.
type AnswerSubmission struct {
	QuestionID uint `json:"question_id" validate:"required"`
	OptionID   uint `json:"option_id" validate:"required"`
}

// ===== PAGINATION =====

// ItemsPerPage is the fixed page size of every listing endpoint.
const ItemsPerPage = 10

type PaginationResponse struct {
	Total       int64       `json:"total"`
	CurrentPage int         `json:"current_page"`
	LastPage    int         `json:"last_page"`
	PerPage     int         `json:"per_page"`
	Data        interface{} `json:"data"`
}

// NewPaginationResponse builds the standard listing envelope.
func NewPaginationResponse(page int, total int64, perPage int, data interface{}) *PaginationResponse {
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if page < 1 {
		page = 1
	}
	return &PaginationResponse{
		Total:       total,
		CurrentPage: page,
		LastPage:    lastPage,
		PerPage:     perPage,
		Data:        data,
	}
}

// DateWindow resolves a DateFilter plus its bounds into a [from, to) range
// over updated_at. "on" covers the whole start day, "before" everything up to
// it, "after" everything from the day following start, and a start+end pair
// an inclusive span.
func DateWindow(filter DateFilter, start, end time.Time) (from, to *time.Time) {
	if filter == DateFilterNone || start.IsZero() {
		return nil, nil
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	nextDay := dayStart.AddDate(0, 0, 1)

	switch filter {
	case DateFilterOn:
		if !end.IsZero() {
			endNext := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)
			return &dayStart, &endNext
		}
		return &dayStart, &nextDay
	case DateFilterBefore:
		return nil, &dayStart
	case DateFilterAfter:
		return &nextDay, nil
	}
	return nil, nil
}

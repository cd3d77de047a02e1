package services

import (
	"context"
	"fmt"

	"github.com/skillproof/testing-service/internal/events"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
)

// ===== PENDING LISTING =====

func (s *lifecycleService) ListPending(ctx context.Context, params *ListPendingParams) (*models.PaginationResponse, error) {
	if err := s.validator.Validate(params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}

	from, to := models.DateWindow(params.DateFilter, params.StartDate, params.EndDate)

	filters := repositories.PendingFilters{
		Search:   params.Search,
		DateFrom: from,
		DateTo:   to,
		Limit:    models.ItemsPerPage,
		Offset:   (page - 1) * models.ItemsPerPage,
	}
	if params.SubjectID > 0 {
		filters.SubjectID = &params.SubjectID
	}
	if params.PositionID > 0 {
		filters.PositionID = &params.PositionID
	}

	rows, total, err := s.repo.Assignment().ListPending(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reassignments: %w", err)
	}

	items := make([]PendingReassignment, 0, len(rows))
	for _, row := range rows {
		item := PendingReassignment{
			AssignmentID:  row.ID,
			UserID:        row.UserID,
			FirstName:     row.User.FirstName,
			LastName:      row.User.LastName,
			Email:         row.User.Email,
			Mobile:        row.User.Mobile,
			SubjectID:     row.SubjectID,
			Subject:       row.Subject.Name,
			ReassignCount: row.ReassignCount,
			UpdatedAt:     row.UpdatedAt,
		}
		if row.User.Position != nil {
			item.Position = &row.User.Position.Title
		}
		if row.StartedAt != nil {
			item.StartedAt = *row.StartedAt
		}
		items = append(items, item)
	}

	return models.NewPaginationResponse(page, total, models.ItemsPerPage, items), nil
}

// ===== SHARED HELPERS =====

// buildShuffledQuestions maps the bank's questions onto the delivery shape,
// then shuffles the question order and each question's option order
// independently.
func buildShuffledQuestions(questions []*models.Question) []QuestionForTest {
	out := make([]QuestionForTest, 0, len(questions))
	for _, q := range questions {
		options := make([]OptionForTest, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, OptionForTest{ID: o.ID, Text: o.Text})
		}
		Shuffle(options)
		out = append(out, QuestionForTest{
			ID:      q.ID,
			Text:    q.Text,
			Options: options,
		})
	}
	Shuffle(out)
	return out
}

// publishAssignmentEvent emits a lifecycle event. Delivery is best effort:
// the state transition is already committed, so a broker failure is logged
// and swallowed rather than rolling back the operation.
func (s *lifecycleService) publishAssignmentEvent(ctx context.Context, eventType string, a *models.Assignment) {
	if s.publisher == nil {
		return
	}

	payload := events.AssignmentEvent{
		AssignmentID:  a.ID,
		UserID:        a.UserID,
		SubjectID:     a.SubjectID,
		Status:        string(a.Status),
		Percentage:    a.Percentage,
		ReassignCount: a.ReassignCount,
	}
	if a.Score != nil {
		payload.Score = *a.Score
	}

	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, payload)); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", eventType,
			"assignment_id", a.ID,
			"error", err)
	}
}

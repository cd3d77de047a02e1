package postgres

import (
	"gorm.io/gorm"

	"github.com/skillproof/testing-service/internal/repositories"
)

// applyPendingFilters narrows the pending-reassignment query. Expects the
// base query to have joined the users table.
func applyPendingFilters(query *gorm.DB, filters repositories.PendingFilters) *gorm.DB {
	if filters.SubjectID != nil {
		query = query.Where("assignments.subject_id = ?", *filters.SubjectID)
	}
	if filters.PositionID != nil {
		query = query.Where("users.position_id = ?", *filters.PositionID)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where(
			"users.first_name ILIKE ? OR users.last_name ILIKE ? OR users.email ILIKE ? OR users.mobile ILIKE ?",
			like, like, like, like,
		)
	}
	if filters.DateFrom != nil {
		query = query.Where("assignments.updated_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("assignments.updated_at < ?", *filters.DateTo)
	}
	return query
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
)

type assignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &assignmentPostgreSQL{db: db}
}

func (r *assignmentPostgreSQL) Create(ctx context.Context, assignment *models.Assignment) error {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

func (r *assignmentPostgreSQL) Update(ctx context.Context, assignment *models.Assignment) error {
	if err := r.db.WithContext(ctx).Save(assignment).Error; err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

func (r *assignmentPostgreSQL) GetLiveByUser(ctx context.Context, userID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, liveStatuses()).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get live assignment by user: %w", err)
	}
	return &assignment, nil
}

func (r *assignmentPostgreSQL) GetLiveByPair(ctx context.Context, userID, subjectID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND subject_id = ? AND status IN ?", userID, subjectID, liveStatuses()).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get live assignment by pair: %w", err)
	}
	return &assignment, nil
}

// History queries run Unscoped: superseded rows are soft-deleted but still
// count toward the once-ever assignment guard and the reassignment cap.

func (r *assignmentPostgreSQL) HistoryExists(ctx context.Context, userID, subjectID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Assignment{}).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check assignment history: %w", err)
	}
	return count > 0, nil
}

func (r *assignmentPostgreSQL) FinishedExists(ctx context.Context, userID, subjectID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Assignment{}).
		Where("user_id = ? AND subject_id = ? AND status = ?", userID, subjectID, models.AssignmentFinished).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check finished assignments: %w", err)
	}
	return count > 0, nil
}

func (r *assignmentPostgreSQL) CountUnfinished(ctx context.Context, userID, subjectID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().
		Model(&models.Assignment{}).
		Where("user_id = ? AND subject_id = ? AND status <> ?", userID, subjectID, models.AssignmentFinished).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished assignments: %w", err)
	}
	return count, nil
}

func (r *assignmentPostgreSQL) SupersedeLive(ctx context.Context, userID, subjectID uint, now time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("user_id = ? AND subject_id = ? AND status IN ?", userID, subjectID, liveStatuses()).
		Updates(map[string]interface{}{
			"status":     models.AssignmentSuperseded,
			"deleted_at": now,
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to supersede live assignments: %w", err)
	}
	return nil
}

func (r *assignmentPostgreSQL) ListPending(ctx context.Context, filters repositories.PendingFilters) ([]*models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Joins("JOIN users ON users.id = assignments.user_id").
		Where("assignments.status = ?", models.AssignmentStarted)

	query = applyPendingFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending reassignments: %w", err)
	}

	var assignments []*models.Assignment
	err := query.
		Preload("User").
		Preload("User.Position").
		Preload("Subject").
		Order("assignments.updated_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&assignments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending reassignments: %w", err)
	}

	return assignments, total, nil
}

func liveStatuses() []models.AssignmentStatus {
	return []models.AssignmentStatus{models.AssignmentAssigned, models.AssignmentStarted}
}

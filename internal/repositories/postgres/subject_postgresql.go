package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/skillproof/testing-service/internal/cache"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
)

type subjectPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewSubjectPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SubjectRepository {
	return &subjectPostgreSQL{db: db, cache: cacheManager}
}

func (r *subjectPostgreSQL) GetActiveByID(ctx context.Context, id uint) (*models.Subject, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	if r.cache != nil {
		var cached models.Subject
		if err := r.cache.Subject.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	var subject models.Subject
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&subject).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject %d: %w", id, err)
	}

	if r.cache != nil {
		_ = r.cache.Subject.Set(ctx, cacheKey, &subject, cache.SubjectCacheConfig.TTL)
	}

	return &subject, nil
}

func (r *subjectPostgreSQL) CountActiveQuestions(ctx context.Context, subjectID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("subject_id = ? AND is_active = ?", subjectID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count questions for subject %d: %w", subjectID, err)
	}
	return count, nil
}

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

type questionPostgreSQL struct {
	db    *gorm.DB
	cache *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &questionPostgreSQL{db: db, cache: cacheManager}
}

func (r *questionPostgreSQL) GetActiveBySubject(ctx context.Context, subjectID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND is_active = ?", subjectID, true).
		Preload("Options", "is_active = ?", true).
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch questions for subject %d: %w", subjectID, err)
	}
	return questions, nil
}

// GetCorrectOptionID looks up the single active correct option of a
// question. Hot path during evaluation, so answered through the cache when
// one is configured; correctness never changes without a question update,
// which invalidates the entry.
func (r *questionPostgreSQL) GetCorrectOptionID(ctx context.Context, questionID uint) (uint, error) {
	cacheKey := fmt.Sprintf("correct:%d", questionID)
	if r.cache != nil {
		var cached uint
		if err := r.cache.Question.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var option models.Option
	err := r.db.WithContext(ctx).
		Joins("JOIN questions ON questions.id = options.question_id").
		Where("options.question_id = ? AND options.is_correct = ? AND options.is_active = ? AND questions.is_active = ?",
			questionID, true, true, true).
		First(&option).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, repositories.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get correct option for question %d: %w", questionID, err)
	}

	if r.cache != nil {
		// Cache failures degrade to database reads.
		_ = r.cache.Question.Set(ctx, cacheKey, option.ID, cache.QuestionCacheConfig.TTL)
	}

	return option.ID, nil
}

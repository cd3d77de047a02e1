package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of
// failing the caller on cache errors.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing the caller.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateQuestionCache drops cached lookups of a question after its text,
// options or correctness changed.
func InvalidateQuestionCache(ctx context.Context, cm *CacheManager, questionID uint) {
	SafeDelete(ctx, cm.Question, fmt.Sprintf("correct:%d", questionID))
}

// InvalidateSubjectCache drops cached lookups of a subject and all its
// questions.
func InvalidateSubjectCache(ctx context.Context, cm *CacheManager, subjectID uint) {
	SafeDelete(ctx, cm.Subject, fmt.Sprintf("id:%d", subjectID))
	SafeInvalidatePattern(ctx, cm.Subject, fmt.Sprintf("questions:%d:*", subjectID))
}

package services

import (
	"context"
	"fmt"
	"math"

	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/internal/repositories"
)

// scoringEvaluator compares a submission against the question bank's
// correct options and renders the score.
type scoringEvaluator struct {
	questions repositories.QuestionRepository
}

// scoringResult is the outcome of evaluating one submission.
type scoringResult struct {
	Correct    int
	Total      int
	Score      string
	Percentage int
}

// evaluate scores answers against the subject's active questions.
//
// Each submitted (question, option) pair earns one mark iff the option is
// the question's active correct option. Unknown question ids and absent
// answers earn nothing and raise no error. The denominator is the count of
// the subject's active questions at evaluation time, so a partial
// submission is scored against the full set. total must be positive; the
// caller rejects zero-question subjects before getting here.
func (e *scoringEvaluator) evaluate(ctx context.Context, total int, answers []models.AnswerSubmission) (*scoringResult, error) {
	correct := 0
	for _, answer := range answers {
		correctOptionID, err := e.questions.GetCorrectOptionID(ctx, answer.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				// Unknown or inactive question: no penalty, no mark.
				continue
			}
			return nil, fmt.Errorf("failed to resolve correct option for question %d: %w", answer.QuestionID, err)
		}
		if answer.OptionID == correctOptionID {
			correct++
		}
	}

	percentage := int(math.Round(float64(correct) / float64(total) * 100))
	if percentage < 0 {
		percentage = 0
	}

	return &scoringResult{
		Correct:    correct,
		Total:      total,
		Score:      fmt.Sprintf("%d / %d", correct, total),
		Percentage: percentage,
	}, nil
}

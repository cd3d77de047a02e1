package services

import (
	"context"
	"testing"

	"github.com/skillproof/testing-service/internal/models"
)

func TestScoringEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	// Three questions; the correct option of question n is n*10.
	for _, id := range []uint{1, 2, 3} {
		repo.questions[id] = &models.Question{
			ID:        id,
			SubjectID: 1,
			IsActive:  true,
			Options: []models.Option{
				{ID: id * 10, QuestionID: id, IsCorrect: true, IsActive: true},
				{ID: id*10 + 1, QuestionID: id, IsActive: true},
			},
		}
	}
	evaluator := &scoringEvaluator{questions: repo}

	tests := []struct {
		name           string
		total          int
		answers        []models.AnswerSubmission
		wantScore      string
		wantPercentage int
	}{
		{
			name:  "all correct",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 1, OptionID: 10},
				{QuestionID: 2, OptionID: 20},
				{QuestionID: 3, OptionID: 30},
			},
			wantScore:      "3 / 3",
			wantPercentage: 100,
		},
		{
			name:  "two thirds rounds up",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 1, OptionID: 10},
				{QuestionID: 2, OptionID: 20},
				{QuestionID: 3, OptionID: 31},
			},
			wantScore:      "2 / 3",
			wantPercentage: 67,
		},
		{
			name:  "one third rounds down",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 1, OptionID: 10},
				{QuestionID: 2, OptionID: 21},
				{QuestionID: 3, OptionID: 31},
			},
			wantScore:      "1 / 3",
			wantPercentage: 33,
		},
		{
			name:           "no answers",
			total:          3,
			answers:        nil,
			wantScore:      "0 / 3",
			wantPercentage: 0,
		},
		{
			name:  "unknown question skipped without penalty",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 1, OptionID: 10},
				{QuestionID: 99, OptionID: 990},
			},
			wantScore:      "1 / 3",
			wantPercentage: 33,
		},
		{
			name:  "wrong option for a known question",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 1, OptionID: 11},
			},
			wantScore:      "0 / 3",
			wantPercentage: 0,
		},
		{
			name:  "denominator is the bank size, not the answer count",
			total: 3,
			answers: []models.AnswerSubmission{
				{QuestionID: 2, OptionID: 20},
			},
			wantScore:      "1 / 3",
			wantPercentage: 33,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := evaluator.evaluate(ctx, tt.total, tt.answers)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if result.Score != tt.wantScore {
				t.Errorf("score: expected %q, got %q", tt.wantScore, result.Score)
			}
			if result.Percentage != tt.wantPercentage {
				t.Errorf("percentage: expected %d, got %d", tt.wantPercentage, result.Percentage)
			}
		})
	}
}

func TestScoringEvaluator_InactiveQuestionSkipped(t *testing.T) {
	ctx := context.Background()

	repo := newFakeRepository()
	repo.questions[1] = &models.Question{
		ID: 1, SubjectID: 1, IsActive: false,
		Options: []models.Option{{ID: 10, QuestionID: 1, IsCorrect: true, IsActive: true}},
	}
	evaluator := &scoringEvaluator{questions: repo}

	result, err := evaluator.evaluate(ctx, 2, []models.AnswerSubmission{{QuestionID: 1, OptionID: 10}})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result.Correct != 0 {
		t.Errorf("an inactive question must not earn a mark, got %d", result.Correct)
	}
}

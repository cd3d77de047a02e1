// Command seed loads a question bank from a spreadsheet into the database.
//
// Each sheet is one subject (the sheet name) with one question per row:
// column A holds the question text, columns B through E the options and
// column F the letter of the correct option (A-D). The first row is treated
// as a header and skipped.
//
// Usage:
//
//	seed -file questions.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/skillproof/testing-service/internal/cache"
	"github.com/skillproof/testing-service/internal/config"
	"github.com/skillproof/testing-service/internal/models"
	"github.com/skillproof/testing-service/pkg"
)

func main() {
	var file string
	flag.StringVar(&file, "file", "", "path to the question bank spreadsheet (.xlsx)")
	flag.Parse()

	if file == "" {
		log.Fatal("missing -file argument")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Stale correct-option entries must not outlive a reseed.
	var cacheManager *cache.CacheManager
	if cfg.RedisURL != "" {
		redisClient, err := pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis, skipping cache invalidation: %v", err)
		} else {
			cacheManager = cache.NewCacheManager(redisClient)
			defer redisClient.Close()
		}
	}

	workbook, err := excelize.OpenFile(file)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", file, err)
	}
	defer workbook.Close()

	ctx := context.Background()
	var subjects, questions int
	for _, sheet := range workbook.GetSheetList() {
		subjectID, n, replaced, err := seedSubject(db, workbook, sheet)
		if err != nil {
			log.Fatalf("Failed to seed subject %q: %v", sheet, err)
		}
		subjects++
		questions += n

		if cacheManager != nil {
			cache.InvalidateSubjectCache(ctx, cacheManager, subjectID)
			for _, questionID := range replaced {
				cache.InvalidateQuestionCache(ctx, cacheManager, questionID)
			}
		}
		log.Printf("Seeded subject %q with %d questions", sheet, n)
	}

	log.Printf("Done: %d subjects, %d questions", subjects, questions)
}

// seedSubject imports one sheet as one subject inside a transaction. An
// existing subject of the same name is reused; its question set is replaced.
// Returns the subject id, the imported count and the ids of the replaced
// questions so the caller can drop their cache entries.
func seedSubject(db *gorm.DB, workbook *excelize.File, sheet string) (uint, int, []uint, error) {
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return 0, 0, nil, fmt.Errorf("sheet has no question rows")
	}

	var subjectID uint
	var replaced []uint
	var imported int
	err = db.Transaction(func(tx *gorm.DB) error {
		subject := models.Subject{Name: sheet, IsActive: true}
		if err := tx.Where("name = ?", sheet).FirstOrCreate(&subject).Error; err != nil {
			return fmt.Errorf("failed to upsert subject: %w", err)
		}
		subjectID = subject.ID

		// Replace the subject's previous question set.
		if err := tx.Model(&models.Question{}).
			Where("subject_id = ?", subject.ID).
			Pluck("id", &replaced).Error; err != nil {
			return fmt.Errorf("failed to collect old questions: %w", err)
		}
		if err := tx.Where("subject_id = ?", subject.ID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to clear old questions: %w", err)
		}

		for i, row := range rows[1:] {
			question, err := parseQuestionRow(subject.ID, row)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+2, err)
			}
			if err := tx.Create(question).Error; err != nil {
				return fmt.Errorf("row %d: failed to insert question: %w", i+2, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, 0, nil, err
	}
	return subjectID, imported, replaced, nil
}

func parseQuestionRow(subjectID uint, row []string) (*models.Question, error) {
	if len(row) < 6 {
		return nil, fmt.Errorf("expected 6 columns (question, 4 options, correct letter), got %d", len(row))
	}

	text := strings.TrimSpace(row[0])
	if text == "" {
		return nil, fmt.Errorf("question text is empty")
	}

	correct := strings.ToUpper(strings.TrimSpace(row[5]))
	if len(correct) != 1 || correct[0] < 'A' || correct[0] > 'D' {
		return nil, fmt.Errorf("correct column must be A-D, got %q", row[5])
	}
	correctIndex := int(correct[0] - 'A')

	question := &models.Question{
		SubjectID: subjectID,
		Text:      text,
		IsActive:  true,
	}
	for j, optionText := range row[1:5] {
		optionText = strings.TrimSpace(optionText)
		if optionText == "" {
			return nil, fmt.Errorf("option %c is empty", 'A'+j)
		}
		question.Options = append(question.Options, models.Option{
			Text:      optionText,
			IsCorrect: j == correctIndex,
			IsActive:  true,
		})
	}
	return question, nil
}

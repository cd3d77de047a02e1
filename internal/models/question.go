package models

import (
	"time"
)

type Question struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SubjectID uint   `json:"subject_id" gorm:"not null;index"`
	Text      string `json:"text" gorm:"type:text;not null" validate:"required"`
	IsActive  bool   `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Subject Subject  `json:"-" gorm:"foreignKey:SubjectID"`
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// Option is one answer choice of a question. Each active question carries
// exactly one active option flagged correct; the flag is never exposed to
// test-takers.
type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required"`
	IsCorrect  bool   `json:"-" gorm:"not null;default:false"`
	IsActive   bool   `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

func (Option) TableName() string {
	return "options"
}

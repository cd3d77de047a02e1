package models

import (
	"time"
)

// Subject is one named test (a skill area) composed of questions.
type Subject struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null;size:200;uniqueIndex" validate:"required,min=1,max=200"`
	IsActive bool   `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SubjectID"`
}

func (Subject) TableName() string {
	return "subjects"
}

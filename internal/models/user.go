package models

import (
	"time"
)

type UserRole string

const (
	RoleCandidate UserRole = "candidate"
	RoleAdmin     UserRole = "admin"
)

// User is the read model of the user directory. The testing service never
// creates or updates users; account management lives in the identity service.
type User struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	FirstName  string   `json:"first_name" gorm:"not null;size:100"`
	LastName   string   `json:"last_name" gorm:"not null;size:100"`
	Email      string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Mobile     string   `json:"mobile" gorm:"size:20"`
	Role       UserRole `json:"role" gorm:"not null;default:candidate;index"`
	PositionID *uint    `json:"position_id" gorm:"index"`
	IsActive   bool     `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Position    *Position    `json:"position,omitempty" gorm:"foreignKey:PositionID"`
	Assignments []Assignment `json:"-" gorm:"foreignKey:UserID"`
}

// Position is the role a candidate applies for; used only to filter the
// pending-reassignment listing.
type Position struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Title    string `json:"title" gorm:"not null;size:200"`
	IsActive bool   `json:"is_active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Position) TableName() string {
	return "positions"
}

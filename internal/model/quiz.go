package model

import (
	"time"

	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "draft"
	QuizStatusPublished QuizStatus = "published"
	QuizStatusClosed    QuizStatus = "closed"
)

type Quiz struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Title            string         `json:"title" gorm:"not null"`
	Description      string         `json:"description,omitempty"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`           // nil = untimed
	MaxAttempts      int            `json:"max_attempts" gorm:"not null;default:0"` // 0 = unlimited
	DueAt            *time.Time     `json:"due_at,omitempty"`
	Status           QuizStatus     `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	InstructorID     string         `json:"instructor_id" gorm:"index"`
	Questions        []Question     `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// AcceptsAttempts reports whether a student may start a new attempt at now.
func (q *Quiz) AcceptsAttempts(now time.Time) bool {
	if q.Status != QuizStatusPublished {
		return false
	}
	return q.DueAt == nil || now.Before(*q.DueAt)
}

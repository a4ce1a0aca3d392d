package model

import "time"

// ManualGrade is an instructor's grade for one free-response question of an attempt.
type ManualGrade struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	AttemptID  string    `json:"attempt_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_grade_attempt_question"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_grade_attempt_question"`
	Points     int       `json:"points" gorm:"not null"`
	Feedback   string    `json:"feedback,omitempty" gorm:"type:text"`
	GraderID   string    `json:"grader_id" gorm:"type:varchar(64);not null"`
	GradedAt   time.Time `json:"graded_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

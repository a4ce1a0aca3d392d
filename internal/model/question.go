package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
	QuestionEssay          QuestionType = "essay"
)

// AutoGradable reports whether answers of this type are scored by comparison.
func (t QuestionType) AutoGradable() bool {
	return t == QuestionMultipleChoice || t == QuestionTrueFalse
}

// Manual reports whether answers of this type need a human grade.
func (t QuestionType) Manual() bool {
	return t == QuestionShortAnswer || t == QuestionEssay
}

func (t QuestionType) Valid() bool {
	return t.AutoGradable() || t.Manual()
}

type Question struct {
	ID            uint                        `gorm:"primarykey" json:"id"`
	QuizID        uint                        `json:"quiz_id" gorm:"not null;index"`
	Type          QuestionType                `json:"type" gorm:"type:varchar(32);not null"`
	Prompt        string                      `json:"prompt" gorm:"type:text;not null"`
	Options       datatypes.JSONSlice[string] `json:"options,omitempty"`
	CorrectAnswer *string                     `json:"correct_answer,omitempty" gorm:"type:text"`
	Points        int                         `json:"points" gorm:"not null"`
	OrderIndex    int                         `json:"order_index" gorm:"not null"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
	DeletedAt     gorm.DeletedAt              `gorm:"index" json:"-"`
}

// Snapshot copies the scoring-relevant fields of q.
func (q Question) Snapshot() QuestionSnapshot {
	snap := QuestionSnapshot{
		ID:         q.ID,
		Type:       q.Type,
		Prompt:     q.Prompt,
		Points:     q.Points,
		OrderIndex: q.OrderIndex,
	}
	if len(q.Options) > 0 {
		snap.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectAnswer != nil {
		v := *q.CorrectAnswer
		snap.CorrectAnswer = &v
	}
	return snap
}

// QuestionSnapshot is the copy of a question pinned on an attempt when it starts.
// Scoring always reads the snapshot, so later edits to the quiz never change
// an attempt that already exists.
type QuestionSnapshot struct {
	ID            uint         `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
	OrderIndex    int          `json:"order_index"`
}

package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptGraded     AttemptStatus = "graded"
)

// rank orders statuses along the only legal direction of travel.
func (s AttemptStatus) rank() int {
	switch s {
	case AttemptInProgress:
		return 0
	case AttemptCompleted:
		return 1
	case AttemptGraded:
		return 2
	}
	return -1
}

// AtLeast reports whether s is the same as or further along than other.
func (s AttemptStatus) AtLeast(other AttemptStatus) bool {
	return s.rank() >= other.rank() && s.rank() >= 0
}

func (s AttemptStatus) Valid() bool { return s.rank() >= 0 }

type SubmitSource string

const (
	SubmitManual  SubmitSource = "manual"
	SubmitExpiry  SubmitSource = "expiry"
	SubmitSweeper SubmitSource = "sweeper"
)

// Answers maps a question ID (decimal string) to the student's answer.
type Answers map[string]string

// QuestionKey is the Answers key for a question ID.
func QuestionKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Clone returns an independent copy; nil stays an empty map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AnsweredCount counts keys with a non-blank value.
func (a Answers) AnsweredCount() int {
	n := 0
	for _, v := range a {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

type Attempt struct {
	ID               string                                 `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuizID           uint                                   `json:"quiz_id" gorm:"not null;index:idx_attempt_quiz_student"`
	StudentID        string                                 `json:"student_id" gorm:"type:varchar(64);not null;index:idx_attempt_quiz_student"`
	Status           AttemptStatus                          `json:"status" gorm:"type:varchar(20);not null;index"`
	Answers          datatypes.JSONType[Answers]            `json:"answers"`
	AnswerKey        datatypes.JSONType[[]QuestionSnapshot] `json:"-"`
	TimeLimitMinutes *int                                   `json:"time_limit_minutes,omitempty"`
	Score            *int                                   `json:"score,omitempty"`
	StartedAt        time.Time                              `json:"started_at" gorm:"not null"`
	DeadlineAt       *time.Time                             `json:"deadline_at,omitempty" gorm:"index"`
	CompletedAt      *time.Time                             `json:"completed_at,omitempty"`
	GradedAt         *time.Time                             `json:"graded_at,omitempty"`
	SubmitSource     *SubmitSource                          `json:"submit_source,omitempty" gorm:"type:varchar(20)"`
	ForceFinalized   bool                                   `json:"force_finalized" gorm:"not null;default:false"`
	FinalizedBy      *string                                `json:"finalized_by,omitempty" gorm:"type:varchar(64)"`
	Version          int64                                  `json:"version" gorm:"not null;default:1"`
	CreatedAt        time.Time                              `json:"created_at"`
	UpdatedAt        time.Time                              `json:"updated_at"`
}

func (a *Attempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Version == 0 {
		a.Version = 1
	}
	if a.TimeLimitMinutes != nil && a.DeadlineAt == nil {
		deadline := a.StartedAt.Add(time.Duration(*a.TimeLimitMinutes) * time.Minute)
		a.DeadlineAt = &deadline
	}
	return nil
}

// CurrentAnswers returns a copy of the persisted answer map.
func (a Attempt) CurrentAnswers() Answers {
	return a.Answers.Data().Clone()
}

func (a Attempt) Questions() []QuestionSnapshot {
	return a.AnswerKey.Data()
}

// ManualQuestionIDs lists the pinned questions that require a human grade.
func (a Attempt) ManualQuestionIDs() []uint {
	var ids []uint
	for _, q := range a.Questions() {
		if q.Type.Manual() {
			ids = append(ids, q.ID)
		}
	}
	return ids
}

// Question looks up a pinned question by ID.
func (a Attempt) Question(id uint) (QuestionSnapshot, bool) {
	for _, q := range a.Questions() {
		if q.ID == id {
			return q, true
		}
	}
	return QuestionSnapshot{}, false
}

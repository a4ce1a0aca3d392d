package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type QuestionResultDTO struct {
	QuestionID uint   `json:"question_id"`
	Type       string `json:"type"`
	State      string `json:"state"` // correct, incorrect, unanswered, graded, pending, zeroed
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
	Feedback   string `json:"feedback,omitempty"`
	GradedBy   string `json:"graded_by,omitempty"`
}

type ScoreBreakdownDTO struct {
	AutoPoints    int                 `json:"auto_points"`
	ManualPoints  int                 `json:"manual_points"`
	Total         int                 `json:"total"`
	MaxPoints     int                 `json:"max_points"`
	PendingManual []uint              `json:"pending_manual"`
	Questions     []QuestionResultDTO `json:"questions"`
}

// AttemptStateDTO is returned by every attempt endpoint.
type AttemptStateDTO struct {
	AttemptID        string             `json:"attempt_id"`
	QuizID           uint               `json:"quiz_id"`
	StudentID        string             `json:"student_id"`
	Status           string             `json:"status"`
	Score            *int               `json:"score"`
	Breakdown        *ScoreBreakdownDTO `json:"breakdown,omitempty"`
	Answers          map[string]string  `json:"answers,omitempty"`
	StartedAt        time.Time          `json:"started_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	GradedAt         *time.Time         `json:"graded_at,omitempty"`
	SubmitSource     *string            `json:"submit_source,omitempty"`
	ForceFinalized   bool               `json:"force_finalized"`
	FinalizedBy      *string            `json:"finalized_by,omitempty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	RemainingSeconds *int64             `json:"remaining_seconds,omitempty"`
	Version          int64              `json:"version"`
	Warning          string             `json:"warning,omitempty"`
	Degraded         bool               `json:"degraded,omitempty"`
}

type AttemptSummaryDTO struct {
	AttemptID   string     `json:"attempt_id"`
	QuizID      uint       `json:"quiz_id"`
	Status      string     `json:"status"`
	Score       *int       `json:"score"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type ManualGradeDTO struct {
	QuestionID uint      `json:"question_id"`
	Points     int       `json:"points"`
	Feedback   string    `json:"feedback,omitempty"`
	GraderID   string    `json:"grader_id"`
	GradedAt   time.Time `json:"graded_at"`
}

type GradeSuggestionDTO struct {
	AttemptID  string `json:"attempt_id"`
	QuestionID uint   `json:"question_id"`
	Points     int    `json:"points"`
	MaxPoints  int    `json:"max_points"`
	Feedback   string `json:"feedback"`
	Advisory   bool   `json:"advisory"`
}

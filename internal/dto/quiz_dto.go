package dto

import "time"

type QuestionRequest struct {
	Type          string   `json:"type" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options" validate:"omitempty,dive,required"`
	CorrectAnswer *string  `json:"correct_answer"`
	Points        int      `json:"points" validate:"required,min=1"`
	OrderIndex    int      `json:"order_index" validate:"min=0"`
}

type CreateQuizRequest struct {
	Title            string            `json:"title" validate:"required,max=255"`
	Description      string            `json:"description"`
	TimeLimitMinutes *int              `json:"time_limit_minutes" validate:"omitempty,min=1"`
	MaxAttempts      int               `json:"max_attempts" validate:"min=0"`
	DueAt            *time.Time        `json:"due_at"`
	Questions        []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type UpdateQuizStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published closed"`
}

type QuestionResponse struct {
	ID            uint     `json:"id"`
	QuizID        uint     `json:"quiz_id"`
	Type          string   `json:"type"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer *string  `json:"correct_answer,omitempty"`
	Points        int      `json:"points"`
	OrderIndex    int      `json:"order_index"`
}

type QuizResponse struct {
	ID               uint               `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int                `json:"max_attempts"`
	DueAt            *time.Time         `json:"due_at,omitempty"`
	Status           string             `json:"status"`
	TotalPoints      int                `json:"total_points"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type QuizSummaryDTO struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes *int       `json:"time_limit_minutes,omitempty"`
	MaxAttempts      int        `json:"max_attempts"`
	DueAt            *time.Time `json:"due_at,omitempty"`
	Status           string     `json:"status"`
	QuestionCount    int        `json:"question_count"`
	CreatedAt        time.Time  `json:"created_at"`
}

package dto

// SaveAnswersRequest is an autosave or live-capture write. Keys are question IDs.
type SaveAnswersRequest struct {
	Answers map[string]string `json:"answers" validate:"required"`
}

// SubmitAttemptRequest carries every capture source the client still holds.
// They are merged before the attempt is finalized.
type SubmitAttemptRequest struct {
	Answers map[string]string   `json:"answers"`
	Pending []map[string]string `json:"pending"`
	Source  string              `json:"source" validate:"omitempty,oneof=manual expiry"`
}

type RecordGradeRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Points     *int   `json:"points" validate:"required"`
	Feedback   string `json:"feedback" validate:"max=10000"`
}

type FinalizeAttemptRequest struct {
	Confirm bool `json:"confirm"`
}

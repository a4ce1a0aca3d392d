package service

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/rs/zerolog/log"
)

func toBreakdownDTO(b ScoreBreakdown) *dto.ScoreBreakdownDTO {
	out := &dto.ScoreBreakdownDTO{
		AutoPoints:    b.AutoPoints,
		ManualPoints:  b.ManualPoints,
		Total:         b.Total,
		MaxPoints:     b.MaxPoints,
		PendingManual: append([]uint{}, b.PendingManual...),
		Questions:     make([]dto.QuestionResultDTO, 0, len(b.Questions)),
	}
	for _, q := range b.Questions {
		out.Questions = append(out.Questions, dto.QuestionResultDTO{
			QuestionID: q.QuestionID,
			Type:       string(q.Type),
			State:      string(q.State),
			Points:     q.Points,
			MaxPoints:  q.MaxPoints,
			Feedback:   q.Feedback,
			GradedBy:   q.GradedBy,
		})
	}
	return out
}

// toAttemptState renders an attempt. breakdown is nil while the attempt is in progress.
func toAttemptState(attempt *model.Attempt, breakdown *ScoreBreakdown, now time.Time) *dto.AttemptStateDTO {
	state := &dto.AttemptStateDTO{
		AttemptID:        attempt.ID,
		QuizID:           attempt.QuizID,
		StudentID:        attempt.StudentID,
		Status:           string(attempt.Status),
		Answers:          attempt.CurrentAnswers(),
		StartedAt:        attempt.StartedAt,
		CompletedAt:      attempt.CompletedAt,
		GradedAt:         attempt.GradedAt,
		ForceFinalized:   attempt.ForceFinalized,
		FinalizedBy:      attempt.FinalizedBy,
		TimeLimitMinutes: attempt.TimeLimitMinutes,
		Version:          attempt.Version,
	}
	if attempt.SubmitSource != nil {
		src := string(*attempt.SubmitSource)
		state.SubmitSource = &src
	}
	if attempt.Status != model.AttemptInProgress {
		state.Score = attempt.Score
		if breakdown != nil {
			state.Breakdown = toBreakdownDTO(*breakdown)
		}
	} else if remaining, bounded := RemainingSeconds(attempt.StartedAt, attempt.TimeLimitMinutes, now); bounded {
		state.RemainingSeconds = &remaining
	}
	return state
}

func toAttemptSummaries(attempts []model.Attempt) []dto.AttemptSummaryDTO {
	out := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, dto.AttemptSummaryDTO{
			AttemptID:   a.ID,
			QuizID:      a.QuizID,
			Status:      string(a.Status),
			Score:       a.Score,
			StartedAt:   a.StartedAt,
			CompletedAt: a.CompletedAt,
		})
	}
	return out
}

func toGradeDTOs(grades []model.ManualGrade) []dto.ManualGradeDTO {
	var out []dto.ManualGradeDTO
	if err := copier.Copy(&out, &grades); err != nil {
		log.Error().Err(err).Msg("Failed to map manual grades")
	}
	if out == nil {
		out = []dto.ManualGradeDTO{}
	}
	return out
}

// toQuizResponse maps a quiz. Answer keys are stripped unless withKey is set.
func toQuizResponse(quiz *model.Quiz, withKey bool) *dto.QuizResponse {
	var resp dto.QuizResponse
	if err := copier.Copy(&resp, quiz); err != nil {
		log.Error().Err(err).Uint("quizID", quiz.ID).Msg("Failed to map quiz")
	}
	for i := range resp.Questions {
		resp.TotalPoints += resp.Questions[i].Points
		if !withKey {
			resp.Questions[i].CorrectAnswer = nil
		}
	}
	return &resp
}

package service

import (
	"strings"

	"github.com/lshigami/quizengine/internal/model"
)

type AutoGradeResult struct {
	Applicable bool // false for free-response types
	Answered   bool
	Correct    bool
	Points     int
}

// AutoGrade scores objective question types by trimmed, case-insensitive comparison.
func AutoGrade(q model.QuestionSnapshot, answer string) AutoGradeResult {
	if !q.Type.AutoGradable() {
		return AutoGradeResult{}
	}
	res := AutoGradeResult{Applicable: true}
	given := normalizeAnswer(answer)
	if given == "" {
		return res
	}
	res.Answered = true
	if q.CorrectAnswer != nil && given == normalizeAnswer(*q.CorrectAnswer) {
		res.Correct = true
		res.Points = q.Points
	}
	return res
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

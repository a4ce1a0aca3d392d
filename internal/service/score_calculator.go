package service

import (
	"sort"
	"time"

	"github.com/lshigami/quizengine/internal/model"
)

type QuestionState string

const (
	StateCorrect    QuestionState = "correct"
	StateIncorrect  QuestionState = "incorrect"
	StateUnanswered QuestionState = "unanswered"
	StateGraded     QuestionState = "graded"
	StatePending    QuestionState = "pending"
	// StateZeroed marks a manual question scored 0 by an early finalize.
	StateZeroed QuestionState = "zeroed"
)

type QuestionResult struct {
	QuestionID uint
	Type       model.QuestionType
	State      QuestionState
	Points     int
	MaxPoints  int
	Feedback   string
	GradedBy   string
}

type ScoreBreakdown struct {
	AutoPoints    int
	ManualPoints  int
	Total         int
	MaxPoints     int
	PendingManual []uint
	Questions     []QuestionResult
}

// Complete reports whether every manual question has a grade.
func (b ScoreBreakdown) Complete() bool { return len(b.PendingManual) == 0 }

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// ComputeScore folds auto-grading and manual grades over the pinned questions.
// It is pure: the same inputs always give the same breakdown.
func ComputeScore(questions []model.QuestionSnapshot, answers model.Answers, grades []model.ManualGrade) ScoreBreakdown {
	ordered := append([]model.QuestionSnapshot(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderIndex != ordered[j].OrderIndex {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		}
		return ordered[i].ID < ordered[j].ID
	})

	latest := make(map[uint]model.ManualGrade, len(grades))
	for _, g := range grades {
		if prev, ok := latest[g.QuestionID]; ok && prev.GradedAt.After(g.GradedAt) {
			continue
		}
		latest[g.QuestionID] = g
	}

	b := ScoreBreakdown{PendingManual: []uint{}, Questions: make([]QuestionResult, 0, len(ordered))}
	for _, q := range ordered {
		max := q.Points
		if max < 0 {
			max = 0
		}
		res := QuestionResult{QuestionID: q.ID, Type: q.Type, MaxPoints: max}
		b.MaxPoints += max

		if q.Type.AutoGradable() {
			r := AutoGrade(q, answers[model.QuestionKey(q.ID)])
			res.Points = clamp(r.Points, max)
			switch {
			case !r.Answered:
				res.State = StateUnanswered
			case r.Correct:
				res.State = StateCorrect
			default:
				res.State = StateIncorrect
			}
			b.AutoPoints += res.Points
		} else if g, ok := latest[q.ID]; ok {
			res.Points = clamp(g.Points, max)
			res.State = StateGraded
			res.Feedback = g.Feedback
			res.GradedBy = g.GraderID
			b.ManualPoints += res.Points
		} else {
			res.State = StatePending
			b.PendingManual = append(b.PendingManual, q.ID)
		}
		b.Questions = append(b.Questions, res)
	}
	b.Total = b.AutoPoints + b.ManualPoints
	return b
}

// ZeroPending returns a copy of b where every pending manual question is
// scored 0 and marked zeroed.
func ZeroPending(b ScoreBreakdown) ScoreBreakdown {
	out := b
	out.PendingManual = []uint{}
	out.Questions = append([]QuestionResult(nil), b.Questions...)
	for i := range out.Questions {
		if out.Questions[i].State == StatePending {
			out.Questions[i].State = StateZeroed
			out.Questions[i].Points = 0
		}
	}
	return out
}

// AttemptBreakdown scores an attempt against its pinned answer key. On a
// force-finalized attempt, grades stored after finalization are ignored so the
// breakdown matches the persisted score.
func AttemptBreakdown(attempt *model.Attempt, grades []model.ManualGrade) ScoreBreakdown {
	if attempt.ForceFinalized && attempt.GradedAt != nil {
		grades = gradesUntil(grades, *attempt.GradedAt)
	}
	b := ComputeScore(attempt.Questions(), attempt.CurrentAnswers(), grades)
	if attempt.ForceFinalized {
		b = ZeroPending(b)
	}
	return b
}

func gradesUntil(grades []model.ManualGrade, cutoff time.Time) []model.ManualGrade {
	kept := make([]model.ManualGrade, 0, len(grades))
	for _, g := range grades {
		if !g.GradedAt.After(cutoff) {
			kept = append(kept, g)
		}
	}
	return kept
}

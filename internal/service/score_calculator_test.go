package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/lshigami/quizengine/internal/model"
	"gorm.io/datatypes"
)

func TestComputeScoreScenario(t *testing.T) {
	questions := scenarioQuestions()
	answers := model.Answers{"1": "A", "2": "False"}

	b := ComputeScore(questions, answers, nil)
	if b.AutoPoints != 2 || b.ManualPoints != 0 || b.Total != 2 || b.MaxPoints != 10 {
		t.Fatalf("breakdown = %+v", b)
	}
	if !reflect.DeepEqual(b.PendingManual, []uint{3}) || b.Complete() {
		t.Fatalf("pending = %v, complete = %v", b.PendingManual, b.Complete())
	}
	wantStates := []QuestionState{StateCorrect, StateIncorrect, StatePending}
	for i, q := range b.Questions {
		if q.State != wantStates[i] {
			t.Errorf("question %d state = %s, want %s", q.QuestionID, q.State, wantStates[i])
		}
	}

	graded := ComputeScore(questions, answers, []model.ManualGrade{{QuestionID: 3, Points: 4, GraderID: "inst-1", Feedback: "ok"}})
	if graded.Total != 6 || graded.ManualPoints != 4 || !graded.Complete() {
		t.Fatalf("graded breakdown = %+v", graded)
	}
	if got := graded.Questions[2]; got.State != StateGraded || got.GradedBy != "inst-1" || got.Feedback != "ok" {
		t.Errorf("essay result = %+v", got)
	}
}

func TestComputeScoreIsPure(t *testing.T) {
	questions := scenarioQuestions()
	answers := model.Answers{"1": "A", "2": "true", "3": "essay text"}
	grades := []model.ManualGrade{{QuestionID: 3, Points: 5}}

	first := ComputeScore(questions, answers, grades)
	second := ComputeScore(questions, answers, grades)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input gave different results:\n%+v\n%+v", first, second)
	}
	if answers["3"] != "essay text" || len(answers) != 3 {
		t.Errorf("answers were modified: %v", answers)
	}
}

func TestComputeScoreOrdersByOrderIndex(t *testing.T) {
	questions := scenarioQuestions()
	reversed := []model.QuestionSnapshot{questions[2], questions[0], questions[1]}
	b := ComputeScore(reversed, nil, nil)
	var ids []uint
	for _, q := range b.Questions {
		ids = append(ids, q.QuestionID)
	}
	if !reflect.DeepEqual(ids, []uint{1, 2, 3}) {
		t.Errorf("order = %v", ids)
	}
}

func TestComputeScoreGradeEdgeCases(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		grades    []model.ManualGrade
		wantTotal int
	}{
		{name: "grade above max is clamped", grades: []model.ManualGrade{{QuestionID: 3, Points: 50}}, wantTotal: 5},
		{name: "negative grade is clamped", grades: []model.ManualGrade{{QuestionID: 3, Points: -2}}, wantTotal: 0},
		{
			name: "latest of duplicate grades wins",
			grades: []model.ManualGrade{
				{QuestionID: 3, Points: 1, GradedAt: base.Add(time.Minute)},
				{QuestionID: 3, Points: 3, GradedAt: base},
			},
			wantTotal: 1,
		},
		{name: "grade for unknown question is ignored", grades: []model.ManualGrade{{QuestionID: 99, Points: 5}}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeScore(scenarioQuestions(), nil, tt.grades)
			if b.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", b.Total, tt.wantTotal)
			}
			if b.Total > b.MaxPoints || b.Total < 0 {
				t.Errorf("Total %d outside [0, %d]", b.Total, b.MaxPoints)
			}
		})
	}
}

func TestZeroPending(t *testing.T) {
	b := ComputeScore(scenarioQuestions(), model.Answers{"1": "A"}, nil)
	z := ZeroPending(b)
	if len(z.PendingManual) != 0 || !z.Complete() {
		t.Fatalf("pending after zeroing = %v", z.PendingManual)
	}
	if z.Questions[2].State != StateZeroed || z.Total != 2 {
		t.Errorf("zeroed breakdown = %+v", z)
	}
	if b.Questions[2].State != StatePending {
		t.Error("ZeroPending modified its input")
	}
}

func TestAttemptBreakdownAfterForceFinalize(t *testing.T) {
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), model.Answers{"1": "A"})
	attempt := h.attempts.get(t, id)

	if b := AttemptBreakdown(&attempt, nil); b.Complete() {
		t.Fatal("breakdown of an ungraded essay attempt should be incomplete")
	}
	attempt.ForceFinalized = true
	b := AttemptBreakdown(&attempt, nil)
	if !b.Complete() || b.Questions[2].State != StateZeroed {
		t.Errorf("force finalized breakdown = %+v", b)
	}
}

func TestAttemptBreakdownIgnoresGradesAfterFinalize(t *testing.T) {
	finalizedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	attempt := model.Attempt{
		AnswerKey:      datatypes.NewJSONType(scenarioQuestions()),
		Answers:        datatypes.NewJSONType(model.Answers{"1": "A", "2": "True", "3": "essay"}),
		ForceFinalized: true,
		GradedAt:       &finalizedAt,
	}
	late := []model.ManualGrade{{QuestionID: 3, Points: 4, GradedAt: finalizedAt.Add(time.Second)}}

	b := AttemptBreakdown(&attempt, late)
	if b.Total != 5 || b.Questions[2].State != StateZeroed {
		t.Errorf("breakdown with late grade = total %d, q3 %s", b.Total, b.Questions[2].State)
	}

	onTime := []model.ManualGrade{{QuestionID: 3, Points: 4, GradedAt: finalizedAt}}
	if b := AttemptBreakdown(&attempt, onTime); b.Total != 9 || b.Questions[2].State != StateGraded {
		t.Errorf("breakdown with grade at finalize = total %d, q3 %s", b.Total, b.Questions[2].State)
	}
}

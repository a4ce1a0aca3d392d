package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/quizengine/internal/model"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to model.AttemptStatus
		ok       bool
	}{
		{model.AttemptInProgress, model.AttemptCompleted, true},
		{model.AttemptCompleted, model.AttemptGraded, true},
		{model.AttemptInProgress, model.AttemptGraded, false},
		{model.AttemptCompleted, model.AttemptInProgress, false},
		{model.AttemptGraded, model.AttemptCompleted, false},
		{model.AttemptGraded, model.AttemptInProgress, false},
		{model.AttemptCompleted, model.AttemptCompleted, false},
		{"", model.AttemptCompleted, false},
		{model.AttemptCompleted, "archived", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("error = %v, want ErrIllegalTransition", err)
			}
		})
	}
}

func TestStateMachineSubmitThenGrade(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), model.Answers{"1": "A", "2": "False"})

	res, err := h.machine.Submit(ctx, id, nil, model.SubmitManual)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !res.Transitioned || res.Graded || res.Attempt.Status != model.AttemptCompleted {
		t.Fatalf("submit result = %+v", res)
	}
	if res.Attempt.Score == nil || *res.Attempt.Score != 2 {
		t.Fatalf("score after submit = %v, want 2", res.Attempt.Score)
	}
	if res.Attempt.CompletedAt == nil || res.Attempt.SubmitSource == nil || *res.Attempt.SubmitSource != model.SubmitManual {
		t.Fatalf("completion fields not set: %+v", res.Attempt)
	}
	completedAt := *res.Attempt.CompletedAt

	again, err := h.machine.Submit(ctx, id, model.Answers{"1": "C"}, model.SubmitExpiry)
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}
	if again.Transitioned || !again.Attempt.CompletedAt.Equal(completedAt) || *again.Attempt.SubmitSource != model.SubmitManual {
		t.Errorf("second submit changed the attempt: %+v", again.Attempt)
	}
	if got := h.attempts.get(t, id).CurrentAnswers()["1"]; got != "A" {
		t.Errorf("answers changed after completion: %q", got)
	}

	if _, err := h.ledger.Upsert(ctx, GradeInput{AttemptID: id, QuestionID: 3, Points: 4, GraderID: "inst-1"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	graded, err := h.machine.RecordGradeApplied(ctx, id)
	if err != nil {
		t.Fatalf("RecordGradeApplied() error = %v", err)
	}
	if !graded.Graded || graded.Attempt.Status != model.AttemptGraded || *graded.Attempt.Score != 6 || graded.Attempt.GradedAt == nil {
		t.Fatalf("graded result = %+v", graded.Attempt)
	}

	for _, to := range []model.AttemptStatus{model.AttemptCompleted, model.AttemptInProgress} {
		if _, err := h.machine.Transition(ctx, id, to); to == model.AttemptInProgress && !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("graded -> %s error = %v", to, err)
		}
	}
	if st := h.attempts.get(t, id); st.Status != model.AttemptGraded || *st.Score != 6 {
		t.Errorf("attempt moved after graded: %s %d", st.Status, *st.Score)
	}
}

func TestStateMachineGradeKeepsCompletedWhilePending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	questions := append(scenarioQuestions(), model.QuestionSnapshot{ID: 4, Type: model.QuestionShortAnswer, Points: 2, OrderIndex: 4})
	id := h.seedAttempt(t, 1, "student-1", questions, model.Answers{"1": "A", "2": "True"})
	if _, err := h.machine.Submit(ctx, id, nil, model.SubmitManual); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ledger.Upsert(ctx, GradeInput{AttemptID: id, QuestionID: 4, Points: 2, GraderID: "inst-1"}); err != nil {
		t.Fatal(err)
	}
	res, err := h.machine.RecordGradeApplied(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Graded || res.Attempt.Status != model.AttemptCompleted || *res.Attempt.Score != 7 {
		t.Fatalf("partial grading result = %s score %d", res.Attempt.Status, *res.Attempt.Score)
	}
	if _, err := h.machine.Transition(ctx, id, model.AttemptGraded); !errors.Is(err, ErrGradingIncomplete) {
		t.Errorf("Transition(graded) error = %v, want ErrGradingIncomplete", err)
	}
}

func TestStateMachineGradeApplyBumpsVersion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), model.Answers{"1": "A"})
	if _, err := h.machine.Submit(ctx, id, nil, model.SubmitManual); err != nil {
		t.Fatal(err)
	}
	before := h.attempts.get(t, id)

	res, err := h.machine.RecordGradeApplied(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	after := h.attempts.get(t, id)
	if after.Version != before.Version+1 || res.Attempt.Version != after.Version {
		t.Errorf("version %d -> %d, result %d", before.Version, after.Version, res.Attempt.Version)
	}
	if after.Status != model.AttemptCompleted || *after.Score != *before.Score {
		t.Errorf("attempt = %s score %d", after.Status, *after.Score)
	}
}

func TestStateMachineForceFinalize(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), model.Answers{"1": "A", "2": "False", "3": "my essay"})

	if _, err := h.machine.ForceFinalize(ctx, id, "inst-1"); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("finalize of in-progress attempt error = %v", err)
	}
	if _, err := h.machine.Submit(ctx, id, nil, model.SubmitManual); err != nil {
		t.Fatal(err)
	}
	res, err := h.machine.ForceFinalize(ctx, id, "inst-1")
	if err != nil {
		t.Fatalf("ForceFinalize() error = %v", err)
	}
	a := res.Attempt
	if a.Status != model.AttemptGraded || *a.Score != 2 || !a.ForceFinalized || a.FinalizedBy == nil || *a.FinalizedBy != "inst-1" {
		t.Fatalf("finalized attempt = %+v", a)
	}
	if res.Breakdown.Questions[2].State != StateZeroed {
		t.Errorf("essay state = %s, want zeroed", res.Breakdown.Questions[2].State)
	}

	if _, err := h.ledger.Upsert(ctx, GradeInput{AttemptID: id, QuestionID: 3, Points: 5, GraderID: "inst-2"}); !errors.Is(err, ErrAttemptFinalized) {
		t.Errorf("grade after finalize error = %v, want ErrAttemptFinalized", err)
	}
	again, err := h.machine.ForceFinalize(ctx, id, "inst-2")
	if err != nil || again.Transitioned || *again.Attempt.FinalizedBy != "inst-1" {
		t.Errorf("second finalize = %+v, %v", again, err)
	}
}

func TestStateMachineForceFinalizeWithNothingPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), model.Answers{"1": "A", "2": "True"})
	if _, err := h.machine.Submit(ctx, id, nil, model.SubmitManual); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ledger.Upsert(ctx, GradeInput{AttemptID: id, QuestionID: 3, Points: 1, GraderID: "inst-1"}); err != nil {
		t.Fatal(err)
	}
	// The grade has not been applied yet, so the attempt is still completed.
	res, err := h.machine.ForceFinalize(ctx, id, "inst-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempt.ForceFinalized || *res.Attempt.Score != 6 {
		t.Errorf("finalize with all grades in = force %v score %d", res.Attempt.ForceFinalized, *res.Attempt.Score)
	}
}

func TestStateMachineObjectiveOnlyGradesOnSubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", objectiveQuestions(), model.Answers{"1": "a"})

	res, err := h.machine.Submit(ctx, id, model.Answers{"2": "TRUE"}, model.SubmitExpiry)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Transitioned || !res.Graded || res.Attempt.Status != model.AttemptGraded || *res.Attempt.Score != 5 {
		t.Fatalf("objective-only submit = %+v", res.Attempt)
	}
	if res.From != model.AttemptInProgress {
		t.Errorf("From = %s", res.From)
	}
}

func TestStateMachineObjectiveOnlyPromotedOnNextPass(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", objectiveQuestions(), model.Answers{"1": "A"})
	h.attempts.update(id, func(a *model.Attempt) {
		a.Status = model.AttemptCompleted
		score := 2
		a.Score = &score
	})

	res, err := h.machine.Submit(ctx, id, nil, model.SubmitManual)
	if err != nil {
		t.Fatal(err)
	}
	if res.Transitioned || !res.Graded || res.Attempt.Status != model.AttemptGraded {
		t.Errorf("noop submit should finish grading: %+v", res)
	}
}

func TestStateMachineRecordGradeBeforeSubmit(t *testing.T) {
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), nil)
	if _, err := h.machine.RecordGradeApplied(context.Background(), id); !errors.Is(err, ErrAttemptNotSubmitted) {
		t.Errorf("error = %v, want ErrAttemptNotSubmitted", err)
	}
	if _, err := h.machine.Transition(context.Background(), id, model.AttemptGraded); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Transition(graded) error = %v, want ErrIllegalTransition", err)
	}
}

func TestStateMachineSubmitSurfacesWriteFailure(t *testing.T) {
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), nil)
	h.attempts.casFailures = 1

	_, err := h.machine.Submit(context.Background(), id, nil, model.SubmitManual)
	if !errors.Is(err, errTransient) {
		t.Fatalf("error = %v, want the write failure", err)
	}
	if st := h.attempts.get(t, id); st.Status != model.AttemptInProgress || st.CompletedAt != nil {
		t.Errorf("failed submit left attempt %s", st.Status)
	}
}

func TestStateMachineUnknownAttempt(t *testing.T) {
	h := newHarness(t)
	if _, err := h.machine.Submit(context.Background(), "missing", nil, model.SubmitManual); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("error = %v, want ErrAttemptNotFound", err)
	}
}

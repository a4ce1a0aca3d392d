package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lshigami/quizengine/internal/model"
)

func TestManualGradeLedgerUpsertValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	open := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), nil)
	done := h.seedAttempt(t, 1, "student-2", scenarioQuestions(), nil)
	h.attempts.update(done, func(a *model.Attempt) { a.Status = model.AttemptCompleted })
	graded := h.seedAttempt(t, 1, "student-3", scenarioQuestions(), nil)
	h.attempts.update(graded, func(a *model.Attempt) { a.Status = model.AttemptGraded })

	tests := []struct {
		name    string
		in      GradeInput
		wantErr error
	}{
		{"missing grader", GradeInput{AttemptID: done, QuestionID: 3, Points: 1}, ErrValidation},
		{"unknown attempt", GradeInput{AttemptID: "nope", QuestionID: 3, Points: 1, GraderID: "inst"}, ErrAttemptNotFound},
		{"attempt still open", GradeInput{AttemptID: open, QuestionID: 3, Points: 1, GraderID: "inst"}, ErrAttemptNotSubmitted},
		{"attempt already graded", GradeInput{AttemptID: graded, QuestionID: 3, Points: 1, GraderID: "inst"}, ErrAttemptFinalized},
		{"question not in attempt", GradeInput{AttemptID: done, QuestionID: 42, Points: 1, GraderID: "inst"}, ErrInvalidGrade},
		{"objective question", GradeInput{AttemptID: done, QuestionID: 1, Points: 1, GraderID: "inst"}, ErrInvalidGrade},
		{"above max", GradeInput{AttemptID: done, QuestionID: 3, Points: 6, GraderID: "inst"}, ErrInvalidGrade},
		{"negative", GradeInput{AttemptID: done, QuestionID: 3, Points: -1, GraderID: "inst"}, ErrInvalidGrade},
		{"zero is allowed", GradeInput{AttemptID: done, QuestionID: 3, Points: 0, GraderID: "inst"}, nil},
		{"max is allowed", GradeInput{AttemptID: done, QuestionID: 3, Points: 5, GraderID: "inst"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ledger.Upsert(ctx, tt.in)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestManualGradeLedgerLatestWriteWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.seedAttempt(t, 1, "student-1", scenarioQuestions(), nil)
	h.attempts.update(id, func(a *model.Attempt) { a.Status = model.AttemptCompleted })

	complete, err := h.ledger.IsComplete(ctx, id, []uint{3})
	if err != nil || complete {
		t.Fatalf("IsComplete() before grading = %v, %v", complete, err)
	}
	for _, pts := range []int{2, 5, 3} {
		if _, err := h.ledger.Upsert(ctx, GradeInput{AttemptID: id, QuestionID: 3, Points: pts, GraderID: "inst-1", Feedback: "see notes"}); err != nil {
			t.Fatal(err)
		}
	}
	grades, err := h.ledger.ListByAttempt(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(grades) != 1 || grades[0].Points != 3 {
		t.Fatalf("grades = %+v", grades)
	}
	if complete, _ := h.ledger.IsComplete(ctx, id, []uint{3}); !complete {
		t.Error("IsComplete() = false after grading")
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
)

type GradeInput struct {
	AttemptID  string
	QuestionID uint
	Points     int
	Feedback   string
	GraderID   string
}

type ManualGradeLedger interface {
	Upsert(ctx context.Context, in GradeInput) (*model.ManualGrade, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]model.ManualGrade, error)
	IsComplete(ctx context.Context, attemptID string, manualQuestionIDs []uint) (bool, error)
}

type manualGradeLedger struct {
	attemptRepo repository.AttemptRepository
	gradeRepo   repository.ManualGradeRepository
	policy      RetryPolicy
	now         func() time.Time
}

func NewManualGradeLedger(attemptRepo repository.AttemptRepository, gradeRepo repository.ManualGradeRepository, policies RetryPolicies) ManualGradeLedger {
	return &manualGradeLedger{
		attemptRepo: attemptRepo,
		gradeRepo:   gradeRepo,
		policy:      policies.Autosave,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Upsert validates a grade against the attempt's pinned question and stores it.
// Grades are only accepted while the attempt is completed.
func (l *manualGradeLedger) Upsert(ctx context.Context, in GradeInput) (*model.ManualGrade, error) {
	if strings.TrimSpace(in.GraderID) == "" {
		return nil, fmt.Errorf("%w: grader id is required", ErrValidation)
	}
	attempt, err := loadAttempt(ctx, l.attemptRepo, in.AttemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case model.AttemptInProgress:
		return nil, ErrAttemptNotSubmitted
	case model.AttemptGraded:
		return nil, ErrAttemptFinalized
	}

	q, ok := attempt.Question(in.QuestionID)
	if !ok {
		return nil, fmt.Errorf("%w: question %d does not belong to quiz %d", ErrInvalidGrade, in.QuestionID, attempt.QuizID)
	}
	if !q.Type.Manual() {
		return nil, fmt.Errorf("%w: question %d is %s and is graded automatically", ErrInvalidGrade, q.ID, q.Type)
	}
	if in.Points < 0 || in.Points > q.Points {
		return nil, fmt.Errorf("%w: points must be between 0 and %d, got %d", ErrInvalidGrade, q.Points, in.Points)
	}

	grade := &model.ManualGrade{
		AttemptID:  in.AttemptID,
		QuestionID: in.QuestionID,
		Points:     in.Points,
		Feedback:   in.Feedback,
		GraderID:   in.GraderID,
		GradedAt:   l.now(),
	}
	err = l.policy.Do(ctx, "grade_upsert", func(ctx context.Context) error {
		return l.gradeRepo.Upsert(ctx, grade)
	})
	if err != nil {
		return nil, err
	}
	metrics.Grading.WithLabelValues("recorded").Inc()
	return grade, nil
}

func (l *manualGradeLedger) ListByAttempt(ctx context.Context, attemptID string) ([]model.ManualGrade, error) {
	grades, err := l.gradeRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list grades for attempt %s: %w", attemptID, err)
	}
	return grades, nil
}

func (l *manualGradeLedger) IsComplete(ctx context.Context, attemptID string, manualQuestionIDs []uint) (bool, error) {
	grades, err := l.ListByAttempt(ctx, attemptID)
	if err != nil {
		return false, err
	}
	return gradesCover(grades, manualQuestionIDs), nil
}

func gradesCover(grades []model.ManualGrade, ids []uint) bool {
	have := make(map[uint]struct{}, len(grades))
	for _, g := range grades {
		have[g.QuestionID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

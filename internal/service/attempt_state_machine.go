package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/rs/zerolog/log"
)

// CheckTransition allows only in_progress -> completed and completed -> graded.
func CheckTransition(from, to model.AttemptStatus) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("%w: unknown status %q -> %q", ErrIllegalTransition, from, to)
	}
	switch {
	case from == model.AttemptInProgress && to == model.AttemptCompleted,
		from == model.AttemptCompleted && to == model.AttemptGraded:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

type TransitionResult struct {
	Attempt      *model.Attempt
	Breakdown    ScoreBreakdown
	From         model.AttemptStatus
	Transitioned bool // this pass changed the status
	Graded       bool // this pass reached graded
}

// AttemptStateMachine is the only writer of attempt status and score. Every
// method makes one read-decide-write pass ending in a single conditional
// update. A lost race surfaces as repository.ErrStatusConflict and the caller
// retries the whole pass from the persisted state.
type AttemptStateMachine interface {
	// Submit moves in_progress -> completed. It is a successful no-op when
	// the attempt has already moved on.
	Submit(ctx context.Context, attemptID string, final model.Answers, source model.SubmitSource) (*TransitionResult, error)
	// RecordGradeApplied recomputes the score after a manual grade and moves
	// completed -> graded once every manual question is graded. Each call
	// bumps the version, even when the score is unchanged.
	RecordGradeApplied(ctx context.Context, attemptID string) (*TransitionResult, error)
	// ForceFinalize moves completed -> graded scoring ungraded manual questions as 0.
	ForceFinalize(ctx context.Context, attemptID, instructorID string) (*TransitionResult, error)
	Transition(ctx context.Context, attemptID string, to model.AttemptStatus) (*TransitionResult, error)
}

type attemptStateMachine struct {
	attemptRepo repository.AttemptRepository
	gradeRepo   repository.ManualGradeRepository
	now         func() time.Time
}

func NewAttemptStateMachine(attemptRepo repository.AttemptRepository, gradeRepo repository.ManualGradeRepository) AttemptStateMachine {
	return &attemptStateMachine{
		attemptRepo: attemptRepo,
		gradeRepo:   gradeRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *attemptStateMachine) current(ctx context.Context, attempt *model.Attempt) (*TransitionResult, error) {
	grades, err := m.gradeRepo.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return &TransitionResult{Attempt: attempt, Breakdown: AttemptBreakdown(attempt, grades), From: attempt.Status}, nil
}

func (m *attemptStateMachine) Submit(ctx context.Context, attemptID string, final model.Answers, source model.SubmitSource) (*TransitionResult, error) {
	attempt, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.AtLeast(model.AttemptCompleted) {
		if attempt.Status == model.AttemptCompleted && len(attempt.ManualQuestionIDs()) == 0 {
			// A previous pass completed an all-objective attempt but did not get to grade it.
			res, err := m.RecordGradeApplied(ctx, attemptID)
			if err != nil {
				return nil, err
			}
			res.Transitioned = false
			return res, nil
		}
		return m.current(ctx, attempt)
	}
	if err := CheckTransition(attempt.Status, model.AttemptCompleted); err != nil {
		return nil, err
	}

	answers := MergeAnswers(attempt.CurrentAnswers(), final)
	breakdown := ComputeScore(attempt.Questions(), answers, nil)
	now := m.now()
	status := model.AttemptCompleted
	score := breakdown.AutoPoints
	patch := repository.AttemptPatch{
		Status:       &status,
		Answers:      answers,
		Score:        &score,
		CompletedAt:  &now,
		SubmitSource: &source,
	}
	if err := m.attemptRepo.CompareAndSwap(ctx, attemptID, model.AttemptInProgress, attempt.Version, patch); err != nil {
		return nil, fmt.Errorf("submit attempt %s: %w", attemptID, err)
	}
	log.Info().Str("attemptID", attemptID).Str("source", string(source)).Int("autoPoints", score).Msg("Attempt completed")

	if len(attempt.ManualQuestionIDs()) == 0 {
		res, err := m.RecordGradeApplied(ctx, attemptID)
		if err != nil {
			// The submit itself is durable; grading is retried by the next pass.
			log.Warn().Err(err).Str("attemptID", attemptID).Msg("Auto-grading of objective-only attempt deferred")
		} else {
			res.From = model.AttemptInProgress
			res.Transitioned = true
			res.Graded = true
			return res, nil
		}
	}

	stored, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Attempt: stored, Breakdown: breakdown, From: model.AttemptInProgress, Transitioned: true}, nil
}

func (m *attemptStateMachine) RecordGradeApplied(ctx context.Context, attemptID string) (*TransitionResult, error) {
	attempt, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case model.AttemptInProgress:
		return nil, ErrAttemptNotSubmitted
	case model.AttemptGraded:
		return m.current(ctx, attempt)
	}

	grades, err := m.gradeRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	breakdown := AttemptBreakdown(attempt, grades)
	score := breakdown.Total
	patch := repository.AttemptPatch{Score: &score}
	graded := breakdown.Complete() && gradesCover(grades, attempt.ManualQuestionIDs())
	if graded {
		if err := CheckTransition(attempt.Status, model.AttemptGraded); err != nil {
			return nil, err
		}
		status := model.AttemptGraded
		now := m.now()
		patch.Status = &status
		patch.GradedAt = &now
	}

	if err := m.attemptRepo.CompareAndSwap(ctx, attemptID, model.AttemptCompleted, attempt.Version, patch); err != nil {
		return nil, fmt.Errorf("apply grade to attempt %s: %w", attemptID, err)
	}
	stored, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if graded {
		log.Info().Str("attemptID", attemptID).Int("score", score).Msg("Attempt graded")
	}
	return &TransitionResult{Attempt: stored, Breakdown: breakdown, From: model.AttemptCompleted, Transitioned: graded, Graded: graded}, nil
}

func (m *attemptStateMachine) ForceFinalize(ctx context.Context, attemptID, instructorID string) (*TransitionResult, error) {
	attempt, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptGraded {
		return m.current(ctx, attempt)
	}
	if err := CheckTransition(attempt.Status, model.AttemptGraded); err != nil {
		return nil, err
	}

	grades, err := m.gradeRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	computed := ComputeScore(attempt.Questions(), attempt.CurrentAnswers(), grades)
	zeroed := computed.PendingManual
	breakdown := ZeroPending(computed)

	status := model.AttemptGraded
	score := breakdown.Total
	now := m.now()
	forced := len(zeroed) > 0
	patch := repository.AttemptPatch{
		Status:         &status,
		Score:          &score,
		GradedAt:       &now,
		ForceFinalized: &forced,
		FinalizedBy:    &instructorID,
	}
	if err := m.attemptRepo.CompareAndSwap(ctx, attemptID, model.AttemptCompleted, attempt.Version, patch); err != nil {
		return nil, fmt.Errorf("finalize attempt %s: %w", attemptID, err)
	}
	log.Warn().Str("attemptID", attemptID).Str("instructorID", instructorID).
		Interface("zeroedQuestions", zeroed).Int("score", score).
		Msg("Attempt finalized early")

	stored, err := loadAttempt(ctx, m.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Attempt: stored, Breakdown: breakdown, From: model.AttemptCompleted, Transitioned: true, Graded: true}, nil
}

// Transition is the generic entry point. Moving to graded through it is
// gated on grading completeness; use ForceFinalize to skip the gate.
func (m *attemptStateMachine) Transition(ctx context.Context, attemptID string, to model.AttemptStatus) (*TransitionResult, error) {
	switch to {
	case model.AttemptCompleted:
		return m.Submit(ctx, attemptID, nil, model.SubmitManual)
	case model.AttemptGraded:
		res, err := m.RecordGradeApplied(ctx, attemptID)
		if errors.Is(err, ErrAttemptNotSubmitted) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, model.AttemptInProgress, to)
		}
		if err != nil {
			return nil, err
		}
		if res.Attempt.Status != model.AttemptGraded {
			return res, fmt.Errorf("%w: %d question(s) pending", ErrGradingIncomplete, len(res.Breakdown.PendingManual))
		}
		return res, nil
	default:
		attempt, err := loadAttempt(ctx, m.attemptRepo, attemptID)
		if err != nil {
			return nil, err
		}
		return nil, CheckTransition(attempt.Status, to)
	}
}

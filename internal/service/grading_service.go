package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lshigami/quizengine/internal/cache"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/rs/zerolog/log"
)

const degradedGradeWarning = "The grade was saved but the attempt score could not be refreshed; it will update with the next grade or on reload."

type GradingService interface {
	RecordGrade(ctx context.Context, attemptID string, actor Actor, req dto.RecordGradeRequest) (*dto.AttemptStateDTO, error)
	FinalizeEarly(ctx context.Context, attemptID string, actor Actor, req dto.FinalizeAttemptRequest) (*dto.AttemptStateDTO, error)
	ListGrades(ctx context.Context, attemptID string, actor Actor) ([]dto.ManualGradeDTO, error)
	SuggestGrade(ctx context.Context, attemptID string, questionID uint, actor Actor) (*dto.GradeSuggestionDTO, error)
}

type gradingService struct {
	attemptRepo repository.AttemptRepository
	ledger      ManualGradeLedger
	machine     AttemptStateMachine
	assistant   GradingAssistant
	policies    RetryPolicies
	notifier    Notifier
	tracker     ActivityTracker
	scoreCache  cache.ScoreCache
	now         func() time.Time
}

func NewGradingService(
	attemptRepo repository.AttemptRepository,
	ledger ManualGradeLedger,
	machine AttemptStateMachine,
	assistant GradingAssistant,
	policies RetryPolicies,
	notifier Notifier,
	tracker ActivityTracker,
	scoreCache cache.ScoreCache,
) GradingService {
	return &gradingService{
		attemptRepo: attemptRepo,
		ledger:      ledger,
		machine:     machine,
		assistant:   assistant,
		policies:    policies,
		notifier:    notifier,
		tracker:     tracker,
		scoreCache:  scoreCache,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordGrade upserts one manual grade and lets the state machine recompute
// the score, promoting the attempt to graded once nothing is pending.
func (s *gradingService) RecordGrade(ctx context.Context, attemptID string, actor Actor, req dto.RecordGradeRequest) (*dto.AttemptStateDTO, error) {
	if !actor.IsInstructor() {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Upsert(ctx, GradeInput{
		AttemptID:  attemptID,
		QuestionID: req.QuestionID,
		Points:     *req.Points,
		Feedback:   req.Feedback,
		GraderID:   actor.ID,
	}); err != nil {
		return nil, err
	}
	s.tracker.Track(actor.ID, "attempt.grade", map[string]string{"attemptID": attemptID})

	res, err := s.applyTransition(ctx, "grade_apply", func(ctx context.Context) (*TransitionResult, error) {
		return s.machine.RecordGradeApplied(ctx, attemptID)
	})
	if errors.Is(err, ErrDegraded) {
		return s.degradedState(ctx, attemptID, degradedGradeWarning)
	}
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, res)
	return toAttemptState(res.Attempt, &res.Breakdown, s.now()), nil
}

// FinalizeEarly grades the attempt now. Ungraded manual questions score 0,
// which must be confirmed explicitly.
func (s *gradingService) FinalizeEarly(ctx context.Context, attemptID string, actor Actor, req dto.FinalizeAttemptRequest) (*dto.AttemptStateDTO, error) {
	if !actor.IsInstructor() {
		return nil, ErrForbidden
	}
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptCompleted && !req.Confirm {
		grades, err := s.ledger.ListByAttempt(ctx, attemptID)
		if err != nil {
			return nil, err
		}
		if pending := AttemptBreakdown(attempt, grades).PendingManual; len(pending) > 0 {
			return nil, &PendingGradesError{QuestionIDs: pending}
		}
	}

	res, err := s.applyTransition(ctx, "force_finalize", func(ctx context.Context) (*TransitionResult, error) {
		return s.machine.ForceFinalize(ctx, attemptID, actor.ID)
	})
	if err != nil {
		return nil, err
	}
	if res.Transitioned && res.Attempt.ForceFinalized {
		metrics.Grading.WithLabelValues("force_finalized").Inc()
	}
	s.tracker.Track(actor.ID, "attempt.finalize", map[string]string{"attemptID": attemptID})
	s.afterTransition(ctx, res)
	return toAttemptState(res.Attempt, &res.Breakdown, s.now()), nil
}

func (s *gradingService) applyTransition(ctx context.Context, op string, fn func(ctx context.Context) (*TransitionResult, error)) (*TransitionResult, error) {
	var res *TransitionResult
	err := s.policies.Submit.Do(ctx, op, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

func (s *gradingService) afterTransition(ctx context.Context, res *TransitionResult) {
	if res.Graded {
		metrics.Grading.WithLabelValues("graded").Inc()
		s.notifier.AttemptGraded(*res.Attempt)
	}
	if err := s.scoreCache.Invalidate(ctx, res.Attempt.ID); err != nil {
		log.Warn().Err(err).Str("attemptID", res.Attempt.ID).Msg("Score cache invalidation failed")
	}
}

func (s *gradingService) degradedState(ctx context.Context, attemptID, warning string) (*dto.AttemptStateDTO, error) {
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	state := toAttemptState(attempt, nil, s.now())
	state.Warning = warning
	state.Degraded = true
	return state, nil
}

func (s *gradingService) ListGrades(ctx context.Context, attemptID string, actor Actor) ([]dto.ManualGradeDTO, error) {
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if !canRead(attempt, actor) {
		return nil, ErrForbidden
	}
	grades, err := s.ledger.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return toGradeDTOs(grades), nil
}

func (s *gradingService) SuggestGrade(ctx context.Context, attemptID string, questionID uint, actor Actor) (*dto.GradeSuggestionDTO, error) {
	if !actor.IsInstructor() {
		return nil, ErrForbidden
	}
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	q, ok := attempt.Question(questionID)
	if !ok || !q.Type.Manual() {
		return nil, &ValidationError{Details: []string{"suggestions are only available for short_answer and essay questions of this attempt"}}
	}
	out := &dto.GradeSuggestionDTO{AttemptID: attemptID, QuestionID: questionID, MaxPoints: q.Points, Advisory: true}

	answer := attempt.CurrentAnswers()[model.QuestionKey(questionID)]
	if strings.TrimSpace(answer) == "" {
		out.Feedback = "No answer was submitted for this question."
		return out, nil
	}
	suggestion, err := s.assistant.SuggestGrade(ctx, q, answer)
	if err != nil {
		return nil, err
	}
	out.Points = suggestion.Points
	out.Feedback = suggestion.Feedback
	return out, nil
}

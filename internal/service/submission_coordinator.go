package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lshigami/quizengine/internal/cache"
	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/lshigami/quizengine/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

type SubmitCommand struct {
	AttemptID string
	ActorID   string
	// Sources are every answer set the caller still holds (live state,
	// unflushed autosave, last-chance capture), in any order.
	Sources []model.Answers
	Source  model.SubmitSource
	// System submits skip the ownership check (expiry sweeper).
	System bool
}

const (
	closedQuizWarning  = "quiz is closed; answers not saved before closing were discarded"
	lateAnswersWarning = "time ran out; answers sent after the deadline were not saved"
)

type SubmitOutcome struct {
	Attempt      *model.Attempt
	Breakdown    ScoreBreakdown
	Transitioned bool
	Warning      string
}

// SubmissionCoordinator runs the end-to-end submit flow. It is safe to call
// concurrently for the same attempt: one caller completes it and the rest
// observe the completed state and succeed.
type SubmissionCoordinator interface {
	Submit(ctx context.Context, cmd SubmitCommand) (*SubmitOutcome, error)
}

type submissionCoordinator struct {
	attemptRepo repository.AttemptRepository
	quizRepo    repository.QuizRepository
	answers     AnswerStore
	machine     AttemptStateMachine
	policies    RetryPolicies
	expiry      ExpiryPolicy
	notifier    Notifier
	tracker     ActivityTracker
	scoreCache  cache.ScoreCache
	now         func() time.Time
}

func NewSubmissionCoordinator(
	attemptRepo repository.AttemptRepository,
	quizRepo repository.QuizRepository,
	answers AnswerStore,
	machine AttemptStateMachine,
	policies RetryPolicies,
	expiry ExpiryPolicy,
	notifier Notifier,
	tracker ActivityTracker,
	scoreCache cache.ScoreCache,
) SubmissionCoordinator {
	return &submissionCoordinator{
		attemptRepo: attemptRepo,
		quizRepo:    quizRepo,
		answers:     answers,
		machine:     machine,
		policies:    policies,
		expiry:      expiry,
		notifier:    notifier,
		tracker:     tracker,
		scoreCache:  scoreCache,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (c *submissionCoordinator) Submit(ctx context.Context, cmd SubmitCommand) (*SubmitOutcome, error) {
	ctx, span := tracing.Tracer.Start(ctx, "SubmissionCoordinator.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("attempt.id", cmd.AttemptID), attribute.String("submit.source", string(cmd.Source)))

	if cmd.Source == "" {
		cmd.Source = model.SubmitManual
	}
	var merged model.Answers
	for _, src := range cmd.Sources {
		merged = MergeAnswers(merged, src)
	}

	attempt, err := loadAttempt(ctx, c.attemptRepo, cmd.AttemptID)
	if err != nil {
		return nil, err
	}
	if !cmd.System && attempt.StudentID != cmd.ActorID {
		return nil, ErrForbidden
	}

	outcome := &SubmitOutcome{}
	if attempt.Status == model.AttemptInProgress && len(merged) > 0 {
		merged = knownAnswers(attempt, merged)
		quiz, err := c.quizRepo.FindByID(ctx, attempt.QuizID)
		switch {
		case !c.expiry.AcceptsAnswers(attempt.StartedAt, attempt.TimeLimitMinutes, c.now()):
			log.Info().Str("attemptID", cmd.AttemptID).Int("answerCount", len(merged)).Msg("Dropping answers sent after the deadline")
			merged = nil
			outcome.Warning = lateAnswersWarning
		case err == nil && quiz.Status == model.QuizStatusClosed:
			merged = nil
			outcome.Warning = closedQuizWarning
		}
		if len(merged) > 0 {
			if _, err := c.answers.Write(ctx, cmd.AttemptID, merged, c.policies.Submit); err != nil && !errors.Is(err, ErrAttemptNotInProgress) {
				// The state machine merges the same set again, so this is not fatal.
				log.Warn().Err(err).Str("attemptID", cmd.AttemptID).Msg("Pre-submit answer write failed")
			}
		}
	}

	var res *TransitionResult
	err = c.policies.Submit.Do(ctx, "submit", func(ctx context.Context) error {
		r, err := c.machine.Submit(ctx, cmd.AttemptID, merged, cmd.Source)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		metrics.Submissions.WithLabelValues(string(cmd.Source), "failed").Inc()
		span.RecordError(err)
		if errors.Is(err, ErrDegraded) {
			log.Error().Err(err).Str("attemptID", cmd.AttemptID).Str("source", string(cmd.Source)).Msg("Submission could not be persisted")
			return nil, fmt.Errorf("%w: %v", ErrSubmissionNotPersisted, err)
		}
		return nil, err
	}

	outcome.Attempt = res.Attempt
	outcome.Breakdown = res.Breakdown
	outcome.Transitioned = res.Transitioned
	if !res.Transitioned {
		metrics.Submissions.WithLabelValues(string(cmd.Source), "noop").Inc()
		if res.Graded {
			c.afterGraded(ctx, res.Attempt)
		}
		return outcome, nil
	}

	metrics.Submissions.WithLabelValues(string(cmd.Source), "transitioned").Inc()
	c.notifier.AttemptCompleted(*res.Attempt)
	c.tracker.Track(cmd.ActorID, "attempt.submit", map[string]string{
		"attemptID": cmd.AttemptID,
		"source":    string(cmd.Source),
	})
	if res.Graded {
		c.afterGraded(ctx, res.Attempt)
	}
	if err := c.scoreCache.Invalidate(ctx, cmd.AttemptID); err != nil {
		log.Warn().Err(err).Str("attemptID", cmd.AttemptID).Msg("Score cache invalidation failed")
	}
	return outcome, nil
}

func (c *submissionCoordinator) afterGraded(ctx context.Context, attempt *model.Attempt) {
	metrics.Grading.WithLabelValues("graded").Inc()
	c.notifier.AttemptGraded(*attempt)
	if err := c.scoreCache.Invalidate(ctx, attempt.ID); err != nil {
		log.Warn().Err(err).Str("attemptID", attempt.ID).Msg("Score cache invalidation failed")
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/rs/zerolog/log"
)

var errAnswersLost = errors.New("read-back has fewer answers than were written")

// MergeAnswers overlays incoming onto existing. A blank incoming value never
// erases an answer that already exists. Neither input is modified.
func MergeAnswers(existing, incoming model.Answers) model.Answers {
	merged := existing.Clone()
	for k, v := range incoming {
		if strings.TrimSpace(v) == "" {
			continue
		}
		merged[k] = v
	}
	return merged
}

func answersEqual(a, b model.Answers) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

type AnswerStore interface {
	// Write merges incoming into the attempt's answers while it is in progress
	// and verifies the result by reading it back.
	Write(ctx context.Context, attemptID string, incoming model.Answers, policy RetryPolicy) (*model.Attempt, error)
}

type answerStore struct {
	attemptRepo repository.AttemptRepository
}

func NewAnswerStore(attemptRepo repository.AttemptRepository) AnswerStore {
	return &answerStore{attemptRepo: attemptRepo}
}

func (s *answerStore) Write(ctx context.Context, attemptID string, incoming model.Answers, policy RetryPolicy) (*model.Attempt, error) {
	var written *model.Attempt
	err := policy.Do(ctx, "answer_write", func(ctx context.Context) error {
		attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != model.AttemptInProgress {
			return ErrAttemptNotInProgress
		}
		current := attempt.CurrentAnswers()
		merged := MergeAnswers(current, incoming)
		if answersEqual(current, merged) {
			written = attempt
			return nil
		}
		err = s.attemptRepo.CompareAndSwap(ctx, attemptID, model.AttemptInProgress, attempt.Version, repository.AttemptPatch{Answers: merged})
		if err != nil {
			return fmt.Errorf("write answers: %w", err)
		}

		stored, err := loadAttempt(ctx, s.attemptRepo, attemptID)
		if err != nil {
			return fmt.Errorf("verify answers: %w", err)
		}
		if stored.CurrentAnswers().AnsweredCount() < merged.AnsweredCount() {
			return errAnswersLost
		}
		written = stored
		return nil
	})

	switch {
	case err == nil:
		metrics.AnswerWrites.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrAttemptNotInProgress):
		metrics.AnswerWrites.WithLabelValues("rejected").Inc()
		log.Info().Str("attemptID", attemptID).Int("answerCount", len(incoming)).Msg("Answer write rejected, attempt already submitted")
	case errors.Is(err, ErrDegraded):
		metrics.AnswerWrites.WithLabelValues("degraded").Inc()
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Answer write degraded")
	}
	return written, err
}

func loadAttempt(ctx context.Context, repo repository.AttemptRepository, id string) (*model.Attempt, error) {
	attempt, err := repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %s: %w", id, err)
	}
	return attempt, nil
}

package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lshigami/quizengine/config"
	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/rs/zerolog/log"
)

// RetryPolicy bounds one retried persistence operation by count and by total elapsed time.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

// RetryPolicies are the two budgets used by the attempt core: short for
// autosave, long and aggressive for the final submit.
type RetryPolicies struct {
	Autosave RetryPolicy
	Submit   RetryPolicy
}

func NewRetryPolicies(cfg *config.Config) RetryPolicies {
	return RetryPolicies{
		Autosave: RetryPolicy{
			MaxAttempts:     cfg.Retry.AutosaveAttempts,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			MaxElapsed:      cfg.Retry.AutosaveBudget,
		},
		Submit: RetryPolicy{
			MaxAttempts:     cfg.Retry.SubmitAttempts,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsed:      cfg.Retry.SubmitBudget,
		},
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = p.MaxElapsed
	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do runs fn until it succeeds, returns a domain error, or the policy is
// exhausted. Exhaustion is reported as *DegradedError.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := fn(ctx)
		if err != nil && isDomainError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(err error, next time.Duration) {
		metrics.Retries.WithLabelValues(op).Inc()
		log.Warn().Err(err).Str("op", op).Int("attempt", attempts).Dur("next_in", next).Msg("Retrying persistence call")
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return &DegradedError{Op: op, Attempts: attempts, Err: err}
}

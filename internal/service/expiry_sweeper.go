package service

import (
	"context"
	"fmt"
	"time"

	"github.com/lshigami/quizengine/config"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const sweepBatchSize = 500

// ExpirySweeper auto-submits timed attempts whose clock has run out and that
// no client submitted, for example because the browser was closed.
type ExpirySweeper struct {
	attemptRepo repository.AttemptRepository
	coordinator SubmissionCoordinator
	spec        string
	cron        *cron.Cron
	now         func() time.Time
}

func NewExpirySweeper(cfg *config.Config, attemptRepo repository.AttemptRepository, coordinator SubmissionCoordinator) *ExpirySweeper {
	return &ExpirySweeper{
		attemptRepo: attemptRepo,
		coordinator: coordinator,
		spec:        cfg.ExpirySweepSpec,
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Sweep submits every expired in-progress attempt and returns how many it
// moved to completed. Attempts submitted concurrently by a client are no-ops.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	attempts, err := s.attemptRepo.ListExpiredInProgress(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired attempts: %w", err)
	}
	submitted := 0
	for _, a := range attempts {
		if !Expired(a.StartedAt, a.TimeLimitMinutes, now) {
			continue
		}
		out, err := s.coordinator.Submit(ctx, SubmitCommand{
			AttemptID: a.ID,
			ActorID:   "system:expiry-sweeper",
			Source:    model.SubmitSweeper,
			System:    true,
		})
		if err != nil {
			log.Error().Err(err).Str("attemptID", a.ID).Msg("Expiry sweep failed to submit attempt")
			continue
		}
		if out.Transitioned {
			submitted++
		}
	}
	return submitted, nil
}

func (s *ExpirySweeper) Start() error {
	if s.spec == "" {
		log.Info().Msg("Expiry sweeper disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := s.Sweep(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Expiry sweep failed")
			return
		}
		if n > 0 {
			log.Info().Int("submitted", n).Msg("Expiry sweep auto-submitted attempts")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid EXPIRY_SWEEP_SPEC %q: %w", s.spec, err)
	}
	s.cron.Start()
	log.Info().Str("spec", s.spec).Msg("Expiry sweeper started")
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lshigami/quizengine/internal/cache"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const degradedAutosaveWarning = "Your latest answers could not be saved yet. Keep this page open; they will be sent again with the next save or on submit."

type AttemptService interface {
	StartAttempt(ctx context.Context, quizID uint, actor Actor) (*dto.AttemptStateDTO, error)
	GetAttempt(ctx context.Context, attemptID string, actor Actor) (*dto.AttemptStateDTO, error)
	SaveAnswers(ctx context.Context, attemptID string, actor Actor, req dto.SaveAnswersRequest) (*dto.AttemptStateDTO, error)
	SubmitAttempt(ctx context.Context, attemptID string, actor Actor, req dto.SubmitAttemptRequest) (*dto.AttemptStateDTO, error)
	GetScore(ctx context.Context, attemptID string, actor Actor) (*dto.AttemptStateDTO, error)
	ListMyAttempts(ctx context.Context, quizID uint, actor Actor) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	attemptRepo  repository.AttemptRepository
	answers      AnswerStore
	ledger       ManualGradeLedger
	coordinator  SubmissionCoordinator
	policies     RetryPolicies
	expiry       ExpiryPolicy
	scoreCache   cache.ScoreCache
	tracker      ActivityTracker
	now          func() time.Time
}

func NewAttemptService(
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	attemptRepo repository.AttemptRepository,
	answers AnswerStore,
	ledger ManualGradeLedger,
	coordinator SubmissionCoordinator,
	policies RetryPolicies,
	expiry ExpiryPolicy,
	scoreCache cache.ScoreCache,
	tracker ActivityTracker,
) AttemptService {
	return &attemptService{
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		answers:      answers,
		ledger:       ledger,
		coordinator:  coordinator,
		policies:     policies,
		expiry:       expiry,
		scoreCache:   scoreCache,
		tracker:      tracker,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StartAttempt opens a new attempt, or resumes the student's open attempt on
// the same quiz. The answer key and time limit are pinned at this moment.
func (s *attemptService) StartAttempt(ctx context.Context, quizID uint, actor Actor) (*dto.AttemptStateDTO, error) {
	if !actor.IsStudent() || actor.ID == "" {
		return nil, ErrForbidden
	}
	quiz, err := s.quizRepo.FindByID(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", quizID, err)
	}

	existing, err := s.attemptRepo.ListByQuizAndStudent(ctx, quizID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	for i := range existing {
		if existing[i].Status == model.AttemptInProgress {
			log.Info().Str("attemptID", existing[i].ID).Str("studentID", actor.ID).Msg("Resuming open attempt")
			return s.view(ctx, &existing[i], actor)
		}
	}

	now := s.now()
	switch {
	case quiz.Status == model.QuizStatusClosed:
		return nil, ErrQuizClosed
	case quiz.Status != model.QuizStatusPublished:
		return nil, ErrQuizNotPublished
	case !quiz.AcceptsAttempts(now):
		return nil, ErrQuizPastDue
	case quiz.MaxAttempts > 0 && len(existing) >= quiz.MaxAttempts:
		return nil, ErrMaxAttemptsReached
	}

	questions, err := s.questionRepo.FindByQuizID(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions of quiz %d: %w", quizID, err)
	}
	key := make([]model.QuestionSnapshot, 0, len(questions))
	for _, q := range questions {
		key = append(key, q.Snapshot())
	}
	var limit *int
	if quiz.TimeLimitMinutes != nil {
		v := *quiz.TimeLimitMinutes
		limit = &v
	}
	attempt := &model.Attempt{
		QuizID:           quiz.ID,
		StudentID:        actor.ID,
		Status:           model.AttemptInProgress,
		Answers:          datatypes.NewJSONType(model.Answers{}),
		AnswerKey:        datatypes.NewJSONType(key),
		TimeLimitMinutes: limit,
		StartedAt:        now,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Str("studentID", actor.ID).Msg("StartAttempt: failed to create attempt")
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	s.tracker.Track(actor.ID, "attempt.start", map[string]string{"attemptID": attempt.ID, "quizID": strconv.FormatUint(uint64(quizID), 10)})
	log.Info().Str("attemptID", attempt.ID).Uint("quizID", quizID).Str("studentID", actor.ID).Msg("Attempt started")
	return toAttemptState(attempt, nil, now), nil
}

// GetAttempt returns the attempt with its live timer. An open attempt whose
// time has run out is submitted on the way.
func (s *attemptService) GetAttempt(ctx context.Context, attemptID string, actor Actor) (*dto.AttemptStateDTO, error) {
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if !canRead(attempt, actor) {
		return nil, ErrForbidden
	}
	return s.view(ctx, attempt, actor)
}

func (s *attemptService) view(ctx context.Context, attempt *model.Attempt, actor Actor) (*dto.AttemptStateDTO, error) {
	now := s.now()
	if attempt.Status == model.AttemptInProgress && Expired(attempt.StartedAt, attempt.TimeLimitMinutes, now) {
		return s.submitExpired(ctx, attempt.ID, actor)
	}
	if attempt.Status == model.AttemptInProgress {
		return toAttemptState(attempt, nil, now), nil
	}
	breakdown, err := s.breakdown(ctx, attempt)
	if err != nil {
		return nil, err
	}
	return toAttemptState(attempt, breakdown, now), nil
}

func (s *attemptService) submitExpired(ctx context.Context, attemptID string, actor Actor) (*dto.AttemptStateDTO, error) {
	out, err := s.coordinator.Submit(ctx, SubmitCommand{
		AttemptID: attemptID,
		ActorID:   actor.ID,
		Source:    model.SubmitExpiry,
		System:    true,
	})
	if err != nil {
		return nil, err
	}
	state := toAttemptState(out.Attempt, &out.Breakdown, s.now())
	state.Warning = out.Warning
	return state, nil
}

// SaveAnswers merge-writes answers into an open attempt. Answers that arrive
// after the deadline and its grace period are not saved: the attempt is
// submitted instead and ErrAttemptNotInProgress is returned.
func (s *attemptService) SaveAnswers(ctx context.Context, attemptID string, actor Actor, req dto.SaveAnswersRequest) (*dto.AttemptStateDTO, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != actor.ID {
		return nil, ErrForbidden
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, ErrAttemptNotInProgress
	}
	if err := checkAnswerKeys(attempt, req.Answers); err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.FindByID(ctx, attempt.QuizID)
	if err == nil && quiz.Status == model.QuizStatusClosed {
		return nil, ErrQuizClosed
	}
	if !s.expiry.AcceptsAnswers(attempt.StartedAt, attempt.TimeLimitMinutes, s.now()) {
		if _, err := s.submitExpired(ctx, attemptID, actor); err != nil {
			return nil, err
		}
		log.Info().Str("attemptID", attemptID).Int("answerCount", len(req.Answers)).Msg("Answers arrived after the deadline, attempt submitted without them")
		return nil, fmt.Errorf("%w: time limit reached", ErrAttemptNotInProgress)
	}

	written, err := s.answers.Write(ctx, attemptID, model.Answers(req.Answers), s.policies.Autosave)
	switch {
	case errors.Is(err, ErrDegraded):
		state := toAttemptState(attempt, nil, s.now())
		state.Warning = degradedAutosaveWarning
		state.Degraded = true
		return state, nil
	case err != nil:
		return nil, err
	}

	if Expired(written.StartedAt, written.TimeLimitMinutes, s.now()) {
		return s.submitExpired(ctx, attemptID, actor)
	}
	return toAttemptState(written, nil, s.now()), nil
}

func questionKeys(attempt *model.Attempt) map[string]struct{} {
	known := make(map[string]struct{}, len(attempt.Questions()))
	for _, q := range attempt.Questions() {
		known[model.QuestionKey(q.ID)] = struct{}{}
	}
	return known
}

// knownAnswers drops answers to questions outside the attempt's answer key.
func knownAnswers(attempt *model.Attempt, answers model.Answers) model.Answers {
	known := questionKeys(attempt)
	out := make(model.Answers, len(answers))
	for k, v := range answers {
		if _, ok := known[k]; ok {
			out[k] = v
		} else {
			log.Warn().Str("attemptID", attempt.ID).Str("questionKey", k).Msg("Ignoring answer to unknown question")
		}
	}
	return out
}

func checkAnswerKeys(attempt *model.Attempt, answers map[string]string) error {
	known := questionKeys(attempt)
	var unknown []string
	for k := range answers {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, fmt.Sprintf("question %q is not part of this attempt", k))
		}
	}
	if len(unknown) > 0 {
		return &ValidationError{Details: unknown}
	}
	return nil
}

func (s *attemptService) SubmitAttempt(ctx context.Context, attemptID string, actor Actor, req dto.SubmitAttemptRequest) (*dto.AttemptStateDTO, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	source := model.SubmitManual
	if req.Source == string(model.SubmitExpiry) {
		source = model.SubmitExpiry
	}
	sources := make([]model.Answers, 0, len(req.Pending)+1)
	for _, p := range req.Pending {
		sources = append(sources, model.Answers(p))
	}
	if req.Answers != nil {
		sources = append(sources, model.Answers(req.Answers))
	}

	out, err := s.coordinator.Submit(ctx, SubmitCommand{
		AttemptID: attemptID,
		ActorID:   actor.ID,
		Sources:   sources,
		Source:    source,
	})
	if err != nil {
		return nil, err
	}
	state := toAttemptState(out.Attempt, &out.Breakdown, s.now())
	state.Warning = out.Warning
	return state, nil
}

type cachedScore struct {
	Version   int64                 `json:"version"`
	Breakdown dto.ScoreBreakdownDTO `json:"breakdown"`
}

func (s *attemptService) GetScore(ctx context.Context, attemptID string, actor Actor) (*dto.AttemptStateDTO, error) {
	attempt, err := loadAttempt(ctx, s.attemptRepo, attemptID)
	if err != nil {
		return nil, err
	}
	if !canRead(attempt, actor) {
		return nil, ErrForbidden
	}
	if attempt.Status == model.AttemptInProgress {
		return s.view(ctx, attempt, actor)
	}

	var cached cachedScore
	hit, err := s.scoreCache.Get(ctx, attemptID, &cached)
	if err != nil {
		log.Warn().Err(err).Str("attemptID", attemptID).Msg("Score cache read failed")
	}
	if hit && cached.Version == attempt.Version {
		state := toAttemptState(attempt, nil, s.now())
		state.Breakdown = &cached.Breakdown
		return state, nil
	}

	breakdown, err := s.breakdown(ctx, attempt)
	if err != nil {
		return nil, err
	}
	state := toAttemptState(attempt, breakdown, s.now())
	if err := s.scoreCache.Set(ctx, attemptID, cachedScore{Version: attempt.Version, Breakdown: *state.Breakdown}); err != nil {
		log.Warn().Err(err).Str("attemptID", attemptID).Msg("Score cache write failed")
	}
	return state, nil
}

func (s *attemptService) breakdown(ctx context.Context, attempt *model.Attempt) (*ScoreBreakdown, error) {
	grades, err := s.ledger.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	b := AttemptBreakdown(attempt, grades)
	return &b, nil
}

func (s *attemptService) ListMyAttempts(ctx context.Context, quizID uint, actor Actor) ([]dto.AttemptSummaryDTO, error) {
	if actor.ID == "" {
		return nil, ErrForbidden
	}
	attempts, err := s.attemptRepo.ListByQuizAndStudent(ctx, quizID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return toAttemptSummaries(attempts), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/rs/zerolog/log"
)

type QuizService interface {
	CreateQuiz(ctx context.Context, actor Actor, req dto.CreateQuizRequest) (*dto.QuizResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, quizID uint, req dto.UpdateQuizStatusRequest) (*dto.QuizResponse, error)
	ListQuizzes(ctx context.Context, actor Actor) ([]dto.QuizSummaryDTO, error)
	GetQuiz(ctx context.Context, actor Actor, quizID uint) (*dto.QuizResponse, error)
}

type quizService struct {
	quizRepo repository.QuizRepository
}

func NewQuizService(quizRepo repository.QuizRepository) QuizService {
	return &quizService{quizRepo: quizRepo}
}

func (s *quizService) CreateQuiz(ctx context.Context, actor Actor, req dto.CreateQuizRequest) (*dto.QuizResponse, error) {
	if !actor.IsInstructor() {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Without explicit ordering the request order is used.
	explicitOrder := false
	for _, q := range req.Questions {
		if q.OrderIndex != 0 {
			explicitOrder = true
			break
		}
	}
	seen := make(map[int]bool, len(req.Questions))
	questions := make([]model.Question, 0, len(req.Questions))
	for i, qReq := range req.Questions {
		order := i + 1
		if explicitOrder {
			order = qReq.OrderIndex
			if seen[order] {
				return nil, &ValidationError{Details: []string{fmt.Sprintf("duplicate order_index %d", order)}}
			}
			seen[order] = true
		}
		q := model.Question{
			Type:       model.QuestionType(qReq.Type),
			Prompt:     qReq.Prompt,
			Options:    qReq.Options,
			Points:     qReq.Points,
			OrderIndex: order,
		}
		if qReq.CorrectAnswer != nil {
			key := strings.TrimSpace(*qReq.CorrectAnswer)
			if q.Type == model.QuestionTrueFalse {
				key = strings.ToLower(key)
			}
			q.CorrectAnswer = &key
		}
		questions = append(questions, q)
	}

	quiz := &model.Quiz{
		Title:            req.Title,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MaxAttempts:      req.MaxAttempts,
		DueAt:            req.DueAt,
		Status:           model.QuizStatusDraft,
		InstructorID:     actor.ID,
		Questions:        questions,
	}
	if err := s.quizRepo.Create(ctx, quiz); err != nil {
		log.Error().Err(err).Str("title", req.Title).Msg("CreateQuiz: failed to persist quiz")
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	log.Info().Uint("quizID", quiz.ID).Int("questions", len(questions)).Str("instructorID", actor.ID).Msg("Quiz created")
	return toQuizResponse(quiz, true), nil
}

func quizStatusRank(s model.QuizStatus) int {
	switch s {
	case model.QuizStatusDraft:
		return 0
	case model.QuizStatusPublished:
		return 1
	case model.QuizStatusClosed:
		return 2
	}
	return -1
}

// UpdateStatus moves a quiz forward through draft -> published -> closed.
func (s *quizService) UpdateStatus(ctx context.Context, actor Actor, quizID uint, req dto.UpdateQuizStatusRequest) (*dto.QuizResponse, error) {
	if !actor.IsInstructor() {
		return nil, ErrForbidden
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	quiz, err := s.quizRepo.FindByIDWithQuestions(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", quizID, err)
	}
	target := model.QuizStatus(req.Status)
	if target == quiz.Status {
		return toQuizResponse(quiz, true), nil
	}
	if quizStatusRank(target) < quizStatusRank(quiz.Status) {
		return nil, &ValidationError{Details: []string{fmt.Sprintf("quiz cannot move from %s back to %s", quiz.Status, target)}}
	}
	if err := s.quizRepo.UpdateStatus(ctx, quizID, target); err != nil {
		return nil, fmt.Errorf("update quiz status: %w", err)
	}
	log.Info().Uint("quizID", quizID).Str("from", string(quiz.Status)).Str("to", string(target)).Msg("Quiz status changed")
	quiz.Status = target
	return toQuizResponse(quiz, true), nil
}

// ListQuizzes shows students published and closed quizzes and instructors everything.
func (s *quizService) ListQuizzes(ctx context.Context, actor Actor) ([]dto.QuizSummaryDTO, error) {
	rows, err := s.quizRepo.FindAllWithQuestionCount(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("ListQuizzes: repository error")
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	out := make([]dto.QuizSummaryDTO, 0, len(rows))
	for _, r := range rows {
		if !actor.IsInstructor() && r.Status == model.QuizStatusDraft {
			continue
		}
		out = append(out, dto.QuizSummaryDTO{
			ID:               r.ID,
			Title:            r.Title,
			Description:      r.Description,
			TimeLimitMinutes: r.TimeLimitMinutes,
			MaxAttempts:      r.MaxAttempts,
			DueAt:            r.DueAt,
			Status:           string(r.Status),
			QuestionCount:    r.QuestionCount,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out, nil
}

// GetQuiz returns the quiz with its questions. Students never see answer keys
// and cannot see drafts.
func (s *quizService) GetQuiz(ctx context.Context, actor Actor, quizID uint) (*dto.QuizResponse, error) {
	quiz, err := s.quizRepo.FindByIDWithQuestions(ctx, quizID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrQuizNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %d: %w", quizID, err)
	}
	if !actor.IsInstructor() && quiz.Status == model.QuizStatusDraft {
		return nil, ErrQuizNotFound
	}
	return toQuizResponse(quiz, actor.IsInstructor()), nil
}

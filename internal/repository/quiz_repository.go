package repository

import (
	"context"

	"github.com/lshigami/quizengine/internal/model"
	"gorm.io/gorm"
)

type QuizSummary struct {
	model.Quiz
	QuestionCount int
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	FindByID(ctx context.Context, id uint) (*model.Quiz, error)
	FindByIDWithQuestions(ctx context.Context, id uint) (*model.Quiz, error)
	FindAllWithQuestionCount(ctx context.Context, status *model.QuizStatus) ([]QuizSummary, error)
	UpdateStatus(ctx context.Context, id uint, status model.QuizStatus) error
}

type quizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) QuizRepository {
	return &quizRepository{db: db}
}

// Create inserts the quiz together with its questions.
func (r *quizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	return r.db.WithContext(ctx).Create(quiz).Error
}

func (r *quizRepository) FindByID(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.db.WithContext(ctx).First(&quiz, id).Error; err != nil {
		return nil, translate(err)
	}
	return &quiz, nil
}

func (r *quizRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.db.WithContext(ctx).Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_index ASC")
	}).First(&quiz, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &quiz, nil
}

func (r *quizRepository) FindAllWithQuestionCount(ctx context.Context, status *model.QuizStatus) ([]QuizSummary, error) {
	var results []QuizSummary
	q := r.db.WithContext(ctx).Model(&model.Quiz{}).
		Select("quizzes.*, (SELECT COUNT(*) FROM questions WHERE questions.quiz_id = quizzes.id AND questions.deleted_at IS NULL) as question_count").
		Where("quizzes.deleted_at IS NULL")
	if status != nil {
		q = q.Where("quizzes.status = ?", *status)
	}
	err := q.Order("quizzes.created_at DESC").Scan(&results).Error
	return results, err
}

func (r *quizRepository) UpdateStatus(ctx context.Context, id uint, status model.QuizStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Quiz{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

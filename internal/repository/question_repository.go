package repository

import (
	"context"

	"github.com/lshigami/quizengine/internal/model"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	FindByQuizID(ctx context.Context, quizID uint) ([]model.Question, error)
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByQuizID(ctx context.Context, quizID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.WithContext(ctx).Where("quiz_id = ?", quizID).Order("order_index ASC").Find(&questions).Error
	return questions, err
}

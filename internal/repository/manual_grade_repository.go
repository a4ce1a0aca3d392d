package repository

import (
	"context"

	"github.com/lshigami/quizengine/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ManualGradeRepository interface {
	// Upsert keeps one row per (attempt, question); the latest write wins.
	Upsert(ctx context.Context, grade *model.ManualGrade) error
	ListByAttempt(ctx context.Context, attemptID string) ([]model.ManualGrade, error)
}

type manualGradeRepository struct {
	db *gorm.DB
}

func NewManualGradeRepository(db *gorm.DB) ManualGradeRepository {
	return &manualGradeRepository{db: db}
}

func (r *manualGradeRepository) Upsert(ctx context.Context, grade *model.ManualGrade) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "feedback", "grader_id", "graded_at", "updated_at"}),
	}).Create(grade).Error
}

func (r *manualGradeRepository) ListByAttempt(ctx context.Context, attemptID string) ([]model.ManualGrade, error) {
	var grades []model.ManualGrade
	err := r.db.WithContext(ctx).Where("attempt_id = ?", attemptID).Order("question_id ASC").Find(&grades).Error
	return grades, err
}

package repository

import (
	"context"
	"time"

	"github.com/lshigami/quizengine/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptPatch lists the columns a conditional update may set. Nil fields are left untouched.
type AttemptPatch struct {
	Status         *model.AttemptStatus
	Answers        model.Answers
	Score          *int
	CompletedAt    *time.Time
	GradedAt       *time.Time
	SubmitSource   *model.SubmitSource
	ForceFinalized *bool
	FinalizedBy    *string
}

func (p AttemptPatch) columns() map[string]interface{} {
	cols := map[string]interface{}{
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Answers != nil {
		cols["answers"] = datatypes.NewJSONType(p.Answers)
	}
	if p.Score != nil {
		cols["score"] = *p.Score
	}
	if p.CompletedAt != nil {
		cols["completed_at"] = *p.CompletedAt
	}
	if p.GradedAt != nil {
		cols["graded_at"] = *p.GradedAt
	}
	if p.SubmitSource != nil {
		cols["submit_source"] = *p.SubmitSource
	}
	if p.ForceFinalized != nil {
		cols["force_finalized"] = *p.ForceFinalized
	}
	if p.FinalizedBy != nil {
		cols["finalized_by"] = *p.FinalizedBy
	}
	return cols
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *model.Attempt) error
	FindByID(ctx context.Context, id string) (*model.Attempt, error)
	CountByQuizAndStudent(ctx context.Context, quizID uint, studentID string) (int64, error)
	ListByQuizAndStudent(ctx context.Context, quizID uint, studentID string) ([]model.Attempt, error)
	ListExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error)
	// CompareAndSwap applies patch only if the row still has the expected status
	// and version. It returns ErrStatusConflict when another writer got there first.
	CompareAndSwap(ctx context.Context, id string, expectedStatus model.AttemptStatus, expectedVersion int64, patch AttemptPatch) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) FindByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, translate(err)
	}
	return &attempt, nil
}

func (r *attemptRepository) CountByQuizAndStudent(ctx context.Context, quizID uint, studentID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&n).Error
	return n, err
}

func (r *attemptRepository) ListByQuizAndStudent(ctx context.Context, quizID uint, studentID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// ListExpiredInProgress returns in-progress attempts whose deadline is at or
// before now, earliest deadline first.
func (r *attemptRepository) ListExpiredInProgress(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND deadline_at IS NOT NULL AND deadline_at <= ?", model.AttemptInProgress, now).
		Order("deadline_at ASC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

func (r *attemptRepository) CompareAndSwap(ctx context.Context, id string, expectedStatus model.AttemptStatus, expectedVersion int64, patch AttemptPatch) error {
	res := r.db.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND status = ? AND version = ?", id, expectedStatus, expectedVersion).
		Updates(patch.columns())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

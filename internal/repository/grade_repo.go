package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// GradeRepository defines data operations for grade version chains and the
// grade history archive.
type GradeRepository interface {
	GetByID(ctx context.Context, id string) (models.Grade, error)
	GetLatestBySubmission(ctx context.Context, submissionID string) (models.Grade, error)
	ListLatestBySubmissions(ctx context.Context, submissionIDs []string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	// CreateVersion atomically retires the prior latest grade, archives it
	// into history with a supersession reason, inserts the new version, and
	// flips the owning submission to graded. This is the only write path for
	// grade content; rows are never mutated in place.
	CreateVersion(ctx context.Context, prior *models.Grade, next models.Grade, reason string) error
	SetLock(ctx context.Context, gradeID string, locked bool, reason string) error
	ListHistory(ctx context.Context, submissionID string) ([]models.GradeHistory, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) GetByID(ctx context.Context, id string) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).First(&grade, "id = ?", id).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

func (r *gradeRepository) GetLatestBySubmission(ctx context.Context, submissionID string) (models.Grade, error) {
	var grade models.Grade
	if err := r.db.WithContext(ctx).
		Where("submission_id = ? AND is_latest = ?", submissionID, true).
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}
	return grade, nil
}

func (r *gradeRepository) ListLatestBySubmissions(ctx context.Context, submissionIDs []string) ([]models.Grade, error) {
	var grades []models.Grade
	for _, chunk := range chunkIDs(submissionIDs) {
		var page []models.Grade
		if err := r.db.WithContext(ctx).
			Where("submission_id IN ? AND is_latest = ?", chunk, true).
			Find(&page).Error; err != nil {
			return nil, err
		}
		grades = append(grades, page...)
	}
	return grades, nil
}

func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grade).Error; err != nil {
			return err
		}
		return markSubmissionGraded(tx, grade.SubmissionID, grade.ID)
	})
}

func (r *gradeRepository) CreateVersion(ctx context.Context, prior *models.Grade, next models.Grade, reason string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Grade{}).
			Where("id = ?", prior.ID).
			Update("is_latest", false).Error; err != nil {
			return err
		}

		history := historyFromGrade(*prior, reason)
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if err := tx.Create(&next).Error; err != nil {
			return err
		}

		return markSubmissionGraded(tx, next.SubmissionID, next.ID)
	})
}

func (r *gradeRepository) SetLock(ctx context.Context, gradeID string, locked bool, reason string) error {
	result := r.db.WithContext(ctx).Model(&models.Grade{}).
		Where("id = ?", gradeID).
		Updates(map[string]interface{}{
			"is_locked":     locked,
			"locked_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *gradeRepository) ListHistory(ctx context.Context, submissionID string) ([]models.GradeHistory, error) {
	var history []models.GradeHistory
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("version ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func markSubmissionGraded(tx *gorm.DB, submissionID, gradeID string) error {
	return tx.Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{
			"status":          models.SubmissionStatusGraded,
			"latest_grade_id": gradeID,
		}).Error
}

func historyFromGrade(grade models.Grade, reason string) models.GradeHistory {
	return models.GradeHistory{
		SubmissionID:     grade.SubmissionID,
		GradeID:          grade.ID,
		Version:          grade.Version,
		Score:            grade.Score,
		MaxScore:         grade.MaxScore,
		Feedback:         grade.Feedback,
		GradedBy:         grade.GradedBy,
		SupersededReason: reason,
		Payload:          gradePayload(grade),
		ArchivedAt:       time.Now().UTC(),
	}
}

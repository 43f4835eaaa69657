package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// SubmissionCounters aggregates the denormalized submission counts for one
// classroom, recomputed from stored rows after each import.
type SubmissionCounters struct {
	Active   int64
	Ungraded int64
}

// SubmissionRepository defines data operations for submission version chains.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id string) (models.Submission, error)
	GetLatest(ctx context.Context, classroomID, assignmentID, studentID string) (models.Submission, error)
	ListLatestByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Submission, error)
	BatchCreate(ctx context.Context, submissions []models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	// CreateVersion retires the prior latest row and inserts its successor in
	// one transaction so concurrent readers never observe two latest rows.
	CreateVersion(ctx context.Context, prior models.Submission, next models.Submission) error
	CountByClassroom(ctx context.Context, classroomID string) (SubmissionCounters, error)
	CountByAssignment(ctx context.Context, assignmentID string) (total, graded int64, err error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetLatest(ctx context.Context, classroomID, assignmentID, studentID string) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("classroom_id = ? AND assignment_id = ? AND student_id = ? AND is_latest = ?", classroomID, assignmentID, studentID, true).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListLatestByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Submission, error) {
	var submissions []models.Submission
	for _, chunk := range chunkIDs(classroomIDs) {
		var page []models.Submission
		if err := r.db.WithContext(ctx).
			Where("classroom_id IN ? AND is_latest = ?", chunk, true).
			Find(&page).Error; err != nil {
			return nil, err
		}
		submissions = append(submissions, page...)
	}
	return submissions, nil
}

func (r *submissionRepository) BatchCreate(ctx context.Context, submissions []models.Submission) error {
	return batchCreate(ctx, r.db, submissions)
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}

func (r *submissionRepository) CreateVersion(ctx context.Context, prior models.Submission, next models.Submission) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("id = ?", prior.ID).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		return tx.Create(&next).Error
	})
}

func (r *submissionRepository) CountByClassroom(ctx context.Context, classroomID string) (SubmissionCounters, error) {
	var counters SubmissionCounters
	base := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("classroom_id = ? AND is_latest = ?", classroomID, true)

	if err := base.Session(&gorm.Session{}).Count(&counters.Active).Error; err != nil {
		return SubmissionCounters{}, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", models.SubmissionStatusUngraded).
		Count(&counters.Ungraded).Error; err != nil {
		return SubmissionCounters{}, err
	}
	return counters, nil
}

func (r *submissionRepository) CountByAssignment(ctx context.Context, assignmentID string) (total, graded int64, err error) {
	base := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ? AND is_latest = ?", assignmentID, true)

	if err = base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).
		Where("status = ?", models.SubmissionStatusGraded).
		Count(&graded).Error; err != nil {
		return 0, 0, err
	}
	return total, graded, nil
}

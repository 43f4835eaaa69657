package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// EnrollmentRepository defines data operations for classroom enrollments.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (models.Enrollment, error)
	ListByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Enrollment, error)
	BatchCreate(ctx context.Context, enrollments []models.Enrollment) error
	BatchUpdate(ctx context.Context, enrollments []*models.Enrollment) error
	ArchiveByIDs(ctx context.Context, ids []string) error
	CountActiveByClassroom(ctx context.Context, classroomID string) (int64, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository instantiates the repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id string) (models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := r.db.WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return models.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *enrollmentRepository) ListByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	for _, chunk := range chunkIDs(classroomIDs) {
		var page []models.Enrollment
		if err := r.db.WithContext(ctx).Where("classroom_id IN ?", chunk).Find(&page).Error; err != nil {
			return nil, err
		}
		enrollments = append(enrollments, page...)
	}
	return enrollments, nil
}

func (r *enrollmentRepository) BatchCreate(ctx context.Context, enrollments []models.Enrollment) error {
	return batchCreate(ctx, r.db, enrollments)
}

func (r *enrollmentRepository) BatchUpdate(ctx context.Context, enrollments []*models.Enrollment) error {
	return batchUpdate(ctx, r.db, enrollments)
}

// ArchiveByIDs flips enrollments to the removed status. Rows are preserved
// for historical participation queries.
func (r *enrollmentRepository) ArchiveByIDs(ctx context.Context, ids []string) error {
	for _, chunk := range chunkIDs(ids) {
		if err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
			Where("id IN ?", chunk).
			Update("status", models.EnrollmentStatusRemoved).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *enrollmentRepository) CountActiveByClassroom(ctx context.Context, classroomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("classroom_id = ? AND status = ?", classroomID, models.EnrollmentStatusActive).
		Count(&count).Error
	return count, err
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// ClassroomRepository defines data operations for classrooms.
type ClassroomRepository interface {
	GetByID(ctx context.Context, id string) (models.Classroom, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error)
	BatchCreate(ctx context.Context, classrooms []models.Classroom) error
	BatchUpdate(ctx context.Context, classrooms []*models.Classroom) error
	UpdateCounters(ctx context.Context, classroom *models.Classroom) error
}

type classroomRepository struct {
	db *gorm.DB
}

// NewClassroomRepository instantiates the repository.
func NewClassroomRepository(db *gorm.DB) ClassroomRepository {
	return &classroomRepository{db: db}
}

func (r *classroomRepository) GetByID(ctx context.Context, id string) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.WithContext(ctx).First(&classroom, "id = ?", id).Error; err != nil {
		return models.Classroom{}, err
	}
	return classroom, nil
}

func (r *classroomRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	for _, chunk := range chunkIDs(ids) {
		var page []models.Classroom
		if err := r.db.WithContext(ctx).Where("id IN ?", chunk).Find(&page).Error; err != nil {
			return nil, err
		}
		classrooms = append(classrooms, page...)
	}
	return classrooms, nil
}

func (r *classroomRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	if err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Order("name").Find(&classrooms).Error; err != nil {
		return nil, err
	}
	return classrooms, nil
}

func (r *classroomRepository) BatchCreate(ctx context.Context, classrooms []models.Classroom) error {
	return batchCreate(ctx, r.db, classrooms)
}

func (r *classroomRepository) BatchUpdate(ctx context.Context, classrooms []*models.Classroom) error {
	return batchUpdate(ctx, r.db, classrooms)
}

func (r *classroomRepository) UpdateCounters(ctx context.Context, classroom *models.Classroom) error {
	return r.db.WithContext(ctx).Model(&models.Classroom{}).
		Where("id = ?", classroom.ID).
		Updates(map[string]interface{}{
			"student_count":        classroom.StudentCount,
			"assignment_count":     classroom.AssignmentCount,
			"active_submissions":   classroom.ActiveSubmissions,
			"ungraded_submissions": classroom.UngradedSubmissions,
		}).Error
}

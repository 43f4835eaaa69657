package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// AssignmentRepository defines data operations for assignments.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (models.Assignment, error)
	ListByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Assignment, error)
	BatchCreate(ctx context.Context, assignments []models.Assignment) error
	BatchUpdate(ctx context.Context, assignments []*models.Assignment) error
	UpdateCounters(ctx context.Context, assignment *models.Assignment) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) ListByClassrooms(ctx context.Context, classroomIDs []string) ([]models.Assignment, error) {
	var assignments []models.Assignment
	for _, chunk := range chunkIDs(classroomIDs) {
		var page []models.Assignment
		if err := r.db.WithContext(ctx).Where("classroom_id IN ?", chunk).Find(&page).Error; err != nil {
			return nil, err
		}
		assignments = append(assignments, page...)
	}
	return assignments, nil
}

func (r *assignmentRepository) BatchCreate(ctx context.Context, assignments []models.Assignment) error {
	return batchCreate(ctx, r.db, assignments)
}

func (r *assignmentRepository) BatchUpdate(ctx context.Context, assignments []*models.Assignment) error {
	return batchUpdate(ctx, r.db, assignments)
}

func (r *assignmentRepository) UpdateCounters(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", assignment.ID).
		Updates(map[string]interface{}{
			"submission_count": assignment.SubmissionCount,
			"graded_count":     assignment.GradedCount,
			"pending_count":    assignment.PendingCount,
		}).Error
}

package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/repository"
)

// CounterSyncService recomputes denormalized aggregates from source-of-truth
// child records after an import run. Nothing here trusts counts carried by
// the snapshot.
type CounterSyncService interface {
	SyncTeacher(ctx context.Context, teacherID string) error
	SyncClassroom(ctx context.Context, classroomID string) error
	SyncAssignments(ctx context.Context, classroomID string) error
}

type counterSyncService struct {
	teachers    repository.TeacherRepository
	classrooms  repository.ClassroomRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewCounterSyncService constructs the counter recomputation service.
func NewCounterSyncService(
	teachers repository.TeacherRepository,
	classrooms repository.ClassroomRepository,
	assignments repository.AssignmentRepository,
	enrollments repository.EnrollmentRepository,
	submissions repository.SubmissionRepository,
	logger zerolog.Logger,
) CounterSyncService {
	return &counterSyncService{
		teachers:    teachers,
		classrooms:  classrooms,
		assignments: assignments,
		enrollments: enrollments,
		submissions: submissions,
		logger:      logger.With().Str("component", "counter_sync_service").Logger(),
	}
}

// SyncTeacher rebuilds the teacher aggregate from actual classroom ownership
// and writes only when something changed.
func (s *counterSyncService) SyncTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.teachers.GetByID(ctx, teacherID)
	if err != nil {
		return err
	}

	classrooms, err := s.classrooms.ListByTeacher(ctx, teacherID)
	if err != nil {
		return err
	}

	classroomIDs := make([]string, 0, len(classrooms))
	totalStudents := 0
	for _, classroom := range classrooms {
		classroomIDs = append(classroomIDs, classroom.ID)
		active, err := s.enrollments.CountActiveByClassroom(ctx, classroom.ID)
		if err != nil {
			return err
		}
		totalStudents += int(active)
	}
	sort.Strings(classroomIDs)

	current := teacher.ClassroomIDList()
	sort.Strings(current)
	if teacher.TotalClassrooms == len(classroomIDs) && teacher.TotalStudents == totalStudents && equalStringSets(current, classroomIDs) {
		return nil
	}

	teacher.SetClassroomIDs(classroomIDs)
	teacher.TotalClassrooms = len(classroomIDs)
	teacher.TotalStudents = totalStudents
	return s.teachers.Update(ctx, &teacher)
}

// SyncClassroom recomputes the classroom's denormalized counters from freshly
// queried child entities.
func (s *counterSyncService) SyncClassroom(ctx context.Context, classroomID string) error {
	classroom, err := s.classrooms.GetByID(ctx, classroomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	activeStudents, err := s.enrollments.CountActiveByClassroom(ctx, classroomID)
	if err != nil {
		return err
	}

	assignments, err := s.assignments.ListByClassrooms(ctx, []string{classroomID})
	if err != nil {
		return err
	}

	counters, err := s.submissions.CountByClassroom(ctx, classroomID)
	if err != nil {
		return err
	}

	classroom.StudentCount = int(activeStudents)
	classroom.AssignmentCount = len(assignments)
	classroom.ActiveSubmissions = int(counters.Active)
	classroom.UngradedSubmissions = int(counters.Ungraded)
	return s.classrooms.UpdateCounters(ctx, &classroom)
}

// SyncAssignments recomputes submission counters for every assignment of the
// classroom.
func (s *counterSyncService) SyncAssignments(ctx context.Context, classroomID string) error {
	assignments, err := s.assignments.ListByClassrooms(ctx, []string{classroomID})
	if err != nil {
		return err
	}

	for i := range assignments {
		assignment := assignments[i]
		total, graded, err := s.submissions.CountByAssignment(ctx, assignment.ID)
		if err != nil {
			return err
		}
		assignment.SubmissionCount = int(total)
		assignment.GradedCount = int(graded)
		assignment.PendingCount = int(total - graded)
		if err := s.assignments.UpdateCounters(ctx, &assignment); err != nil {
			return err
		}
	}
	return nil
}

func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/merge"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/observability"
	"github.com/noah-isme/classync-go-api/internal/repository"
	"github.com/noah-isme/classync-go-api/internal/transform"
)

// SnapshotProcessor reconciles one complete snapshot into the normalized
// store. Only a transform failure is fatal; every step after it is
// best-effort and accumulates per-entity errors into the result.
type SnapshotProcessor interface {
	Process(ctx context.Context, snapshot dto.Snapshot) (dto.ProcessingResult, error)
}

type snapshotProcessor struct {
	transformer *transform.Transformer
	teachers    repository.TeacherRepository
	classrooms  repository.ClassroomRepository
	assignments repository.AssignmentRepository
	enrollments repository.EnrollmentRepository
	submissions repository.SubmissionRepository
	grades      GradeVersioningService
	versioning  SubmissionVersioningService
	counters    CounterSyncService
	lock        ImportLockService
	events      ImportEventPublisher
	cache       *redis.Client
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// SnapshotProcessorDeps groups the collaborators of the processor.
type SnapshotProcessorDeps struct {
	Teachers    repository.TeacherRepository
	Classrooms  repository.ClassroomRepository
	Assignments repository.AssignmentRepository
	Enrollments repository.EnrollmentRepository
	Submissions repository.SubmissionRepository
	Grades      GradeVersioningService
	Versioning  SubmissionVersioningService
	Counters    CounterSyncService
	Lock        ImportLockService
	Events      ImportEventPublisher
	Cache       *redis.Client
}

// NewSnapshotProcessor constructs the orchestrator.
func NewSnapshotProcessor(deps SnapshotProcessorDeps, logger zerolog.Logger) SnapshotProcessor {
	return &snapshotProcessor{
		transformer: transform.New(),
		teachers:    deps.Teachers,
		classrooms:  deps.Classrooms,
		assignments: deps.Assignments,
		enrollments: deps.Enrollments,
		submissions: deps.Submissions,
		grades:      deps.Grades,
		versioning:  deps.Versioning,
		counters:    deps.Counters,
		lock:        deps.Lock,
		events:      deps.Events,
		cache:       deps.Cache,
		logger:      logger.With().Str("component", "snapshot_processor").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/classync-go-api/internal/service/snapshot_processor"),
		now:         time.Now,
	}
}

// runState accumulates stats and errors across concurrent steps.
type runState struct {
	mu     sync.Mutex
	stats  dto.ProcessingStats
	errors []dto.ProcessingError
}

func (r *runState) addError(entity, id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, dto.ProcessingError{Entity: entity, ID: id, Error: err.Error()})
	observability.ImportErrors().WithLabelValues(entity).Inc()
}

func (r *runState) update(fn func(stats *dto.ProcessingStats)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.stats)
}

func (p *snapshotProcessor) Process(ctx context.Context, snapshot dto.Snapshot) (dto.ProcessingResult, error) {
	start := p.now()
	source := snapshot.SnapshotMetadata.Source

	ctx, span := p.tracer.Start(ctx, "snapshot.process")
	span.SetAttributes(
		attribute.String("snapshot.source", source),
		attribute.Int("snapshot.classrooms", len(snapshot.Classrooms)),
	)
	defer span.End()

	state := &runState{}

	// Transform first: a structurally inconsistent snapshot aborts the whole
	// run before anything is written.
	out, err := p.transformer.Transform(snapshot)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform_failed")
		state.addError("snapshot", "", err)
		result := p.finish(state, start, false, source, out.Teacher.Email)
		return result, err
	}

	teacherID := out.Teacher.ID

	if err := p.lock.Acquire(ctx, teacherID, snapshot.SnapshotMetadata.FetchedAt); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock_rejected")
		state.addError("snapshot", teacherID, err)
		result := p.finish(state, start, false, source, out.Teacher.Email)
		return result, err
	}
	defer p.lock.Release(ctx, teacherID)

	p.upsertTeacher(ctx, out.Teacher, state)

	classroomIDs := make([]string, 0, len(out.Classrooms))
	for _, classroom := range out.Classrooms {
		classroomIDs = append(classroomIDs, classroom.ID)
	}

	stored, ok := p.fetchStored(ctx, classroomIDs, state)
	if ok {
		latestByKey := p.reconcileEntities(ctx, out, stored, state)
		p.processGrades(ctx, out.GradeInputs, latestByKey, state)
	}

	p.recomputeAggregates(ctx, teacherID, classroomIDs, state)
	p.invalidateDashboards(ctx, teacherID)
	p.lock.Commit(ctx, teacherID, snapshot.SnapshotMetadata.FetchedAt)

	result := p.finish(state, start, true, source, out.Teacher.Email)
	span.SetAttributes(attribute.Int("snapshot.errors", len(result.Errors)))
	return result, nil
}

// storedState groups the currently persisted entities for the snapshot scope.
type storedState struct {
	classrooms  map[string]models.Classroom
	assignments map[string]models.Assignment
	enrollments map[string]models.Enrollment
	// latest submission rows keyed by logical (classroom,assignment,student).
	latest map[string]models.Submission
	// all stored enrollments, for archive-set computation.
	enrollmentRows []models.Enrollment
}

func submissionKey(classroomID, assignmentID, studentID string) string {
	return classroomID + "/" + assignmentID + "/" + studentID
}

func (p *snapshotProcessor) fetchStored(ctx context.Context, classroomIDs []string, state *runState) (storedState, bool) {
	stored := storedState{
		classrooms:  map[string]models.Classroom{},
		assignments: map[string]models.Assignment{},
		enrollments: map[string]models.Enrollment{},
		latest:      map[string]models.Submission{},
	}

	classrooms, err := p.classrooms.ListByIDs(ctx, classroomIDs)
	if err != nil {
		state.addError("classroom", "fetch", err)
		return stored, false
	}
	for _, classroom := range classrooms {
		stored.classrooms[classroom.ID] = classroom
	}

	assignments, err := p.assignments.ListByClassrooms(ctx, classroomIDs)
	if err != nil {
		state.addError("assignment", "fetch", err)
		return stored, false
	}
	for _, assignment := range assignments {
		stored.assignments[assignment.ID] = assignment
	}

	enrollments, err := p.enrollments.ListByClassrooms(ctx, classroomIDs)
	if err != nil {
		state.addError("enrollment", "fetch", err)
		return stored, false
	}
	stored.enrollmentRows = enrollments
	for _, enrollment := range enrollments {
		stored.enrollments[enrollment.ID] = enrollment
	}

	submissions, err := p.submissions.ListLatestByClassrooms(ctx, classroomIDs)
	if err != nil {
		state.addError("submission", "fetch", err)
		return stored, false
	}
	for _, submission := range submissions {
		stored.latest[submissionKey(submission.ClassroomID, submission.AssignmentID, submission.StudentID)] = submission
	}

	return stored, true
}

// reconcileEntities runs the merge classification and dispatches the batched
// writes. Entity types do not share mutable state, so their batches run
// concurrently. Returns the up-to-date latest submission row per logical key
// for the grading step.
func (p *snapshotProcessor) reconcileEntities(ctx context.Context, out transform.Output, stored storedState, state *runState) map[string]models.Submission {
	classroomSet := merge.Classify(out.Classrooms, stored.classrooms,
		func(c models.Classroom) string { return c.ID },
		func(incoming, existing models.Classroom) bool { return incoming.ContentEquals(existing) })

	assignmentSet := merge.Classify(out.Assignments, stored.assignments,
		func(a models.Assignment) string { return a.ID },
		func(incoming, existing models.Assignment) bool { return incoming.ContentEquals(existing) })

	enrollmentSet := merge.Classify(out.Enrollments, stored.enrollments,
		func(e models.Enrollment) string { return e.ID },
		func(incoming, existing models.Enrollment) bool { return incoming.ContentEquals(existing) })

	// Only active enrollments are candidates for archiving; rows already
	// removed by an earlier snapshot stay as they are.
	var activeIDs []string
	for _, enrollment := range stored.enrollmentRows {
		if enrollment.IsActive() {
			activeIDs = append(activeIDs, enrollment.ID)
		}
	}
	toArchive := merge.ArchiveSet(out.Enrollments, activeIDs, func(e models.Enrollment) string { return e.ID })

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		p.writeClassrooms(ctx, classroomSet, stored, state)
	}()
	go func() {
		defer wg.Done()
		p.writeAssignments(ctx, assignmentSet, stored, state)
	}()
	go func() {
		defer wg.Done()
		p.writeEnrollments(ctx, enrollmentSet, toArchive, stored, state)
	}()

	latestByKey := map[string]models.Submission{}
	var latestMu sync.Mutex
	go func() {
		defer wg.Done()
		p.writeSubmissions(ctx, out.Submissions, stored, state, func(key string, submission models.Submission) {
			latestMu.Lock()
			latestByKey[key] = submission
			latestMu.Unlock()
		})
	}()

	wg.Wait()
	return latestByKey
}

func (p *snapshotProcessor) writeClassrooms(ctx context.Context, set merge.Changeset[models.Classroom], stored storedState, state *runState) {
	if err := p.classrooms.BatchCreate(ctx, set.ToCreate); err != nil {
		for _, row := range set.ToCreate {
			if rowErr := p.classrooms.BatchCreate(ctx, []models.Classroom{row}); rowErr != nil {
				state.addError("classroom", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.ClassroomsCreated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.ClassroomsCreated += len(set.ToCreate) })
		observability.EntityWrites().WithLabelValues("classroom", "create").Add(float64(len(set.ToCreate)))
	}

	updates := make([]*models.Classroom, 0, len(set.ToUpdate))
	for _, incoming := range set.ToUpdate {
		existing := stored.classrooms[incoming.ID]
		existing.Name = incoming.Name
		existing.Section = incoming.Section
		existing.TeacherID = incoming.TeacherID
		row := existing
		updates = append(updates, &row)
	}
	if err := p.classrooms.BatchUpdate(ctx, updates); err != nil {
		for _, row := range updates {
			if rowErr := p.classrooms.BatchUpdate(ctx, []*models.Classroom{row}); rowErr != nil {
				state.addError("classroom", row.ID, rowErr)
			} else {
				state.update(func(s *dto.ProcessingStats) { s.ClassroomsUpdated++ })
			}
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.ClassroomsUpdated += len(updates) })
		observability.EntityWrites().WithLabelValues("classroom", "update").Add(float64(len(updates)))
	}
}

func (p *snapshotProcessor) writeAssignments(ctx context.Context, set merge.Changeset[models.Assignment], stored storedState, state *runState) {
	if err := p.assignments.BatchCreate(ctx, set.ToCreate); err != nil {
		for _, row := range set.ToCreate {
			if rowErr := p.assignments.BatchCreate(ctx, []models.Assignment{row}); rowErr != nil {
				state.addError("assignment", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.AssignmentsCreated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.AssignmentsCreated += len(set.ToCreate) })
		observability.EntityWrites().WithLabelValues("assignment", "create").Add(float64(len(set.ToCreate)))
	}

	updates := make([]*models.Assignment, 0, len(set.ToUpdate))
	for _, incoming := range set.ToUpdate {
		existing := stored.assignments[incoming.ID]
		existing.Title = incoming.Title
		existing.Description = incoming.Description
		existing.MaxScore = incoming.MaxScore
		existing.DueDate = incoming.DueDate
		row := existing
		updates = append(updates, &row)
	}
	if err := p.assignments.BatchUpdate(ctx, updates); err != nil {
		for _, row := range updates {
			if rowErr := p.assignments.BatchUpdate(ctx, []*models.Assignment{row}); rowErr != nil {
				state.addError("assignment", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.AssignmentsUpdated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.AssignmentsUpdated += len(updates) })
		observability.EntityWrites().WithLabelValues("assignment", "update").Add(float64(len(updates)))
	}
}

func (p *snapshotProcessor) writeEnrollments(ctx context.Context, set merge.Changeset[models.Enrollment], toArchive []string, stored storedState, state *runState) {
	if err := p.enrollments.BatchCreate(ctx, set.ToCreate); err != nil {
		for _, row := range set.ToCreate {
			if rowErr := p.enrollments.BatchCreate(ctx, []models.Enrollment{row}); rowErr != nil {
				state.addError("enrollment", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.EnrollmentsCreated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.EnrollmentsCreated += len(set.ToCreate) })
		observability.EntityWrites().WithLabelValues("enrollment", "create").Add(float64(len(set.ToCreate)))
	}

	updates := make([]*models.Enrollment, 0, len(set.ToUpdate))
	for _, incoming := range set.ToUpdate {
		existing := stored.enrollments[incoming.ID]
		existing.Email = incoming.Email
		existing.Name = incoming.Name
		existing.Status = incoming.Status
		row := existing
		updates = append(updates, &row)
	}
	if err := p.enrollments.BatchUpdate(ctx, updates); err != nil {
		for _, row := range updates {
			if rowErr := p.enrollments.BatchUpdate(ctx, []*models.Enrollment{row}); rowErr != nil {
				state.addError("enrollment", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.EnrollmentsUpdated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.EnrollmentsUpdated += len(updates) })
		observability.EntityWrites().WithLabelValues("enrollment", "update").Add(float64(len(updates)))
	}

	if len(toArchive) > 0 {
		if err := p.enrollments.ArchiveByIDs(ctx, toArchive); err != nil {
			state.addError("enrollment", "archive", err)
		} else {
			state.update(func(s *dto.ProcessingStats) { s.EnrollmentsArchived += len(toArchive) })
			observability.EntityWrites().WithLabelValues("enrollment", "archive").Add(float64(len(toArchive)))
		}
	}
}

// writeSubmissions creates first-seen submissions and versions re-submitted
// ones. Version-chain writes are sequential per chain; chains are independent
// of each other.
func (p *snapshotProcessor) writeSubmissions(ctx context.Context, incoming []models.Submission, stored storedState, state *runState, record func(key string, submission models.Submission)) {
	var toCreate []models.Submission
	for _, submission := range incoming {
		key := submissionKey(submission.ClassroomID, submission.AssignmentID, submission.StudentID)
		existing, found := stored.latest[key]
		if !found {
			toCreate = append(toCreate, submission)
			record(key, submission)
			continue
		}

		if !p.versioning.NeedsVersion(existing, submission) {
			record(key, existing)
			continue
		}

		next, err := p.versioning.CreateSubmissionVersion(ctx, existing, submission)
		if err != nil {
			state.addError("submission", existing.ID, err)
			record(key, existing)
			continue
		}
		record(key, next)
		state.update(func(s *dto.ProcessingStats) { s.SubmissionsVersioned++ })
		observability.EntityWrites().WithLabelValues("submission", "version").Inc()
	}

	if err := p.submissions.BatchCreate(ctx, toCreate); err != nil {
		for _, row := range toCreate {
			if rowErr := p.submissions.BatchCreate(ctx, []models.Submission{row}); rowErr != nil {
				state.addError("submission", row.ID, rowErr)
				continue
			}
			state.update(func(s *dto.ProcessingStats) { s.SubmissionsCreated++ })
		}
	} else {
		state.update(func(s *dto.ProcessingStats) { s.SubmissionsCreated += len(toCreate) })
		observability.EntityWrites().WithLabelValues("submission", "create").Add(float64(len(toCreate)))
	}
}

func (p *snapshotProcessor) processGrades(ctx context.Context, inputs []transform.GradeInput, latestByKey map[string]models.Submission, state *runState) {
	if len(inputs) == 0 {
		return
	}

	work := make([]GradeWork, 0, len(inputs))
	for _, input := range inputs {
		submission, found := latestByKey[submissionKey(input.ClassroomID, input.AssignmentID, input.StudentID)]
		if !found {
			state.addError("grade", input.SubmissionID, fmt.Errorf("no stored submission for grade input"))
			continue
		}
		work = append(work, GradeWork{Input: input, Submission: submission})
	}

	result, err := p.grades.BatchProcessGrades(ctx, work)
	if err != nil {
		state.addError("grade", "batch", err)
		return
	}

	for _, failure := range result.Failures {
		state.addError("grade", failure.SubmissionID, failure.Err)
	}
	for _, conflict := range result.Conflicts {
		observability.GradeConflicts().WithLabelValues(string(conflict.Resolution)).Inc()
	}

	state.update(func(s *dto.ProcessingStats) {
		s.GradesCreated += result.Created + result.Versioned
		s.GradesPreserved += result.Preserved
	})
	observability.EntityWrites().WithLabelValues("grade", "create").Add(float64(result.Created + result.Versioned))
}

func (p *snapshotProcessor) upsertTeacher(ctx context.Context, incoming models.Teacher, state *runState) {
	existing, err := p.teachers.GetByEmail(ctx, incoming.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			incoming.SetClassroomIDs(nil)
			if createErr := p.teachers.Create(ctx, &incoming); createErr != nil {
				state.addError("teacher", incoming.ID, createErr)
			}
			return
		}
		state.addError("teacher", incoming.ID, err)
		return
	}

	if existing.Name != incoming.Name {
		existing.Name = incoming.Name
		if updateErr := p.teachers.Update(ctx, &existing); updateErr != nil {
			state.addError("teacher", existing.ID, updateErr)
		}
	}
}

func (p *snapshotProcessor) recomputeAggregates(ctx context.Context, teacherID string, classroomIDs []string, state *runState) {
	if err := p.counters.SyncTeacher(ctx, teacherID); err != nil {
		state.addError("teacher", teacherID, err)
	}
	for _, classroomID := range classroomIDs {
		if err := p.counters.SyncClassroom(ctx, classroomID); err != nil {
			state.addError("classroom", classroomID, err)
		}
		if err := p.counters.SyncAssignments(ctx, classroomID); err != nil {
			state.addError("assignment", classroomID, err)
		}
	}
}

// invalidateDashboards drops cached dashboard aggregates so readers pick up
// the reconciled state on their next request.
func (p *snapshotProcessor) invalidateDashboards(ctx context.Context, teacherID string) {
	if p.cache == nil {
		return
	}
	key := fmt.Sprintf("dashboard:teacher:%s", teacherID)
	if err := p.cache.Del(ctx, key).Err(); err != nil {
		p.logger.Warn().Err(err).Str("teacher_id", teacherID).Msg("failed to invalidate dashboard cache")
	}
}

func (p *snapshotProcessor) finish(state *runState, start time.Time, success bool, source, teacherEmail string) dto.ProcessingResult {
	duration := p.now().Sub(start)

	state.mu.Lock()
	result := dto.ProcessingResult{
		Success:          success,
		Stats:            state.stats,
		Errors:           state.errors,
		ProcessingTimeMs: duration.Milliseconds(),
	}
	state.mu.Unlock()
	if result.Errors == nil {
		result.Errors = []dto.ProcessingError{}
	}

	status := "success"
	if !result.Success {
		status = "failed"
	}
	observability.ImportRuns().WithLabelValues(source, status).Inc()
	observability.ImportDuration().Observe(duration.Seconds())

	logEvent := p.logger.Info()
	if !result.Success {
		logEvent = p.logger.Error()
	}
	logEvent.
		Str("source", source).
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("import run finished")

	if success && p.events != nil {
		p.events.PublishCompleted(ImportEvent{
			TeacherEmail: teacherEmail,
			Source:       source,
			Result:       result,
		})
	}

	return result
}

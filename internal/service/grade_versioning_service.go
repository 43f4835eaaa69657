package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/identity"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/repository"
	"github.com/noah-isme/classync-go-api/internal/transform"
)

// ErrGradeNotFound indicates the grade was not located.
var ErrGradeNotFound = errors.New("grade not found")

// ErrGradeVersionNotFound indicates the requested historical version does not exist.
var ErrGradeVersionNotFound = errors.New("grade version not found")

// GradeResolution is the outcome of conflict resolution between a stored
// grade and an incoming grade input.
type GradeResolution string

const (
	// ResolutionKeepExisting preserves the stored grade untouched.
	ResolutionKeepExisting GradeResolution = "keep_existing"
	// ResolutionCreateVersion supersedes the stored grade with a new version.
	ResolutionCreateVersion GradeResolution = "create_version"
)

// GradeConflict records one conflict-resolution decision, including
// keep_existing outcomes, for audit logging.
type GradeConflict struct {
	SubmissionID string          `json:"submission_id"`
	GradeID      string          `json:"grade_id"`
	Resolution   GradeResolution `json:"resolution"`
	Reason       string          `json:"reason"`
}

// GradeWork pairs one incoming grade input with the stored submission row it
// targets.
type GradeWork struct {
	Input      transform.GradeInput
	Submission models.Submission
}

// GradeFailure records a per-submission grading failure. The batch continues
// past failures; callers fold these into the run's error list.
type GradeFailure struct {
	SubmissionID string
	Err          error
}

// BatchGradeResult aggregates the outcome of one batch grading pass.
type BatchGradeResult struct {
	Created   int
	Versioned int
	Preserved int
	Conflicts []GradeConflict
	Failures  []GradeFailure
}

// GradeVersioningService resolves conflicts between stored and incoming
// grades and manages the grade version chain. Grade content is never
// mutated in place: every change flows through CreateGradeVersion.
type GradeVersioningService interface {
	GetLatestGrade(ctx context.Context, submissionID string) (*models.Grade, error)
	ResolveConflict(existing models.Grade, incoming transform.GradeInput) (GradeResolution, string)
	CreateGradeVersion(ctx context.Context, input transform.GradeInput, submission models.Submission, reason string) (models.Grade, error)
	BatchProcessGrades(ctx context.Context, work []GradeWork) (BatchGradeResult, error)
	LockGrade(ctx context.Context, gradeID, reason string) error
	UnlockGrade(ctx context.Context, gradeID string) error
	RollbackGrade(ctx context.Context, submissionID string, targetVersion int, reason string) (models.Grade, error)
	ListHistory(ctx context.Context, submissionID string) ([]models.GradeHistory, error)
}

type gradeVersioningService struct {
	grades      repository.GradeRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradeVersioningService constructs the grade versioning service.
func NewGradeVersioningService(grades repository.GradeRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) GradeVersioningService {
	return &gradeVersioningService{
		grades:      grades,
		submissions: submissions,
		logger:      logger.With().Str("component", "grade_versioning_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/classync-go-api/internal/service/grade_versioning"),
	}
}

func (s *gradeVersioningService) GetLatestGrade(ctx context.Context, submissionID string) (*models.Grade, error) {
	grade, err := s.grades.GetLatestBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grade, nil
}

// ResolveConflict applies the deterministic rule order, first match wins:
// locked grades always survive, manual grading outranks the AI engine,
// identical content is a no-op, anything else produces a new version.
func (s *gradeVersioningService) ResolveConflict(existing models.Grade, incoming transform.GradeInput) (GradeResolution, string) {
	if existing.IsLocked {
		return ResolutionKeepExisting, "grade is locked"
	}
	if existing.GradedBy == models.GradeSourceManual && incoming.GradedBy == models.GradeSourceAI {
		return ResolutionKeepExisting, "manual precedence"
	}
	if existing.ContentEquals(incoming.Score, incoming.MaxScore, incoming.Feedback) {
		return ResolutionKeepExisting, "no-op, identical content"
	}
	return ResolutionCreateVersion, "content changed"
}

func (s *gradeVersioningService) CreateGradeVersion(ctx context.Context, input transform.GradeInput, submission models.Submission, reason string) (models.Grade, error) {
	prior, err := s.GetLatestGrade(ctx, submission.ID)
	if err != nil {
		return models.Grade{}, err
	}

	version := 1
	var previousID *string
	if prior != nil {
		version = prior.Version + 1
		id := prior.ID
		previousID = &id
	}

	next := models.Grade{
		ID:              identity.GradeID(submission.ID, version),
		SubmissionID:    submission.ID,
		Score:           input.Score,
		MaxScore:        input.MaxScore,
		Percentage:      models.Percent(input.Score, input.MaxScore),
		Feedback:        input.Feedback,
		GradedBy:        input.GradedBy,
		Version:         version,
		IsLatest:        true,
		PreviousGradeID: previousID,
	}

	if prior == nil {
		if err := s.grades.Create(ctx, &next); err != nil {
			return models.Grade{}, err
		}
		return next, nil
	}

	if err := s.grades.CreateVersion(ctx, prior, next, reason); err != nil {
		return models.Grade{}, err
	}
	return next, nil
}

func (s *gradeVersioningService) BatchProcessGrades(ctx context.Context, work []GradeWork) (BatchGradeResult, error) {
	ctx, span := s.tracer.Start(ctx, "grades.batch_process")
	span.SetAttributes(attribute.Int("grades.incoming", len(work)))
	defer span.End()

	var result BatchGradeResult
	for _, item := range work {
		existing, err := s.GetLatestGrade(ctx, item.Submission.ID)
		if err != nil {
			span.RecordError(err)
			result.Failures = append(result.Failures, GradeFailure{SubmissionID: item.Submission.ID, Err: err})
			continue
		}

		if existing == nil {
			if _, err := s.CreateGradeVersion(ctx, item.Input, item.Submission, "initial grade"); err != nil {
				span.RecordError(err)
				result.Failures = append(result.Failures, GradeFailure{SubmissionID: item.Submission.ID, Err: err})
				continue
			}
			result.Created++
			continue
		}

		resolution, reason := s.ResolveConflict(*existing, item.Input)
		result.Conflicts = append(result.Conflicts, GradeConflict{
			SubmissionID: item.Submission.ID,
			GradeID:      existing.ID,
			Resolution:   resolution,
			Reason:       reason,
		})

		if resolution == ResolutionKeepExisting {
			result.Preserved++
			s.logger.Debug().
				Str("submission_id", item.Submission.ID).
				Str("reason", reason).
				Msg("existing grade preserved")
			continue
		}

		if _, err := s.CreateGradeVersion(ctx, item.Input, item.Submission, reason); err != nil {
			span.RecordError(err)
			result.Failures = append(result.Failures, GradeFailure{SubmissionID: item.Submission.ID, Err: err})
			continue
		}
		result.Versioned++
	}

	span.SetAttributes(
		attribute.Int("grades.created", result.Created),
		attribute.Int("grades.versioned", result.Versioned),
		attribute.Int("grades.preserved", result.Preserved),
	)
	return result, nil
}

// LockGrade protects a grade from any future automated overwrite. Locking is
// the only mechanism that makes the first conflict rule trigger on imports.
func (s *gradeVersioningService) LockGrade(ctx context.Context, gradeID, reason string) error {
	if err := s.grades.SetLock(ctx, gradeID, true, reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradeNotFound
		}
		return err
	}
	s.logger.Info().Str("grade_id", gradeID).Str("reason", reason).Msg("grade locked")
	return nil
}

func (s *gradeVersioningService) UnlockGrade(ctx context.Context, gradeID string) error {
	if err := s.grades.SetLock(ctx, gradeID, false, ""); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradeNotFound
		}
		return err
	}
	s.logger.Info().Str("grade_id", gradeID).Msg("grade unlocked")
	return nil
}

// RollbackGrade re-applies a historical version's content as a brand-new
// locked version. The old row keeps its identity; nothing is resurrected or
// mutated.
func (s *gradeVersioningService) RollbackGrade(ctx context.Context, submissionID string, targetVersion int, reason string) (models.Grade, error) {
	ctx, span := s.tracer.Start(ctx, "grades.rollback")
	span.SetAttributes(
		attribute.String("grades.submission_id", submissionID),
		attribute.Int("grades.target_version", targetVersion),
	)
	defer span.End()

	target, err := s.findHistoricalVersion(ctx, submissionID, targetVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target_version_not_found")
		return models.Grade{}, err
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Grade{}, ErrSubmissionNotFound
		}
		return models.Grade{}, err
	}

	input := transform.GradeInput{
		SubmissionID: submissionID,
		Score:        target.Score,
		MaxScore:     target.MaxScore,
		Feedback:     target.Feedback,
		GradedBy:     target.GradedBy,
	}
	auditReason := fmt.Sprintf("rollback to version %d: %s", targetVersion, reason)

	next, err := s.CreateGradeVersion(ctx, input, submission, auditReason)
	if err != nil {
		span.RecordError(err)
		return models.Grade{}, err
	}

	if err := s.grades.SetLock(ctx, next.ID, true, auditReason); err != nil {
		span.RecordError(err)
		return models.Grade{}, err
	}
	next.IsLocked = true
	next.LockedReason = auditReason

	s.logger.Info().
		Str("submission_id", submissionID).
		Int("target_version", targetVersion).
		Int("new_version", next.Version).
		Msg("grade rolled back")
	return next, nil
}

func (s *gradeVersioningService) ListHistory(ctx context.Context, submissionID string) ([]models.GradeHistory, error) {
	return s.grades.ListHistory(ctx, submissionID)
}

// findHistoricalVersion looks up the target version in the history archive
// first, falling back to the current latest row (the latest version has not
// been superseded yet, so it only exists in the live table).
func (s *gradeVersioningService) findHistoricalVersion(ctx context.Context, submissionID string, version int) (models.GradeHistory, error) {
	history, err := s.grades.ListHistory(ctx, submissionID)
	if err != nil {
		return models.GradeHistory{}, err
	}
	for _, entry := range history {
		if entry.Version == version {
			return entry, nil
		}
	}

	latest, err := s.GetLatestGrade(ctx, submissionID)
	if err != nil {
		return models.GradeHistory{}, err
	}
	if latest != nil && latest.Version == version {
		return models.GradeHistory{
			SubmissionID: latest.SubmissionID,
			GradeID:      latest.ID,
			Version:      latest.Version,
			Score:        latest.Score,
			MaxScore:     latest.MaxScore,
			Feedback:     latest.Feedback,
			GradedBy:     latest.GradedBy,
		}, nil
	}
	return models.GradeHistory{}, ErrGradeVersionNotFound
}

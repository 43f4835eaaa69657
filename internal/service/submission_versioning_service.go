package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/classync-go-api/internal/identity"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/repository"
)

// ErrSubmissionNotFound indicates the submission was not located.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionVersioningService manages the submission version chain. Unlike
// grades there is no locking concept: any content difference produces a new
// version, and identical resubmissions are no-ops.
type SubmissionVersioningService interface {
	CreateSubmissionVersion(ctx context.Context, existing models.Submission, updates models.Submission) (models.Submission, error)
	NeedsVersion(existing models.Submission, incoming models.Submission) bool
}

type submissionVersioningService struct {
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewSubmissionVersioningService constructs the submission versioning service.
func NewSubmissionVersioningService(submissions repository.SubmissionRepository, logger zerolog.Logger) SubmissionVersioningService {
	return &submissionVersioningService{
		submissions: submissions,
		logger:      logger.With().Str("component", "submission_versioning_service").Logger(),
	}
}

// NeedsVersion reports whether incoming content differs from the stored
// latest version.
func (s *submissionVersioningService) NeedsVersion(existing models.Submission, incoming models.Submission) bool {
	return !existing.ContentEquals(incoming)
}

// CreateSubmissionVersion retires the existing latest row and inserts the
// successor in one transaction. The new row id derives from the existing id
// plus a version suffix, and PreviousVersionID back-references the retired
// row without owning it.
func (s *submissionVersioningService) CreateSubmissionVersion(ctx context.Context, existing models.Submission, updates models.Submission) (models.Submission, error) {
	newVersion := existing.Version + 1
	previousID := existing.ID

	next := models.Submission{
		ID:                identity.SubmissionVersionID(baseSubmissionID(existing), newVersion),
		ExternalID:        updates.ExternalID,
		ClassroomID:       existing.ClassroomID,
		AssignmentID:      existing.AssignmentID,
		StudentID:         existing.StudentID,
		State:             updates.State,
		Late:              updates.Late,
		SubmittedAt:       updates.SubmittedAt,
		DocURL:            updates.DocURL,
		Status:            models.SubmissionStatusUngraded,
		Version:           newVersion,
		IsLatest:          true,
		PreviousVersionID: &previousID,
	}

	if err := s.submissions.CreateVersion(ctx, existing, next); err != nil {
		return models.Submission{}, err
	}

	s.logger.Debug().
		Str("submission_id", next.ID).
		Int("version", newVersion).
		Msg("submission version created")
	return next, nil
}

// baseSubmissionID recovers the version-1 id a chain was rooted at, so
// derived ids stay flat (base_v2, base_v3) instead of nesting suffixes.
func baseSubmissionID(submission models.Submission) string {
	if submission.Version == 1 {
		return submission.ID
	}
	if idx := lastVersionSuffix(submission.ID); idx > 0 {
		return submission.ID[:idx]
	}
	return submission.ID
}

func lastVersionSuffix(id string) int {
	for i := len(id) - 1; i > 0; i-- {
		if id[i] == '_' {
			if i+1 < len(id) && id[i+1] == 'v' {
				return i
			}
			return -1
		}
	}
	return -1
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/repository"
	"github.com/noah-isme/classync-go-api/internal/transform"
)

func newGradeService(t *testing.T) (GradeVersioningService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	grades := repository.NewGradeRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	return NewGradeVersioningService(grades, submissions, testLogger()), db
}

func seedGradedSubmission(t *testing.T, db *gorm.DB) models.Submission {
	t.Helper()
	submission := models.Submission{
		ID:          "sub-1",
		ClassroomID: "c-1", AssignmentID: "a-1", StudentID: "s-1",
		Status: models.SubmissionStatusUngraded, Version: 1, IsLatest: true,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func aiInput(score float64, feedback string) transform.GradeInput {
	return transform.GradeInput{
		SubmissionID: "sub-1",
		Score:        score,
		MaxScore:     100,
		Feedback:     feedback,
		GradedBy:     models.GradeSourceAI,
	}
}

func TestResolveConflictRuleOrder(t *testing.T) {
	svc, _ := newGradeService(t)

	locked := models.Grade{IsLocked: true, GradedBy: models.GradeSourceAI, Score: 50, MaxScore: 100}
	resolution, reason := svc.ResolveConflict(locked, aiInput(90, "better"))
	require.Equal(t, ResolutionKeepExisting, resolution)
	require.Equal(t, "grade is locked", reason)

	manual := models.Grade{GradedBy: models.GradeSourceManual, Score: 50, MaxScore: 100}
	resolution, reason = svc.ResolveConflict(manual, aiInput(90, "better"))
	require.Equal(t, ResolutionKeepExisting, resolution)
	require.Equal(t, "manual precedence", reason)

	identical := models.Grade{GradedBy: models.GradeSourceAI, Score: 90, MaxScore: 100, Feedback: "same"}
	resolution, reason = svc.ResolveConflict(identical, aiInput(90, "same"))
	require.Equal(t, ResolutionKeepExisting, resolution)
	require.Equal(t, "no-op, identical content", reason)

	stale := models.Grade{GradedBy: models.GradeSourceAI, Score: 50, MaxScore: 100}
	resolution, reason = svc.ResolveConflict(stale, aiInput(90, "better"))
	require.Equal(t, ResolutionCreateVersion, resolution)
	require.Equal(t, "content changed", reason)

	// A manual regrade may still supersede a manual grade.
	manualIncoming := transform.GradeInput{SubmissionID: "sub-1", Score: 95, MaxScore: 100, GradedBy: models.GradeSourceManual}
	resolution, _ = svc.ResolveConflict(manual, manualIncoming)
	require.Equal(t, ResolutionCreateVersion, resolution)
}

func TestBatchProcessGradesCreatesAndVersions(t *testing.T) {
	svc, db := newGradeService(t)
	submission := seedGradedSubmission(t, db)

	// First pass: no stored grade, version 1 is created.
	result, err := svc.BatchProcessGrades(context.Background(), []GradeWork{
		{Input: aiInput(70, "first pass"), Submission: submission},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)
	require.Empty(t, result.Failures)

	first, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.Equal(t, 1, first.Version)
	require.Equal(t, 70, first.Percentage)

	// Second pass with changed content supersedes it.
	result, err = svc.BatchProcessGrades(context.Background(), []GradeWork{
		{Input: aiInput(85, "second pass"), Submission: submission},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Versioned)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, ResolutionCreateVersion, result.Conflicts[0].Resolution)

	second, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)
	require.NotNil(t, second.PreviousGradeID)
	require.Equal(t, first.ID, *second.PreviousGradeID)

	history, err := svc.ListHistory(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, first.ID, history[0].GradeID)

	// Third pass with identical content is preserved, no new version.
	result, err = svc.BatchProcessGrades(context.Background(), []GradeWork{
		{Input: aiInput(85, "second pass"), Submission: submission},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Preserved)
	require.Equal(t, 0, result.Versioned)

	unchanged, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, unchanged.ID)
}

func TestLockedGradeSurvivesImport(t *testing.T) {
	svc, db := newGradeService(t)
	submission := seedGradedSubmission(t, db)

	_, err := svc.CreateGradeVersion(context.Background(), aiInput(60, "draft"), submission, "initial grade")
	require.NoError(t, err)
	grade, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)

	require.NoError(t, svc.LockGrade(context.Background(), grade.ID, "reviewed by teacher"))

	result, err := svc.BatchProcessGrades(context.Background(), []GradeWork{
		{Input: aiInput(95, "regraded"), Submission: submission},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Preserved)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, "grade is locked", result.Conflicts[0].Reason)

	latest, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, grade.ID, latest.ID)
	require.Equal(t, float64(60), latest.Score)

	require.NoError(t, svc.UnlockGrade(context.Background(), grade.ID))
	require.ErrorIs(t, svc.LockGrade(context.Background(), "missing", "x"), ErrGradeNotFound)
}

func TestRollbackGradeCreatesLockedVersion(t *testing.T) {
	svc, db := newGradeService(t)
	submission := seedGradedSubmission(t, db)

	_, err := svc.CreateGradeVersion(context.Background(), aiInput(60, "v1"), submission, "initial grade")
	require.NoError(t, err)
	_, err = svc.CreateGradeVersion(context.Background(), aiInput(80, "v2"), submission, "content changed")
	require.NoError(t, err)

	rolled, err := svc.RollbackGrade(context.Background(), submission.ID, 1, "teacher request")
	require.NoError(t, err)
	require.Equal(t, 3, rolled.Version)
	require.Equal(t, float64(60), rolled.Score)
	require.Equal(t, "v1", rolled.Feedback)
	require.True(t, rolled.IsLocked)

	latest, err := svc.GetLatestGrade(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, rolled.ID, latest.ID)

	// Both superseded versions are archived.
	history, err := svc.ListHistory(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = svc.RollbackGrade(context.Background(), submission.ID, 99, "no such version")
	require.ErrorIs(t, err, ErrGradeVersionNotFound)

	_, err = svc.RollbackGrade(context.Background(), "missing", 1, "no such submission")
	require.ErrorIs(t, err, ErrGradeVersionNotFound)
}

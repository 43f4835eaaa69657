package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/classync-go-api/internal/models"
)

func seedSubmission(t *testing.T, db *gorm.DB, id string) models.Submission {
	t.Helper()
	submission := models.Submission{
		ID:           id,
		ClassroomID:  "c-1",
		AssignmentID: "a-1",
		StudentID:    "s-1",
		Status:       models.SubmissionStatusUngraded,
		Version:      1,
		IsLatest:     true,
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func TestGradeRepositoryCreateMarksSubmissionGraded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeRepository(db)
	submission := seedSubmission(t, db, "sub-1")

	grade := models.Grade{
		ID:           "g-1",
		SubmissionID: submission.ID,
		Score:        80,
		MaxScore:     100,
		Percentage:   80,
		GradedBy:     models.GradeSourceAI,
		Version:      1,
		IsLatest:     true,
	}
	require.NoError(t, repo.Create(context.Background(), &grade))

	var stored models.Submission
	require.NoError(t, db.First(&stored, "id = ?", submission.ID).Error)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.NotNil(t, stored.LatestGradeID)
	require.Equal(t, "g-1", *stored.LatestGradeID)
}

func TestGradeRepositoryCreateVersionChainInvariant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeRepository(db)
	submission := seedSubmission(t, db, "sub-1")

	prior := models.Grade{
		ID: "g-1", SubmissionID: submission.ID,
		Score: 70, MaxScore: 100, Percentage: 70,
		GradedBy: models.GradeSourceAI, Version: 1, IsLatest: true,
	}
	require.NoError(t, repo.Create(context.Background(), &prior))

	priorID := prior.ID
	next := models.Grade{
		ID: "g-2", SubmissionID: submission.ID,
		Score: 85, MaxScore: 100, Percentage: 85,
		GradedBy: models.GradeSourceManual, Version: 2, IsLatest: true,
		PreviousGradeID: &priorID,
	}
	require.NoError(t, repo.CreateVersion(context.Background(), &prior, next, "content changed"))

	// Exactly one latest row, and it is the new version.
	latest, err := repo.GetLatestBySubmission(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, "g-2", latest.ID)
	require.Equal(t, 2, latest.Version)

	var latestCount int64
	require.NoError(t, db.Model(&models.Grade{}).
		Where("submission_id = ? AND is_latest = ?", submission.ID, true).
		Count(&latestCount).Error)
	require.Equal(t, int64(1), latestCount)

	// The superseded version is archived, not deleted.
	var retired models.Grade
	require.NoError(t, db.First(&retired, "id = ?", "g-1").Error)
	require.False(t, retired.IsLatest)

	history, err := repo.ListHistory(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "g-1", history[0].GradeID)
	require.Equal(t, "content changed", history[0].SupersededReason)
	require.NotEmpty(t, history[0].Payload)
}

func TestGradeRepositorySetLock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGradeRepository(db)
	submission := seedSubmission(t, db, "sub-1")

	grade := models.Grade{
		ID: "g-1", SubmissionID: submission.ID,
		Score: 90, MaxScore: 100, GradedBy: models.GradeSourceManual,
		Version: 1, IsLatest: true,
	}
	require.NoError(t, repo.Create(context.Background(), &grade))

	require.NoError(t, repo.SetLock(context.Background(), "g-1", true, "final mark"))
	stored, err := repo.GetByID(context.Background(), "g-1")
	require.NoError(t, err)
	require.True(t, stored.IsLocked)
	require.Equal(t, "final mark", stored.LockedReason)

	require.NoError(t, repo.SetLock(context.Background(), "g-1", false, ""))
	stored, err = repo.GetByID(context.Background(), "g-1")
	require.NoError(t, err)
	require.False(t, stored.IsLocked)

	err = repo.SetLock(context.Background(), "missing", true, "x")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

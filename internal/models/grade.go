package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

const (
	// GradeSourceAI marks a grade produced by the automated grading engine.
	GradeSourceAI = "ai"
	// GradeSourceManual marks a grade entered by a human teacher.
	GradeSourceManual = "manual"
)

// Grade is one version in the grade chain of a submission. Grades are never
// mutated in place: any content change inserts a new version and retires the
// prior one into GradeHistory.
type Grade struct {
	ID              string    `gorm:"primaryKey;size:80" json:"id"`
	SubmissionID    string    `gorm:"size:80;index;not null" json:"submission_id"`
	Score           float64   `json:"score"`
	MaxScore        float64   `json:"max_score"`
	Percentage      int       `json:"percentage"`
	Feedback        string    `gorm:"type:text" json:"feedback"`
	GradedBy        string    `gorm:"size:16;not null" json:"graded_by"`
	Version         int       `gorm:"not null;default:1" json:"version"`
	IsLatest        bool      `gorm:"index;not null" json:"is_latest"`
	PreviousGradeID *string   `gorm:"size:80" json:"previous_grade_id"`
	IsLocked        bool      `json:"is_locked"`
	LockedReason    string    `gorm:"size:255" json:"locked_reason"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ContentEquals reports whether score, max score, and feedback all match.
func (g Grade) ContentEquals(score, maxScore float64, feedback string) bool {
	return g.Score == score && g.MaxScore == maxScore && g.Feedback == feedback
}

// Percent computes the rounded percentage for a score pair. A non-positive
// max score yields zero rather than a division error.
func Percent(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(score / maxScore * 100))
}

// GradeHistory archives a superseded grade version for audit retrieval,
// keyed by submission. Rows are append-only.
type GradeHistory struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SubmissionID     string         `gorm:"size:80;index;not null" json:"submission_id"`
	GradeID          string         `gorm:"size:80;not null" json:"grade_id"`
	Version          int            `gorm:"not null" json:"version"`
	Score            float64        `json:"score"`
	MaxScore         float64        `json:"max_score"`
	Feedback         string         `gorm:"type:text" json:"feedback"`
	GradedBy         string         `gorm:"size:16" json:"graded_by"`
	SupersededReason string         `gorm:"size:255" json:"superseded_reason"`
	Payload          datatypes.JSON `json:"payload"`
	ArchivedAt       time.Time      `json:"archived_at"`
}

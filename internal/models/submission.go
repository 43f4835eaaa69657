package models

import "time"

const (
	// SubmissionStatusUngraded indicates no grade has been attached yet.
	SubmissionStatusUngraded = "ungraded"
	// SubmissionStatusGraded indicates the submission carries a latest grade.
	SubmissionStatusGraded = "graded"
)

// Submission is one version in the version chain for a logical
// (classroom, assignment, student) triple. Exactly one row per triple
// has IsLatest set, and that row carries the highest Version.
type Submission struct {
	ID                string     `gorm:"primaryKey;size:80" json:"id"`
	ExternalID        string     `gorm:"size:128;index" json:"external_id"`
	ClassroomID       string     `gorm:"size:64;index;not null" json:"classroom_id"`
	AssignmentID      string     `gorm:"size:64;index;not null" json:"assignment_id"`
	StudentID         string     `gorm:"size:64;index;not null" json:"student_id"`
	State             string     `gorm:"size:32" json:"state"`
	Late              bool       `json:"late"`
	SubmittedAt       *time.Time `json:"submitted_at"`
	DocURL            string     `gorm:"size:512" json:"doc_url"`
	Status            string     `gorm:"size:32;not null" json:"status"`
	LatestGradeID     *string    `gorm:"size:80" json:"latest_grade_id"`
	Version           int        `gorm:"not null;default:1" json:"version"`
	IsLatest          bool       `gorm:"index;not null" json:"is_latest"`
	PreviousVersionID *string    `gorm:"size:80" json:"previous_version_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsGraded reports whether the submission carries a grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// ContentEquals reports whether the student-visible content of two versions
// matches. Version bookkeeping, grading status, and timestamps are ignored.
func (s Submission) ContentEquals(other Submission) bool {
	if s.State != other.State || s.Late != other.Late || s.DocURL != other.DocURL {
		return false
	}
	if (s.SubmittedAt == nil) != (other.SubmittedAt == nil) {
		return false
	}
	return s.SubmittedAt == nil || s.SubmittedAt.Equal(*other.SubmittedAt)
}

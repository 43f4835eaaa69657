package models

import "time"

// Assignment belongs to exactly one classroom. Its external identity is
// scoped within that classroom; the submission counters are denormalized
// aggregates recomputed after each import.
type Assignment struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	ExternalID      string     `gorm:"size:128;index;not null" json:"external_id"`
	ClassroomID     string     `gorm:"size:64;index;not null" json:"classroom_id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	MaxScore        float64    `json:"max_score"`
	DueDate         *time.Time `json:"due_date"`
	SubmissionCount int        `json:"submission_count"`
	GradedCount     int        `json:"graded_count"`
	PendingCount    int        `json:"pending_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsPastDue returns true when the assignment deadline has already passed.
func (a Assignment) IsPastDue(reference time.Time) bool {
	return a.DueDate != nil && reference.After(*a.DueDate)
}

// ContentEquals reports whether the snapshot-sourced fields match, ignoring
// identifiers, derived counters, and timestamps.
func (a Assignment) ContentEquals(other Assignment) bool {
	if a.Title != other.Title || a.Description != other.Description || a.MaxScore != other.MaxScore {
		return false
	}
	if (a.DueDate == nil) != (other.DueDate == nil) {
		return false
	}
	return a.DueDate == nil || a.DueDate.Equal(*other.DueDate)
}

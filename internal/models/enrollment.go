package models

import "time"

const (
	// EnrollmentStatusActive marks a student currently present in the classroom roster.
	EnrollmentStatusActive = "active"
	// EnrollmentStatusRemoved marks a student absent from a later snapshot.
	// Removal is a status transition, never a physical delete.
	EnrollmentStatusRemoved = "removed"
)

// Enrollment records a student's participation in one classroom. Its
// identity is derived from (classroom, student email) so repeat imports
// always address the same row.
type Enrollment struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	ClassroomID string    `gorm:"size:64;index;not null" json:"classroom_id"`
	StudentID   string    `gorm:"size:64;index;not null" json:"student_id"`
	Email       string    `gorm:"size:255;not null" json:"email"`
	Name        string    `gorm:"size:255" json:"name"`
	Status      string    `gorm:"size:32;not null" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsActive reports whether the student is still part of the roster.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentStatusActive
}

// ContentEquals reports whether the snapshot-sourced fields match. Status is
// included so a re-appearing student flips a removed enrollment back to active.
func (e Enrollment) ContentEquals(other Enrollment) bool {
	return e.Email == other.Email && e.Name == other.Name && e.Status == other.Status
}

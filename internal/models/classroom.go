package models

import "time"

// Classroom mirrors one external classroom for a single teacher.
// The counters are denormalized aggregates recomputed from child
// entities at the end of each import run.
type Classroom struct {
	ID                  string    `gorm:"primaryKey;size:64" json:"id"`
	ExternalID          string    `gorm:"size:128;index;not null" json:"external_id"`
	TeacherID           string    `gorm:"size:64;index;not null" json:"teacher_id"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	Section             string    `gorm:"size:255" json:"section"`
	StudentCount        int       `json:"student_count"`
	AssignmentCount     int       `json:"assignment_count"`
	ActiveSubmissions   int       `json:"active_submissions"`
	UngradedSubmissions int       `json:"ungraded_submissions"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// ContentEquals reports whether the snapshot-sourced fields match, ignoring
// identifiers, derived counters, and timestamps.
func (c Classroom) ContentEquals(other Classroom) bool {
	return c.Name == other.Name && c.Section == other.Section && c.TeacherID == other.TeacherID
}

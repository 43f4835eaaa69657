package dto

import "time"

// Snapshot source identifiers accepted from the trigger layer.
const (
	SnapshotSourceMock     = "mock"
	SnapshotSourceExternal = "external-classroom-system"
	SnapshotSourceInternal = "internal-api"
)

// Snapshot is one complete point-in-time export of a teacher's classrooms
// from the external system of record. Schema validation happens at the HTTP
// boundary; by the time a Snapshot reaches the engine it is well-typed.
type Snapshot struct {
	Teacher          SnapshotTeacher     `json:"teacher" validate:"required"`
	Classrooms       []SnapshotClassroom `json:"classrooms" validate:"dive"`
	GlobalStats      SnapshotGlobalStats `json:"globalStats"`
	SnapshotMetadata SnapshotMetadata    `json:"snapshotMetadata" validate:"required"`
}

// SnapshotTeacher identifies the owning teacher account.
type SnapshotTeacher struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required"`
}

// SnapshotClassroom is one denormalized classroom with nested children.
type SnapshotClassroom struct {
	ID           string               `json:"id" validate:"required"`
	Name         string               `json:"name" validate:"required"`
	Section      string               `json:"section"`
	StudentCount int                  `json:"studentCount"`
	Assignments  []SnapshotAssignment `json:"assignments" validate:"dive"`
	Students     []SnapshotStudent    `json:"students" validate:"dive"`
	Submissions  []SnapshotSubmission `json:"submissions" validate:"dive"`
}

// SnapshotAssignment is a classroom-scoped assignment definition.
type SnapshotAssignment struct {
	ID          string     `json:"id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	MaxScore    float64    `json:"maxScore"`
	DueDate     *time.Time `json:"dueDate"`
}

// SnapshotStudent is one roster entry.
type SnapshotStudent struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// SnapshotSubmission is one student's work for one assignment, optionally
// carrying a grade produced upstream (teacher entry or the AI grading engine).
type SnapshotSubmission struct {
	ID           string         `json:"id"`
	AssignmentID string         `json:"assignmentId" validate:"required"`
	StudentEmail string         `json:"studentEmail" validate:"required,email"`
	StudentName  string         `json:"studentName"`
	State        string         `json:"state"`
	Late         bool           `json:"late"`
	SubmittedAt  *time.Time     `json:"submittedAt"`
	DocURL       string         `json:"docUrl"`
	Grade        *SnapshotGrade `json:"grade"`
}

// SnapshotGrade is the grade payload attached to a snapshot submission.
type SnapshotGrade struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
	Feedback string  `json:"feedback"`
	GradedBy string  `json:"gradedBy" validate:"omitempty,oneof=ai manual"`
}

// SnapshotGlobalStats is informational only; every aggregate it carries is
// recomputed internally and never trusted.
type SnapshotGlobalStats struct {
	TotalClassrooms  int `json:"totalClassrooms"`
	TotalStudents    int `json:"totalStudents"`
	TotalAssignments int `json:"totalAssignments"`
	TotalSubmissions int `json:"totalSubmissions"`
}

// SnapshotMetadata describes snapshot provenance and freshness.
type SnapshotMetadata struct {
	FetchedAt time.Time  `json:"fetchedAt" validate:"required"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Source    string     `json:"source" validate:"required,oneof=mock external-classroom-system internal-api"`
	Version   string     `json:"version"`
}

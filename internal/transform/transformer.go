// Package transform converts a validated snapshot into normalized entity
// inputs. The transformer is pure: it never touches storage, and the same
// snapshot always yields the same output.
package transform

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/identity"
	"github.com/noah-isme/classync-go-api/internal/models"
)

// TransformError marks a snapshot that passed schema validation but is
// internally inconsistent (dangling references). It is fatal to the run.
type TransformError struct {
	Entity string
	ID     string
	Reason string
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s %q: %s", e.Entity, e.ID, e.Reason)
}

// GradeInput joins a snapshot grade with the logical submission it targets.
// Score is already clamped to [0, MaxScore]; consumers trust the range.
type GradeInput struct {
	SubmissionID string
	ClassroomID  string
	AssignmentID string
	StudentID    string
	Score        float64
	MaxScore     float64
	Feedback     string
	GradedBy     string
}

// Output carries the flat, normalized entity inputs for one snapshot.
type Output struct {
	Teacher     models.Teacher
	Classrooms  []models.Classroom
	Assignments []models.Assignment
	Enrollments []models.Enrollment
	Submissions []models.Submission
	GradeInputs []GradeInput
}

// Transformer normalizes snapshots. Free-text fields pass through a strict
// HTML sanitizer since they originate outside our trust boundary.
type Transformer struct {
	sanitizer *bluemonday.Policy
}

// New constructs a Transformer.
func New() *Transformer {
	return &Transformer{sanitizer: bluemonday.StrictPolicy()}
}

// Transform normalizes one snapshot into entity inputs. Duplicated external
// records collapse onto their stable id (first occurrence wins). It fails
// only when a submission references an assignment or student that is absent
// from its own classroom.
func (t *Transformer) Transform(snapshot dto.Snapshot) (Output, error) {
	out := Output{
		Teacher: models.Teacher{
			ID:    identity.TeacherID(snapshot.Teacher.Email),
			Email: strings.ToLower(strings.TrimSpace(snapshot.Teacher.Email)),
			Name:  t.clean(snapshot.Teacher.Name),
		},
	}

	seenClassrooms := map[string]bool{}
	seenAssignments := map[string]bool{}
	seenEnrollments := map[string]bool{}
	seenSubmissions := map[string]bool{}

	for _, sc := range snapshot.Classrooms {
		classroomID := identity.ClassroomID(sc.ID)
		if seenClassrooms[classroomID] {
			continue
		}
		seenClassrooms[classroomID] = true

		out.Classrooms = append(out.Classrooms, models.Classroom{
			ID:         classroomID,
			ExternalID: sc.ID,
			TeacherID:  out.Teacher.ID,
			Name:       t.clean(sc.Name),
			Section:    t.clean(sc.Section),
		})

		// Classroom-local indexes used to verify submission references.
		assignmentsByExt := map[string]string{}
		studentsByEmail := map[string]string{}

		for _, sa := range sc.Assignments {
			assignmentID := identity.AssignmentID(classroomID, sa.ID)
			assignmentsByExt[sa.ID] = assignmentID
			if seenAssignments[assignmentID] {
				continue
			}
			seenAssignments[assignmentID] = true

			out.Assignments = append(out.Assignments, models.Assignment{
				ID:          assignmentID,
				ExternalID:  sa.ID,
				ClassroomID: classroomID,
				Title:       t.clean(sa.Title),
				Description: t.clean(sa.Description),
				MaxScore:    sa.MaxScore,
				DueDate:     sa.DueDate,
			})
		}

		for _, ss := range sc.Students {
			email := strings.ToLower(strings.TrimSpace(ss.Email))
			studentID := identity.StudentID(email)
			studentsByEmail[email] = studentID

			enrollment := models.Enrollment{
				ID:          identity.EnrollmentID(classroomID, email),
				ClassroomID: classroomID,
				StudentID:   studentID,
				Email:       email,
				Name:        t.clean(ss.Name),
				Status:      models.EnrollmentStatusActive,
			}
			if seenEnrollments[enrollment.ID] {
				continue
			}
			seenEnrollments[enrollment.ID] = true
			out.Enrollments = append(out.Enrollments, enrollment)
		}

		for _, sub := range sc.Submissions {
			assignmentID, ok := assignmentsByExt[sub.AssignmentID]
			if !ok {
				return Output{}, &TransformError{
					Entity: "submission",
					ID:     sub.ID,
					Reason: fmt.Sprintf("references assignment %q not present in classroom %q", sub.AssignmentID, sc.ID),
				}
			}
			email := strings.ToLower(strings.TrimSpace(sub.StudentEmail))
			studentID, ok := studentsByEmail[email]
			if !ok {
				return Output{}, &TransformError{
					Entity: "submission",
					ID:     sub.ID,
					Reason: fmt.Sprintf("references student %q not present in classroom %q roster", sub.StudentEmail, sc.ID),
				}
			}

			submissionID := identity.SubmissionID(classroomID, assignmentID, studentID)
			if seenSubmissions[submissionID] {
				continue
			}
			seenSubmissions[submissionID] = true

			out.Submissions = append(out.Submissions, models.Submission{
				ID:           submissionID,
				ExternalID:   sub.ID,
				ClassroomID:  classroomID,
				AssignmentID: assignmentID,
				StudentID:    studentID,
				State:        sub.State,
				Late:         sub.Late,
				SubmittedAt:  sub.SubmittedAt,
				DocURL:       sub.DocURL,
				Status:       models.SubmissionStatusUngraded,
				Version:      1,
				IsLatest:     true,
			})

			if sub.Grade != nil {
				out.GradeInputs = append(out.GradeInputs, t.gradeInput(*sub.Grade, submissionID, classroomID, assignmentID, studentID))
			}
		}
	}

	return out, nil
}

func (t *Transformer) gradeInput(grade dto.SnapshotGrade, submissionID, classroomID, assignmentID, studentID string) GradeInput {
	maxScore := grade.MaxScore
	if maxScore <= 0 {
		maxScore = 100
	}
	score := grade.Score
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	gradedBy := grade.GradedBy
	if gradedBy == "" {
		gradedBy = models.GradeSourceAI
	}

	return GradeInput{
		SubmissionID: submissionID,
		ClassroomID:  classroomID,
		AssignmentID: assignmentID,
		StudentID:    studentID,
		Score:        score,
		MaxScore:     maxScore,
		Feedback:     t.clean(grade.Feedback),
		GradedBy:     gradedBy,
	}
}

func (t *Transformer) clean(value string) string {
	return strings.TrimSpace(t.sanitizer.Sanitize(value))
}

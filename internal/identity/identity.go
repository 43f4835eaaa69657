// Package identity derives deterministic internal identifiers from external
// classroom keys. The same logical entity always maps to the same id across
// repeated imports, which is what makes create-detection a plain existence
// lookup instead of a fuzzy match.
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Namespaces for UUIDv5 derivation, one per entity type so equal external
// keys of different types never collide.
var (
	nsTeacher    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.teacher"))
	nsClassroom  = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.classroom"))
	nsAssignment = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.assignment"))
	nsStudent    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.student"))
	nsEnrollment = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.enrollment"))
	nsSubmission = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.submission"))
	nsGrade      = uuid.NewSHA1(uuid.NameSpaceOID, []byte("classync.grade"))
)

// TeacherID derives the teacher id from the account email.
func TeacherID(email string) string {
	return uuid.NewSHA1(nsTeacher, []byte(normalizeEmail(email))).String()
}

// ClassroomID derives the classroom id from its external identifier.
func ClassroomID(externalID string) string {
	return uuid.NewSHA1(nsClassroom, []byte(strings.TrimSpace(externalID))).String()
}

// AssignmentID derives the assignment id from its owning classroom and its
// classroom-scoped external identifier.
func AssignmentID(classroomID, externalID string) string {
	return uuid.NewSHA1(nsAssignment, []byte(classroomID+"/"+strings.TrimSpace(externalID))).String()
}

// StudentID derives the student id from the student email.
func StudentID(email string) string {
	return uuid.NewSHA1(nsStudent, []byte(normalizeEmail(email))).String()
}

// EnrollmentID derives the enrollment id from (classroom, student email),
// so a student re-appearing in a later snapshot addresses the same row.
func EnrollmentID(classroomID, email string) string {
	return uuid.NewSHA1(nsEnrollment, []byte(classroomID+"/"+normalizeEmail(email))).String()
}

// SubmissionID derives the base submission id for a logical
// (classroom, assignment, student) triple. Later versions extend this id
// with a version suffix; see SubmissionVersionID.
func SubmissionID(classroomID, assignmentID, studentID string) string {
	return uuid.NewSHA1(nsSubmission, []byte(classroomID+"/"+assignmentID+"/"+studentID)).String()
}

// SubmissionVersionID derives the row id for a re-submitted version of an
// existing submission chain.
func SubmissionVersionID(baseID string, version int) string {
	return fmt.Sprintf("%s_v%d", baseID, version)
}

// GradeID derives the grade row id for one version of a submission's chain.
func GradeID(submissionID string, version int) string {
	return uuid.NewSHA1(nsGrade, []byte(fmt.Sprintf("%s/%d", submissionID, version))).String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package dto

// ProcessingStats carries per-category counts for one import run.
type ProcessingStats struct {
	ClassroomsCreated    int `json:"classroomsCreated"`
	ClassroomsUpdated    int `json:"classroomsUpdated"`
	AssignmentsCreated   int `json:"assignmentsCreated"`
	AssignmentsUpdated   int `json:"assignmentsUpdated"`
	SubmissionsCreated   int `json:"submissionsCreated"`
	SubmissionsVersioned int `json:"submissionsVersioned"`
	GradesPreserved      int `json:"gradesPreserved"`
	GradesCreated        int `json:"gradesCreated"`
	EnrollmentsCreated   int `json:"enrollmentsCreated"`
	EnrollmentsUpdated   int `json:"enrollmentsUpdated"`
	EnrollmentsArchived  int `json:"enrollmentsArchived"`
}

// ProcessingError records a single per-entity failure. The run continues past
// these; only a snapshot-level transform failure aborts.
type ProcessingError struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Error  string `json:"error"`
}

// ProcessingResult is the outcome of one import run. A run with per-entity
// errors but no fatal failure still reports Success=true with a non-empty
// Errors list; callers must inspect both fields.
type ProcessingResult struct {
	Success          bool              `json:"success"`
	Stats            ProcessingStats   `json:"stats"`
	Errors           []ProcessingError `json:"errors"`
	ProcessingTimeMs int64             `json:"processingTime"`
}

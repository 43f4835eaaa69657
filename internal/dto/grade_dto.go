package dto

// GradeLockRequest asks for a grade to be protected from future automated
// overwrites.
type GradeLockRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// GradeRollbackRequest re-applies a historical grade version as a brand-new
// locked version on top of the chain.
type GradeRollbackRequest struct {
	TargetVersion int    `json:"targetVersion" validate:"required,min=1"`
	Reason        string `json:"reason" validate:"required,max=255"`
}

// GradeResponse is the API projection of a stored grade version.
type GradeResponse struct {
	ID              string  `json:"id"`
	SubmissionID    string  `json:"submission_id"`
	Score           float64 `json:"score"`
	MaxScore        float64 `json:"max_score"`
	Percentage      int     `json:"percentage"`
	Feedback        string  `json:"feedback"`
	GradedBy        string  `json:"graded_by"`
	Version         int     `json:"version"`
	IsLatest        bool    `json:"is_latest"`
	IsLocked        bool    `json:"is_locked"`
	LockedReason    string  `json:"locked_reason,omitempty"`
	PreviousGradeID *string `json:"previous_grade_id,omitempty"`
}

// GradeHistoryEntry is the API projection of an archived grade version.
type GradeHistoryEntry struct {
	GradeID          string  `json:"grade_id"`
	Version          int     `json:"version"`
	Score            float64 `json:"score"`
	MaxScore         float64 `json:"max_score"`
	Feedback         string  `json:"feedback"`
	GradedBy         string  `json:"graded_by"`
	SupersededReason string  `json:"superseded_reason"`
}

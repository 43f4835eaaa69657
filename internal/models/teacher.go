package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Teacher is the aggregate root owning classrooms found in a snapshot.
// ClassroomIDs and the totals are rebuilt from actual classroom ownership
// after every import; they are never trusted from the incoming snapshot.
type Teacher struct {
	ID              string         `gorm:"primaryKey;size:64" json:"id"`
	Email           string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	ClassroomIDs    datatypes.JSON `json:"classroom_ids"`
	TotalClassrooms int            `json:"total_classrooms"`
	TotalStudents   int            `json:"total_students"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ClassroomIDList decodes the stored classroom id set.
func (t Teacher) ClassroomIDList() []string {
	if len(t.ClassroomIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(t.ClassroomIDs, &ids); err != nil {
		return nil
	}
	return ids
}

// SetClassroomIDs encodes the classroom id set for storage.
func (t *Teacher) SetClassroomIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	t.ClassroomIDs = datatypes.JSON(payload)
}

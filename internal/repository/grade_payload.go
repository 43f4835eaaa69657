package repository

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/noah-isme/classync-go-api/internal/models"
)

// gradePayload snapshots the full superseded grade row into the history
// archive so audits can reconstruct it field-for-field.
func gradePayload(grade models.Grade) datatypes.JSON {
	payload, err := json.Marshal(grade)
	if err != nil {
		return nil
	}
	return datatypes.JSON(payload)
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/schema"
	"github.com/noah-isme/classync-go-api/internal/service"
	"github.com/noah-isme/classync-go-api/internal/transform"
)

type stubProcessor struct {
	result dto.ProcessingResult
	err    error

	received *dto.Snapshot
}

func (s *stubProcessor) Process(_ context.Context, snapshot dto.Snapshot) (dto.ProcessingResult, error) {
	s.received = &snapshot
	return s.result, s.err
}

func newImportApp(t *testing.T, processor service.SnapshotProcessor) *fiber.App {
	t.Helper()
	compiled, err := schema.CompileSnapshot()
	require.NoError(t, err)

	app := fiber.New()
	h := NewImportHandler(processor, compiled, validator.New(), zerolog.Nop())
	h.Register(app.Group("/api/v1/imports"))
	return app
}

func postSnapshot(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

const validSnapshotBody = `{
  "teacher": {"email": "teacher@school.edu", "name": "Pat Rivera"},
  "classrooms": [{
    "id": "gc-101",
    "name": "Algebra I",
    "assignments": [{"id": "hw-1", "title": "Linear equations", "maxScore": 100}],
    "students": [{"email": "ana@school.edu", "name": "Ana"}],
    "submissions": [{
      "assignmentId": "hw-1",
      "studentEmail": "ana@school.edu",
      "state": "TURNED_IN",
      "grade": {"score": 88, "maxScore": 100, "gradedBy": "ai"}
    }]
  }],
  "snapshotMetadata": {"fetchedAt": "2026-03-01T10:00:00Z", "source": "mock"}
}`

func TestImportTriggerSuccess(t *testing.T) {
	processor := &stubProcessor{
		result: dto.ProcessingResult{
			Success: true,
			Stats:   dto.ProcessingStats{ClassroomsCreated: 1, GradesCreated: 1},
			Errors:  []dto.ProcessingError{},
		},
	}
	app := newImportApp(t, processor)

	resp := postSnapshot(t, app, validSnapshotBody)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                 `json:"success"`
		Data    dto.ProcessingResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Equal(t, 1, body.Data.Stats.ClassroomsCreated)

	require.NotNil(t, processor.received)
	require.Equal(t, "teacher@school.edu", processor.received.Teacher.Email)
	require.Equal(t, dto.SnapshotSourceMock, processor.received.SnapshotMetadata.Source)
}

func TestImportTriggerRejectsMalformedJSON(t *testing.T) {
	processor := &stubProcessor{}
	app := newImportApp(t, processor)

	resp := postSnapshot(t, app, `{"teacher": `)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, processor.received)
}

func TestImportTriggerRejectsSchemaViolations(t *testing.T) {
	processor := &stubProcessor{}
	app := newImportApp(t, processor)

	// Missing the required classrooms and snapshotMetadata fields.
	resp := postSnapshot(t, app, `{"teacher": {"email": "t@school.edu", "name": "T"}}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, processor.received)

	// Wrong source enum value.
	bad := strings.Replace(validSnapshotBody, `"source": "mock"`, `"source": "unknown-feed"`, 1)
	resp = postSnapshot(t, app, bad)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Nil(t, processor.received)
}

func TestImportTriggerConflictStatuses(t *testing.T) {
	for _, err := range []error{service.ErrImportInProgress, service.ErrStaleSnapshot} {
		processor := &stubProcessor{err: err}
		app := newImportApp(t, processor)

		resp := postSnapshot(t, app, validSnapshotBody)
		require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	}
}

func TestImportTriggerTransformFailure(t *testing.T) {
	processor := &stubProcessor{
		result: dto.ProcessingResult{Success: false, Errors: []dto.ProcessingError{{Entity: "snapshot"}}},
		err:    &transform.TransformError{Entity: "submission", ID: "ext-sub-1", Reason: "references assignment \"hw-9\" not present in classroom \"gc-101\""},
	}
	app := newImportApp(t, processor)

	resp := postSnapshot(t, app, validSnapshotBody)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Success bool                 `json:"success"`
		Data    dto.ProcessingResult `json:"data"`
		Message string               `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Contains(t, body.Message, "hw-9")
	require.Len(t, body.Data.Errors, 1)
}

func TestImportTriggerInternalError(t *testing.T) {
	processor := &stubProcessor{err: errors.New("database offline")}
	app := newImportApp(t, processor)

	resp := postSnapshot(t, app, validSnapshotBody)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/service"
	"github.com/noah-isme/classync-go-api/internal/transform"
)

type stubGradeService struct {
	latest   *models.Grade
	history  []models.GradeHistory
	rolled   models.Grade
	err      error
	lockedID string
	reason   string
}

func (s *stubGradeService) GetLatestGrade(_ context.Context, _ string) (*models.Grade, error) {
	return s.latest, s.err
}

func (s *stubGradeService) ResolveConflict(_ models.Grade, _ transform.GradeInput) (service.GradeResolution, string) {
	return service.ResolutionKeepExisting, ""
}

func (s *stubGradeService) CreateGradeVersion(_ context.Context, _ transform.GradeInput, _ models.Submission, _ string) (models.Grade, error) {
	return models.Grade{}, s.err
}

func (s *stubGradeService) BatchProcessGrades(_ context.Context, _ []service.GradeWork) (service.BatchGradeResult, error) {
	return service.BatchGradeResult{}, s.err
}

func (s *stubGradeService) LockGrade(_ context.Context, gradeID, reason string) error {
	s.lockedID = gradeID
	s.reason = reason
	return s.err
}

func (s *stubGradeService) UnlockGrade(_ context.Context, gradeID string) error {
	s.lockedID = gradeID
	return s.err
}

func (s *stubGradeService) RollbackGrade(_ context.Context, _ string, _ int, _ string) (models.Grade, error) {
	return s.rolled, s.err
}

func (s *stubGradeService) ListHistory(_ context.Context, _ string) ([]models.GradeHistory, error) {
	return s.history, s.err
}

func newGradeApp(t *testing.T, grades service.GradeVersioningService) *fiber.App {
	t.Helper()
	app := fiber.New()
	h := NewGradeHandler(grades, validator.New(), zerolog.Nop())
	h.Register(app.Group("/api/v1"))
	return app
}

func jsonRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestGradeLockEndpoint(t *testing.T) {
	stub := &stubGradeService{}
	app := newGradeApp(t, stub)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/grades/g-1/lock", `{"reason": "reviewed"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "g-1", stub.lockedID)
	require.Equal(t, "reviewed", stub.reason)

	// Missing reason fails validation.
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/grades/g-1/lock", `{}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	stub.err = service.ErrGradeNotFound
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/grades/missing/lock", `{"reason": "x"}`)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGradeLatestEndpoint(t *testing.T) {
	stub := &stubGradeService{latest: &models.Grade{
		ID: "g-1", SubmissionID: "sub-1", Score: 88, MaxScore: 100,
		Percentage: 88, GradedBy: models.GradeSourceAI, Version: 2, IsLatest: true,
	}}
	app := newGradeApp(t, stub)

	resp := jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/sub-1/grade", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.GradeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "g-1", body.Data.ID)
	require.Equal(t, 2, body.Data.Version)

	stub.latest = nil
	resp = jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/sub-1/grade", "")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGradeHistoryEndpoint(t *testing.T) {
	stub := &stubGradeService{history: []models.GradeHistory{
		{GradeID: "g-1", Version: 1, Score: 70, MaxScore: 100, SupersededReason: "content changed"},
	}}
	app := newGradeApp(t, stub)

	resp := jsonRequest(t, app, http.MethodGet, "/api/v1/submissions/sub-1/grade-history", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.GradeHistoryEntry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "content changed", body.Data[0].SupersededReason)
}

func TestGradeRollbackEndpoint(t *testing.T) {
	stub := &stubGradeService{rolled: models.Grade{
		ID: "g-3", SubmissionID: "sub-1", Version: 3, IsLatest: true, IsLocked: true,
	}}
	app := newGradeApp(t, stub)

	resp := jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/sub-1/grade/rollback", `{"targetVersion": 1, "reason": "teacher request"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.GradeResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "g-3", body.Data.ID)
	require.True(t, body.Data.IsLocked)

	// Validation rejects a zero target version.
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/sub-1/grade/rollback", `{"targetVersion": 0, "reason": "x"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	stub.err = service.ErrGradeVersionNotFound
	resp = jsonRequest(t, app, http.MethodPost, "/api/v1/submissions/sub-1/grade/rollback", `{"targetVersion": 9, "reason": "x"}`)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/service"
	"github.com/noah-isme/classync-go-api/internal/utils"
)

// GradeHandler manages grade locking, rollback, and audit retrieval.
type GradeHandler struct {
	grades    service.GradeVersioningService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewGradeHandler builds a grade handler instance.
func NewGradeHandler(grades service.GradeVersioningService, validator *validator.Validate, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		grades:    grades,
		validator: validator,
		logger:    logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Post("/grades/:id/lock", h.lock)
	router.Post("/grades/:id/unlock", h.unlock)
	router.Get("/submissions/:id/grade", h.latest)
	router.Get("/submissions/:id/grade-history", h.history)
	router.Post("/submissions/:id/grade/rollback", h.rollback)
}

func (h *GradeHandler) lock(c *fiber.Ctx) error {
	var payload dto.GradeLockRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.grades.LockGrade(c.Context(), c.Params("id"), payload.Reason); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "grade locked", nil)
}

func (h *GradeHandler) unlock(c *fiber.Ctx) error {
	if err := h.grades.UnlockGrade(c.Context(), c.Params("id")); err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "grade unlocked", nil)
}

func (h *GradeHandler) latest(c *fiber.Ctx) error {
	grade, err := h.grades.GetLatestGrade(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	if grade == nil {
		return utils.SendError(c, fiber.StatusNotFound, "no grade for submission")
	}
	return utils.SendSuccess(c, "grade retrieved", gradeResponse(*grade))
}

func (h *GradeHandler) history(c *fiber.Ctx) error {
	history, err := h.grades.ListHistory(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	entries := make([]dto.GradeHistoryEntry, 0, len(history))
	for _, entry := range history {
		entries = append(entries, dto.GradeHistoryEntry{
			GradeID:          entry.GradeID,
			Version:          entry.Version,
			Score:            entry.Score,
			MaxScore:         entry.MaxScore,
			Feedback:         entry.Feedback,
			GradedBy:         entry.GradedBy,
			SupersededReason: entry.SupersededReason,
		})
	}
	return utils.SendSuccess(c, "grade history retrieved", entries)
}

func (h *GradeHandler) rollback(c *fiber.Ctx) error {
	var payload dto.GradeRollbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grade, err := h.grades.RollbackGrade(c.Context(), c.Params("id"), payload.TargetVersion, payload.Reason)
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "grade rolled back", gradeResponse(grade))
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrGradeNotFound),
		errors.Is(err, service.ErrGradeVersionNotFound),
		errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("grade operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func gradeResponse(grade models.Grade) dto.GradeResponse {
	return dto.GradeResponse{
		ID:              grade.ID,
		SubmissionID:    grade.SubmissionID,
		Score:           grade.Score,
		MaxScore:        grade.MaxScore,
		Percentage:      grade.Percentage,
		Feedback:        grade.Feedback,
		GradedBy:        grade.GradedBy,
		Version:         grade.Version,
		IsLatest:        grade.IsLatest,
		IsLocked:        grade.IsLocked,
		LockedReason:    grade.LockedReason,
		PreviousGradeID: grade.PreviousGradeID,
	}
}

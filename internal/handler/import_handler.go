package handler

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/classync-go-api/internal/dto"
	"github.com/noah-isme/classync-go-api/internal/service"
	"github.com/noah-isme/classync-go-api/internal/transform"
	"github.com/noah-isme/classync-go-api/internal/utils"
)

// ImportHandler exposes the snapshot import trigger. Schema validation lives
// here, at the boundary; the engine behind it only ever sees well-typed
// snapshots.
type ImportHandler struct {
	processor service.SnapshotProcessor
	schema    *jsonschema.Schema
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewImportHandler builds the import trigger handler.
func NewImportHandler(processor service.SnapshotProcessor, schema *jsonschema.Schema, validator *validator.Validate, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		processor: processor,
		schema:    schema,
		validator: validator,
		logger:    logger.With().Str("component", "import_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ImportHandler) Register(router fiber.Router) {
	router.Post("", h.trigger)
}

func (h *ImportHandler) trigger(c *fiber.Ctx) error {
	var raw interface{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "request body is not valid JSON")
	}

	if err := h.schema.Validate(raw); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "snapshot failed schema validation: "+err.Error())
	}

	var snapshot dto.Snapshot
	if err := json.Unmarshal(c.Body(), &snapshot); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "snapshot could not be decoded")
	}

	if err := h.validator.Struct(snapshot); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.processor.Process(c.Context(), snapshot)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportInProgress), errors.Is(err, service.ErrStaleSnapshot):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			var transformErr *transform.TransformError
			if errors.As(err, &transformErr) {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.APIResponse{
					Success: false,
					Data:    result,
					Message: transformErr.Error(),
				})
			}
			h.logger.Error().Err(err).Msg("import run failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "import failed")
		}
	}

	return utils.SendSuccess(c, "snapshot processed", result)
}

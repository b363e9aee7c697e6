package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/pkg/response"
)

type SketchHandler struct {
	service   *service.SketchService
	validator *validator.Validate
}

func NewSketchHandler(svc *service.SketchService, v *validator.Validate) *SketchHandler {
	return &SketchHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/sketches/generate
func (h *SketchHandler) Generate(c *fiber.Ctx) error {
	var req model.SketchGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Generate(c.Context(), req)
	if err != nil {
		return sketchError(c, err)
	}

	return response.OK(c, &model.SketchGenerateResponse{Sketch: result})
}

// GenerateBatch handles POST /api/sketches/generate_batch. Items are
// processed under the image provider's rate limit, so large batches take
// a while; results come back in request order or not at all.
func (h *SketchHandler) GenerateBatch(c *fiber.Ctx) error {
	var req model.SketchBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	results, err := h.service.GenerateBatch(c.Context(), req.Items)
	if err != nil {
		return sketchError(c, err)
	}

	return response.OK(c, &model.SketchBatchResponse{Sketches: results})
}

func sketchError(c *fiber.Ctx, err error) error {
	var invalid *model.InvalidInputError
	if errors.As(err, &invalid) {
		return response.ValidationError(c, invalid.Error(), nil)
	}

	var rateLimited *client.RateLimitError
	if errors.As(err, &rateLimited) {
		return response.RateLimited(c)
	}

	return response.AIError(c, err.Error())
}

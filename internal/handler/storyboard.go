package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/pkg/response"
)

type StoryboardHandler struct {
	service   *service.ScriptService
	validator *validator.Validate
}

func NewStoryboardHandler(svc *service.ScriptService, v *validator.Validate) *StoryboardHandler {
	return &StoryboardHandler{
		service:   svc,
		validator: v,
	}
}

// GenerateOutline handles POST /api/outline/generate
func (h *StoryboardHandler) GenerateOutline(c *fiber.Ctx) error {
	var req model.OutlineGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	outline, err := h.service.GenerateOutline(c.Context(), req.Chunks)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, &model.OutlineGenerateResponse{Outline: outline})
}

// GenerateStoryboard handles POST /api/storyboard/generate. The request
// carries either an outline or raw text.
func (h *StoryboardHandler) GenerateStoryboard(c *fiber.Ctx) error {
	var req model.StoryboardGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	var input interface{}
	switch {
	case req.Outline != nil:
		input = req.Outline
	case req.Text != "":
		input = req.Text
	default:
		return response.ValidationError(c, "Either outline or text is required", nil)
	}

	storyboard, err := h.service.GenerateStoryboard(c.Context(), input)
	if err != nil {
		return response.AIError(c, err.Error())
	}

	return response.OK(c, &model.StoryboardGenerateResponse{Storyboard: storyboard})
}

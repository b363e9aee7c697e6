package handler

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/pkg/response"
)

const maxDocumentSize = 25 * 1024 * 1024 // 25MB

var documentContentTypes = map[string]bool{
	"application/pdf":   true,
	"application/x-pdf": true,
}

type ProjectHandler struct {
	service   *service.ProjectService
	validator *validator.Validate
	uploadDir string
}

func NewProjectHandler(svc *service.ProjectService, v *validator.Validate, uploadDir string) *ProjectHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &ProjectHandler{
		service:   svc,
		validator: v,
		uploadDir: uploadDir,
	}
}

// Create handles POST /api/projects. The uploaded document is staged on
// local disk and handed to the pipeline by path; the request returns as
// soon as the project is queued.
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxDocumentSize {
		return response.ValidationError(c, "File size exceeds 25MB limit", map[string]interface{}{
			"maxSize":  maxDocumentSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	if !documentContentTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: PDF", map[string]interface{}{
			"contentType": contentType,
		})
	}

	localPath := filepath.Join(h.uploadDir, "upload_"+uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, localPath); err != nil {
		return response.ServiceError(c, "Failed to store uploaded file")
	}

	result, err := h.service.Submit(c.Context(), localPath, file.Filename)
	if err != nil {
		os.Remove(localPath)
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/projects/:id/status
func (h *ProjectHandler) Status(c *fiber.Ctx) error {
	projectID := c.Params("id")
	if projectID == "" {
		return response.ValidationError(c, "Project ID is required", nil)
	}

	project, found, err := h.service.GetStatus(c.Context(), projectID)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if !found {
		return response.NotFound(c, "Project not found")
	}

	return response.OK(c, project)
}

// StatusList handles POST /api/projects/status
func (h *ProjectHandler) StatusList(c *fiber.Ctx) error {
	var req model.ProjectStatusListRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	projects, err := h.service.ListStatuses(c.Context(), req.ProjectIDs)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, &model.ProjectStatusListResponse{Projects: projects})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}

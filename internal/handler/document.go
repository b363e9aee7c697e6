package handler

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/pkg/response"
)

type DocumentHandler struct {
	service   *service.DocumentService
	uploadDir string
}

func NewDocumentHandler(svc *service.DocumentService, uploadDir string) *DocumentHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &DocumentHandler{
		service:   svc,
		uploadDir: uploadDir,
	}
}

// Process handles POST /api/documents/process. It extracts the text
// synchronously and returns the cleaned sections and chunks.
func (h *DocumentHandler) Process(c *fiber.Ctx) error {
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

	localPath := filepath.Join(h.uploadDir, "doc_"+uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, localPath); err != nil {
		return response.ServiceError(c, "Failed to store uploaded file")
	}
	defer os.Remove(localPath)

	result, err := h.service.Process(c.Context(), localPath, file.Filename)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

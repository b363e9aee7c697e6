package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/runner"
)

var defaultAccents = []string{"blue", "red", "green", "yellow"}

// placeholderPNG is a 1x1 white PNG used when the image provider is not
// configured, so the rest of the pipeline stays exercisable.
var placeholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde, 0x00, 0x00, 0x00,
	0x0c, 0x49, 0x44, 0x41, 0x54, 0x08, 0xd7, 0x63, 0xf8, 0xff, 0xff, 0x3f,
	0x00, 0x05, 0xfe, 0x02, 0xfe, 0xdc, 0xcc, 0x59, 0xe7, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// SketchService generates hand-drawn-style sketches through the image
// provider. The provider enforces a strict requests-per-minute limit, so
// batches run serially with fixed post-completion spacing.
type SketchService struct {
	client   *client.ReplicateClient
	storage  client.StorageClient
	cfg      *config.ReplicateConfig
	batchCfg runner.Config
}

func NewSketchService(c *client.ReplicateClient, storage client.StorageClient, cfg *config.ReplicateConfig) *SketchService {
	return &SketchService{
		client:  c,
		storage: storage,
		cfg:     cfg,
		batchCfg: runner.Config{
			MaxConcurrency: 1,
			Spacing:        cfg.Spacing,
			Backoff: runner.BackoffPolicy{
				Base:        cfg.BackoffBase,
				MaxAttempts: cfg.MaxAttempts,
			},
		},
	}
}

// BuildPrompt produces a consistent sketch-style prompt for the model.
func (s *SketchService) BuildPrompt(description string, accents []string, allowText bool) string {
	accentStr := strings.Join(defaultAccents, ", ")
	if len(accents) > 0 {
		accentStr = strings.Join(accents, ", ")
	}

	var b strings.Builder
	b.WriteString("A simple hand-drawn marker sketch. ")
	b.WriteString("Thick black outlines with slight wobble. ")
	b.WriteString("Accent colors used sparingly: " + accentStr + ". ")
	b.WriteString("Clean white background. No shading. No gradients. No 3D. ")
	b.WriteString("Medium-thick line art. Diagrammatic clarity. ")
	b.WriteString("Draw: " + description + ".")
	if allowText {
		b.WriteString(" Allow short handwritten labels if they naturally belong.")
	} else {
		b.WriteString(" Do NOT include any text or writing inside the sketch.")
	}
	b.WriteString(" Remove photo realism. Remove shadows. No textures.")
	return b.String()
}

// Generate creates one sketch, stores it, and returns its reference. The
// caller is responsible for retry policy; this is a single attempt.
func (s *SketchService) Generate(ctx context.Context, req model.SketchGenerateRequest) (*model.SketchResult, error) {
	data, prompt, err := s.generateBytes(ctx, req)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	url := ""
	if s.storage != nil {
		url, err = s.storage.Upload(ctx, fmt.Sprintf("sketches/%s.png", id), bytes.NewReader(data), "image/png")
		if err != nil {
			return nil, fmt.Errorf("sketch upload failed: %w", err)
		}
	}

	return &model.SketchResult{ID: id, URL: url, Prompt: prompt}, nil
}

// GenerateToFile creates one sketch and writes it into destDir, returning
// the local path. Used by the pipeline, which keeps sketches in the
// project's scratch area.
func (s *SketchService) GenerateToFile(ctx context.Context, req model.SketchGenerateRequest, destDir string) (string, error) {
	data, _, err := s.generateBytes(ctx, req)
	if err != nil {
		return "", err
	}

	path := filepath.Join(destDir, fmt.Sprintf("sketch_%s.png", uuid.New().String()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write sketch: %w", err)
	}
	return path, nil
}

// GenerateBatch creates sketches for all items under the provider's rate
// limit, returning results in request order.
func (s *SketchService) GenerateBatch(ctx context.Context, items []model.SketchGenerateRequest) ([]*model.SketchResult, error) {
	return runner.Run(ctx, items, s.batchCfg, func(ctx context.Context, item model.SketchGenerateRequest) (*model.SketchResult, error) {
		return s.Generate(ctx, item)
	})
}

// BatchConfig exposes the provider-limit runner configuration so the scene
// composer can reuse it for its own fan-out.
func (s *SketchService) BatchConfig() runner.Config {
	return s.batchCfg
}

// IsConfigured returns true if the image provider is configured.
func (s *SketchService) IsConfigured() bool {
	return s.client.IsConfigured()
}

func (s *SketchService) generateBytes(ctx context.Context, req model.SketchGenerateRequest) ([]byte, string, error) {
	if req.Description == "" {
		return nil, "", &model.InvalidInputError{Field: "description", Reason: "missing sketch description"}
	}

	allowText := true
	if req.AllowText != nil {
		allowText = *req.AllowText
	}
	prompt := s.BuildPrompt(req.Description, req.Accents, allowText)

	if !s.client.IsConfigured() {
		return placeholderPNG, prompt, nil
	}

	url, err := s.client.GenerateImage(ctx, client.PredictionInput{
		Prompt:            prompt,
		Width:             s.cfg.Width,
		Height:            s.cfg.Height,
		NumInferenceSteps: s.cfg.Steps,
		Guidance:          s.cfg.Guidance,
	})
	if err != nil {
		return nil, "", err
	}

	data, err := s.client.Download(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("sketch download failed: %w", err)
	}

	processed, err := postprocessSketch(data)
	if err != nil {
		return nil, "", fmt.Errorf("sketch postprocessing failed: %w", err)
	}
	return processed, prompt, nil
}

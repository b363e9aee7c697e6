package render

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/runner"
)

// Renderer encodes scenes in parallel and concatenates the clips in
// storyboard order. Scene renders are CPU bound and local, so there is no
// retry policy; a failed scene aborts the whole render.
type Renderer struct {
	engine      Engine
	concurrency int
	motionSeed  int64
}

func NewRenderer(engine Engine, cfg *config.RenderConfig) *Renderer {
	conc := 8
	var seed int64
	if cfg != nil {
		if cfg.Concurrency > 0 {
			conc = cfg.Concurrency
		}
		seed = cfg.MotionSeed
	}
	return &Renderer{engine: engine, concurrency: conc, motionSeed: seed}
}

// RenderAll renders every scene into scratchDir and returns the path of
// the concatenated video. The output order always matches the scene order
// regardless of which clips finish first.
func (r *Renderer) RenderAll(ctx context.Context, projectID string, scenes []model.Scene, scratchDir string) (string, error) {
	if len(scenes) == 0 {
		return "", fmt.Errorf("nothing to render: scene list is empty")
	}

	picker := newMotionPicker(r.motionSeed, projectID)
	cfg := runner.Config{MaxConcurrency: r.concurrency}

	clipPaths, err := runner.Run(ctx, scenes, cfg, func(ctx context.Context, scene model.Scene) (string, error) {
		outPath := filepath.Join(scratchDir, fmt.Sprintf("scene_%03d.mp4", scene.Index))
		if err := r.engine.RenderScene(ctx, scene, r.motionFor(picker, scene), outPath); err != nil {
			return "", err
		}
		return outPath, nil
	})
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(scratchDir, "final.mp4")
	if err := r.engine.Concat(ctx, clipPaths, finalPath); err != nil {
		return "", err
	}
	return finalPath, nil
}

func (r *Renderer) motionFor(picker motionPicker, scene model.Scene) Motion {
	if scene.Motion != "" {
		return Motion(scene.Motion)
	}
	return picker.pick(scene.Index)
}

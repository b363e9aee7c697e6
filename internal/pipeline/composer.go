// Package pipeline contains the project pipeline: scene composition from a
// storyboard and the orchestrator that drives the end-to-end stage sequence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/runner"
)

// audioPadding is added on top of the narration length so speech never runs
// flush against the cut.
const audioPadding = 0.5

// SketchGenerator produces sketch files for scene specs.
type SketchGenerator interface {
	GenerateToFile(ctx context.Context, req model.SketchGenerateRequest, destDir string) (string, error)
	BatchConfig() runner.Config
}

// SpeechSynthesizer produces narration audio files. An empty path with a
// nil error means the scene has no audio.
type SpeechSynthesizer interface {
	SynthesizeToFile(ctx context.Context, text, destDir string) (string, error)
}

// AudioProber reports the duration of an audio file in seconds.
type AudioProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Composer fans a storyboard out to the sketch and speech providers and
// fans the results back into an ordered scene list. Scenes[i] always
// corresponds to storyboard.Scenes[i]; a failure in either sub-batch aborts
// the whole composition.
type Composer struct {
	sketches     SketchGenerator
	speech       SpeechSynthesizer
	prober       AudioProber
	speechCfg    runner.Config
	speechWindow time.Duration
}

func NewComposer(sketches SketchGenerator, speech SpeechSynthesizer, prober AudioProber, cfg *config.PipelineConfig) *Composer {
	conc := 4
	window := 120 * time.Second
	if cfg != nil {
		if cfg.SpeechConcurrency > 0 {
			conc = cfg.SpeechConcurrency
		}
		if cfg.SpeechBatchTimeout > 0 {
			window = cfg.SpeechBatchTimeout
		}
	}
	return &Composer{
		sketches:     sketches,
		speech:       speech,
		prober:       prober,
		speechCfg:    runner.Config{MaxConcurrency: conc},
		speechWindow: window,
	}
}

// Compose materializes every storyboard scene into scratchDir.
func (c *Composer) Compose(ctx context.Context, sb *model.Storyboard, scratchDir string) ([]model.Scene, error) {
	if sb == nil || len(sb.Scenes) == 0 {
		return []model.Scene{}, nil
	}

	sketchPaths, err := c.generateSketches(ctx, sb.Scenes, scratchDir)
	if err != nil {
		return nil, fmt.Errorf("sketch batch failed: %w", err)
	}

	audioPaths, err := c.generateAudio(ctx, sb.Scenes, scratchDir)
	if err != nil {
		return nil, fmt.Errorf("speech batch failed: %w", err)
	}

	scenes := make([]model.Scene, len(sb.Scenes))
	for i, spec := range sb.Scenes {
		duration, err := c.sceneDuration(ctx, spec, audioPaths[i])
		if err != nil {
			return nil, err
		}

		scenes[i] = model.Scene{
			Index:       i,
			SketchPath:  sketchPaths[i],
			TextOverlay: spec.TextOverlay,
			Duration:    duration,
			AudioPath:   audioPaths[i],
			Narration:   spec.Narration,
		}
	}

	return scenes, nil
}

// generateSketches runs the sketch fan-out under the image provider's
// strict limit (serial with spacing, transient retries).
func (c *Composer) generateSketches(ctx context.Context, specs []model.SceneSpec, scratchDir string) ([]string, error) {
	allowText := true
	return runner.Run(ctx, specs, c.sketches.BatchConfig(), func(ctx context.Context, spec model.SceneSpec) (string, error) {
		if spec.VisualPrompt == "" {
			return "", &model.InvalidInputError{Field: "visual_prompt", Reason: fmt.Sprintf("scene %d has no visual description", spec.ID)}
		}
		return c.sketches.GenerateToFile(ctx, model.SketchGenerateRequest{
			Description: spec.VisualPrompt,
			Accents:     spec.Accents,
			AllowText:   &allowText,
		}, scratchDir)
	})
}

// generateAudio runs the speech fan-out. The timeout bounds the whole
// batch, not individual items; scenes without narration yield no audio.
func (c *Composer) generateAudio(ctx context.Context, specs []model.SceneSpec, scratchDir string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.speechWindow)
	defer cancel()

	return runner.Run(ctx, specs, c.speechCfg, func(ctx context.Context, spec model.SceneSpec) (string, error) {
		if spec.Narration == "" {
			return "", nil
		}
		return c.speech.SynthesizeToFile(ctx, spec.Narration, scratchDir)
	})
}

// sceneDuration applies the timing rule: when audio exists the scene lasts
// at least the narration plus padding, otherwise the specified duration.
func (c *Composer) sceneDuration(ctx context.Context, spec model.SceneSpec, audioPath string) (float64, error) {
	duration := spec.Duration
	if audioPath == "" {
		return duration, nil
	}

	audioDur, err := c.prober.ProbeDuration(ctx, audioPath)
	if err != nil {
		return 0, fmt.Errorf("audio probe failed for scene %d: %w", spec.ID, err)
	}
	if padded := audioDur + audioPadding; padded > duration {
		duration = padded
	}
	return duration, nil
}

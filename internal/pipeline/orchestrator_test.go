package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
)

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*model.ExtractedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.ExtractedDocument{FullText: "full text", Chunks: []string{"full text"}}, nil
}

type fakeScripts struct {
	scriptErr     error
	storyboardErr error
}

func (f *fakeScripts) GenerateScript(ctx context.Context, text string, targetMinutes int) (*model.Script, error) {
	if f.scriptErr != nil {
		return nil, f.scriptErr
	}
	return &model.Script{Title: "T", Scenes: []model.SceneSpec{{ID: 1, Narration: "n", VisualPrompt: "v", Duration: 4}}}, nil
}

func (f *fakeScripts) GenerateStoryboard(ctx context.Context, input interface{}) (*model.Storyboard, error) {
	if f.storyboardErr != nil {
		return nil, f.storyboardErr
	}
	return &model.Storyboard{Title: "T", Scenes: []model.SceneSpec{{ID: 1, Narration: "n", VisualPrompt: "v", Duration: 4}}}, nil
}

type fakeComposerStage struct {
	err error
}

func (f *fakeComposerStage) Compose(ctx context.Context, sb *model.Storyboard, scratchDir string) ([]model.Scene, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Scene{{Index: 0, SketchPath: "s.png", Duration: 4}}, nil
}

type fakeRendererStage struct {
	err error
}

func (f *fakeRendererStage) RenderAll(ctx context.Context, projectID string, scenes []model.Scene, scratchDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := filepath.Join(scratchDir, "final.mp4")
	if err := os.WriteFile(out, []byte("video"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

type orchestratorFixture struct {
	extractor *fakeExtractor
	scripts   *fakeScripts
	composer  *fakeComposerStage
	renderer  *fakeRendererStage
	orch      *Orchestrator
	steps     []string
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		extractor: &fakeExtractor{},
		scripts:   &fakeScripts{},
		composer:  &fakeComposerStage{},
		renderer:  &fakeRendererStage{},
	}
	cfg := &config.Config{Pipeline: config.PipelineConfig{ScratchDir: t.TempDir(), TargetMinutes: 3}}
	f.orch = NewOrchestrator(f.extractor, f.scripts, f.composer, f.renderer, nil, cfg)
	return f
}

func (f *orchestratorFixture) progress(step string) error {
	f.steps = append(f.steps, step)
	return nil
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestRun_ReportsEveryStepInOrder(t *testing.T) {
	f := newFixture(t)

	url, err := f.orch.Run(context.Background(), "proj-1", writeSource(t), f.progress)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	defer os.Remove(url)

	assert.Equal(t, []string{
		model.StepIngesting,
		model.StepExtracting,
		model.StepScripting,
		model.StepStoryboard,
		model.StepScenes,
		model.StepRendering,
		model.StepUploading,
	}, f.steps)
}

func TestRun_StopsAtFailedStage(t *testing.T) {
	f := newFixture(t)
	f.scripts.storyboardErr = errors.New("llm unavailable")

	_, err := f.orch.Run(context.Background(), "proj-1", writeSource(t), f.progress)
	require.Error(t, err)

	assert.Equal(t, []string{
		model.StepIngesting,
		model.StepExtracting,
		model.StepScripting,
		model.StepStoryboard,
	}, f.steps)
}

func TestRun_ProgressCallbackFailureIsTolerated(t *testing.T) {
	f := newFixture(t)

	url, err := f.orch.Run(context.Background(), "proj-1", writeSource(t), func(step string) error {
		return errors.New("status store unreachable")
	})
	require.NoError(t, err)
	defer os.Remove(url)
}

func TestRun_NilProgressCallback(t *testing.T) {
	f := newFixture(t)

	url, err := f.orch.Run(context.Background(), "proj-1", writeSource(t), nil)
	require.NoError(t, err)
	defer os.Remove(url)
}

func TestRun_CleansUpScratchAndSource(t *testing.T) {
	scratchBase := t.TempDir()
	f := newFixture(t)
	f.orch.cfg.ScratchDir = scratchBase
	source := writeSource(t)

	url, err := f.orch.Run(context.Background(), "proj-1", source, nil)
	require.NoError(t, err)
	defer os.Remove(url)

	entries, err := os.ReadDir(scratchBase)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, statErr := os.Stat(source)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_CleansUpScratchOnFailure(t *testing.T) {
	scratchBase := t.TempDir()
	f := newFixture(t)
	f.orch.cfg.ScratchDir = scratchBase
	f.renderer.err = errors.New("ffmpeg exploded")
	source := writeSource(t)

	_, err := f.orch.Run(context.Background(), "proj-1", source, nil)
	require.Error(t, err)

	entries, readErr := os.ReadDir(scratchBase)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	_, statErr := os.Stat(source)
	assert.True(t, os.IsNotExist(statErr))
}

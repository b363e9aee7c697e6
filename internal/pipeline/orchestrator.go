package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
)

// Extractor pulls the text out of an uploaded document.
type Extractor interface {
	Extract(ctx context.Context, path string) (*model.ExtractedDocument, error)
}

// ScriptGenerator covers the two LLM passes the pipeline needs.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, text string, targetMinutes int) (*model.Script, error)
	GenerateStoryboard(ctx context.Context, input interface{}) (*model.Storyboard, error)
}

// SceneComposer materializes storyboard scenes into local assets.
type SceneComposer interface {
	Compose(ctx context.Context, sb *model.Storyboard, scratchDir string) ([]model.Scene, error)
}

// VideoRenderer encodes scenes and returns the final video path.
type VideoRenderer interface {
	RenderAll(ctx context.Context, projectID string, scenes []model.Scene, scratchDir string) (string, error)
}

// ProgressFunc is called as the pipeline enters each step. A failing
// callback is logged and ignored; progress reporting never kills a run.
type ProgressFunc func(step string) error

// Orchestrator drives a project through the fixed stage sequence. Each run
// works inside its own scratch directory which is removed on every exit
// path.
type Orchestrator struct {
	extractor Extractor
	scripts   ScriptGenerator
	composer  SceneComposer
	renderer  VideoRenderer
	storage   client.StorageClient
	cfg       config.PipelineConfig
	urlExpiry time.Duration
}

func NewOrchestrator(
	extractor Extractor,
	scripts ScriptGenerator,
	composer SceneComposer,
	renderer VideoRenderer,
	storage client.StorageClient,
	cfg *config.Config,
) *Orchestrator {
	o := &Orchestrator{
		extractor: extractor,
		scripts:   scripts,
		composer:  composer,
		renderer:  renderer,
		storage:   storage,
	}
	if cfg != nil {
		o.cfg = cfg.Pipeline
		o.urlExpiry = cfg.Storage.SignedURLExpiry
	}
	if o.cfg.TargetMinutes == 0 {
		o.cfg.TargetMinutes = 3
	}
	if o.urlExpiry == 0 {
		o.urlExpiry = 168 * time.Hour
	}
	return o
}

// Run executes the full pipeline for one project and returns the URL of
// the finished video. The source file is consumed: it is archived to
// object storage and deleted locally when the run ends.
func (o *Orchestrator) Run(ctx context.Context, projectID, sourcePath string, progress ProgressFunc) (string, error) {
	defer func() {
		if err := os.Remove(sourcePath); err != nil && !os.IsNotExist(err) {
			log.Printf("orchestrator: failed to remove source %s: %v", sourcePath, err)
		}
	}()

	scratchDir, err := os.MkdirTemp(o.cfg.ScratchDir, "sketchcourse-"+projectID+"-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratchDir); err != nil {
			log.Printf("orchestrator: failed to remove scratch dir %s: %v", scratchDir, err)
		}
	}()

	o.report(progress, projectID, model.StepIngesting)
	o.archiveSource(ctx, projectID, sourcePath)

	o.report(progress, projectID, model.StepExtracting)
	doc, err := o.extractor.Extract(ctx, sourcePath)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}

	o.report(progress, projectID, model.StepScripting)
	script, err := o.scripts.GenerateScript(ctx, doc.FullText, o.cfg.TargetMinutes)
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}

	o.report(progress, projectID, model.StepStoryboard)
	storyboard, err := o.scripts.GenerateStoryboard(ctx, script)
	if err != nil {
		return "", fmt.Errorf("generate storyboard: %w", err)
	}

	o.report(progress, projectID, model.StepScenes)
	scenes, err := o.composer.Compose(ctx, storyboard, scratchDir)
	if err != nil {
		return "", fmt.Errorf("compose scenes: %w", err)
	}

	o.report(progress, projectID, model.StepRendering)
	videoPath, err := o.renderer.RenderAll(ctx, projectID, scenes, scratchDir)
	if err != nil {
		return "", fmt.Errorf("render video: %w", err)
	}

	o.report(progress, projectID, model.StepUploading)
	return o.publish(ctx, projectID, videoPath)
}

func (o *Orchestrator) report(progress ProgressFunc, projectID, step string) {
	if progress == nil {
		return
	}
	if err := progress(step); err != nil {
		log.Printf("orchestrator: progress callback failed for project %s at %s: %v", projectID, step, err)
	}
}

// archiveSource keeps a copy of the uploaded document next to the
// project's other artifacts. Failure is logged, not fatal.
func (o *Orchestrator) archiveSource(ctx context.Context, projectID, sourcePath string) {
	if o.storage == nil {
		return
	}
	key := fmt.Sprintf("projects/%s/source%s", projectID, filepath.Ext(sourcePath))
	if _, err := o.storage.UploadFile(ctx, sourcePath, key, "application/pdf"); err != nil {
		log.Printf("orchestrator: failed to archive source for project %s: %v", projectID, err)
	}
}

// publish uploads the finished video and returns a time limited URL. With
// no storage configured the video is moved out of the scratch dir so it
// survives cleanup.
func (o *Orchestrator) publish(ctx context.Context, projectID, videoPath string) (string, error) {
	if o.storage == nil {
		dest := filepath.Join(os.TempDir(), fmt.Sprintf("sketchcourse-%s.mp4", projectID))
		if err := os.Rename(videoPath, dest); err != nil {
			return "", fmt.Errorf("move final video: %w", err)
		}
		log.Printf("orchestrator: no object storage configured, final video kept at %s", dest)
		return dest, nil
	}

	key := fmt.Sprintf("projects/%s/final.mp4", projectID)
	if _, err := o.storage.UploadFile(ctx, videoPath, key, "video/mp4"); err != nil {
		return "", fmt.Errorf("upload final video: %w", err)
	}

	url, err := o.storage.GetSignedURL(ctx, key, o.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("sign video url: %w", err)
	}
	return url, nil
}

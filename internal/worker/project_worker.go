// Package worker hosts the asynq task handlers that drive the pipeline.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/pipeline"
	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/internal/websocket"
)

// ProjectWorker runs the document-to-video pipeline for queued projects.
type ProjectWorker struct {
	projectService *service.ProjectService
	orchestrator   *pipeline.Orchestrator
	hub            *websocket.Hub
}

func NewProjectWorker(projectService *service.ProjectService, orchestrator *pipeline.Orchestrator, hub *websocket.Hub) *ProjectWorker {
	return &ProjectWorker{
		projectService: projectService,
		orchestrator:   orchestrator,
		hub:            hub,
	}
}

// ProcessTask handles one project pipeline task. The task never retries at
// the queue level; the pipeline's own retry policy governs provider calls,
// and a failed run leaves the project terminally failed.
func (w *ProjectWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ProjectJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal project payload: %w", err)
	}

	projectID := payload.ProjectID
	log.Printf("Starting pipeline for project %s (%s)", projectID, payload.Filename)

	videoURL, err := w.orchestrator.Run(ctx, projectID, payload.SourcePath, func(step string) error {
		if updateErr := w.projectService.UpdateStep(ctx, projectID, step); updateErr != nil {
			return updateErr
		}
		w.hub.BroadcastStep(projectID, model.ProjectStatusProcessing, step)
		return nil
	})
	if err != nil {
		w.failProject(ctx, projectID, err)
		return err
	}

	if markErr := w.projectService.MarkCompleted(ctx, projectID, videoURL); markErr != nil {
		log.Printf("Failed to mark project %s completed: %v", projectID, markErr)
	}
	w.hub.BroadcastComplete(projectID, videoURL)

	log.Printf("Pipeline completed for project %s", projectID)
	return nil
}

func (w *ProjectWorker) failProject(ctx context.Context, projectID string, cause error) {
	log.Printf("Pipeline failed for project %s: %v", projectID, cause)
	if markErr := w.projectService.MarkFailed(ctx, projectID, cause.Error()); markErr != nil {
		log.Printf("Failed to mark project %s failed: %v", projectID, markErr)
	}
	w.hub.BroadcastError(projectID, cause.Error())
}

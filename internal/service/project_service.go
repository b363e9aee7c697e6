package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/store"
)

const TaskTypeProject = "project:process"

// ProjectService manages project lifecycle records and queues pipeline
// runs. Status writes refuse to move a project out of a terminal state.
type ProjectService struct {
	store       store.ProjectStore
	asynqClient *asynq.Client
}

func NewProjectService(projectStore store.ProjectStore, asynqClient *asynq.Client) *ProjectService {
	return &ProjectService{
		store:       projectStore,
		asynqClient: asynqClient,
	}
}

// Submit registers a new project as queued and enqueues its pipeline task.
func (s *ProjectService) Submit(ctx context.Context, sourcePath, filename string) (*model.CreateProjectResponse, error) {
	projectID := uuid.New().String()
	now := time.Now()

	project := &model.Project{
		ID:        projectID,
		Status:    model.ProjectStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to save project: %w", err)
	}

	task, err := newProjectTask(&model.ProjectJobPayload{
		ProjectID:  projectID,
		SourcePath: sourcePath,
		Filename:   filename,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("pipeline"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.CreateProjectResponse{
		ProjectID: projectID,
		Status:    model.ProjectStatusQueued,
		CreatedAt: now,
	}, nil
}

// GetStatus returns the project record, distinguishing an unknown project
// from a lookup failure.
func (s *ProjectService) GetStatus(ctx context.Context, projectID string) (*model.Project, bool, error) {
	return s.store.Get(ctx, projectID)
}

// ListStatuses resolves many projects at once, preserving the requested
// order and omitting unknown IDs.
func (s *ProjectService) ListStatuses(ctx context.Context, projectIDs []string) ([]*model.Project, error) {
	projects := make([]*model.Project, 0, len(projectIDs))
	for _, id := range projectIDs {
		project, found, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

// UpdateStep records pipeline progress. Updates after a terminal state are
// dropped so a late callback cannot resurrect a finished project.
func (s *ProjectService) UpdateStep(ctx context.Context, projectID, step string) error {
	return s.mutate(ctx, projectID, func(p *model.Project) {
		p.Status = model.ProjectStatusProcessing
		p.Step = step
	})
}

// MarkCompleted finalizes a successful run with the video URL.
func (s *ProjectService) MarkCompleted(ctx context.Context, projectID, videoURL string) error {
	return s.mutate(ctx, projectID, func(p *model.Project) {
		p.Status = model.ProjectStatusCompleted
		p.Step = ""
		p.VideoURL = videoURL
	})
}

// MarkFailed finalizes a failed run with a reason.
func (s *ProjectService) MarkFailed(ctx context.Context, projectID, reason string) error {
	return s.mutate(ctx, projectID, func(p *model.Project) {
		p.Status = model.ProjectStatusFailed
		p.Step = ""
		p.Error = &reason
	})
}

func (s *ProjectService) mutate(ctx context.Context, projectID string, apply func(*model.Project)) error {
	project, found, err := s.store.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("project %s not found", projectID)
	}
	if project.Status == model.ProjectStatusCompleted || project.Status == model.ProjectStatusFailed {
		return nil
	}

	apply(project)
	project.UpdatedAt = time.Now()
	return s.store.Save(ctx, project)
}

func newProjectTask(payload *model.ProjectJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeProject, data), nil
}

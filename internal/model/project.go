package model

import "time"

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusQueued     ProjectStatus = "queued"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// Pipeline step labels, in execution order. Reported while status is
// "processing"; never revisited once a later step has been observed.
const (
	StepIngesting  = "ingesting"
	StepExtracting = "extracting"
	StepScripting  = "scripting"
	StepStoryboard = "storyboard"
	StepScenes     = "scenes"
	StepRendering  = "rendering"
	StepUploading  = "uploading"
)

// Project is the status snapshot persisted per project and returned to
// polling clients. Error is set iff failed, VideoURL iff completed.
type Project struct {
	ID        string        `json:"id"`
	Status    ProjectStatus `json:"status"`
	Step      string        `json:"step,omitempty"`
	Error     *string       `json:"error,omitempty"`
	VideoURL  string        `json:"videoUrl,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// ProjectJobPayload is the asynq task payload for a pipeline run.
type ProjectJobPayload struct {
	ProjectID  string `json:"projectId"`
	SourcePath string `json:"sourcePath"`
	Filename   string `json:"filename"`
}

// CreateProjectResponse is returned by POST /api/projects.
type CreateProjectResponse struct {
	ProjectID string        `json:"projectId"`
	Status    ProjectStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

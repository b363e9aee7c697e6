package model

// OutlineGenerateRequest is the body for POST /api/outline/generate.
type OutlineGenerateRequest struct {
	Chunks []string `json:"chunks" validate:"required,min=1,dive,required"`
}

// OutlineGenerateResponse wraps the merged outline.
type OutlineGenerateResponse struct {
	Outline *Outline `json:"outline"`
}

// StoryboardGenerateRequest is the body for POST /api/storyboard/generate.
// Exactly one of Outline or Text should be provided.
type StoryboardGenerateRequest struct {
	Outline *Outline `json:"outline,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// StoryboardGenerateResponse wraps a generated storyboard.
type StoryboardGenerateResponse struct {
	Storyboard *Storyboard `json:"storyboard"`
}

// SketchGenerateRequest is the body for POST /api/sketches/generate.
type SketchGenerateRequest struct {
	Description string   `json:"description" validate:"required"`
	Accents     []string `json:"accents,omitempty"`
	AllowText   *bool    `json:"allow_text,omitempty"`
}

// SketchBatchRequest is the body for POST /api/sketches/generate_batch.
type SketchBatchRequest struct {
	Items []SketchGenerateRequest `json:"items" validate:"required,min=1,dive"`
}

// SketchResult describes one generated sketch.
type SketchResult struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// SketchGenerateResponse wraps a single sketch.
type SketchGenerateResponse struct {
	Sketch *SketchResult `json:"sketch"`
}

// SketchBatchResponse wraps a batch of sketches, in request order.
type SketchBatchResponse struct {
	Sketches []*SketchResult `json:"sketches"`
}

// ProjectStatusListRequest is the body for POST /api/projects/status.
type ProjectStatusListRequest struct {
	ProjectIDs []string `json:"projectIds" validate:"required,min=1,dive,required"`
}

// ProjectStatusListResponse returns the known projects in request order.
type ProjectStatusListResponse struct {
	Projects []*Project `json:"projects"`
}

// DocumentProcessResponse is returned by POST /api/documents/process.
type DocumentProcessResponse struct {
	DocumentID string             `json:"document_id"`
	SourceURL  string             `json:"source_url,omitempty"`
	Processed  *ExtractedDocument `json:"processed"`
}

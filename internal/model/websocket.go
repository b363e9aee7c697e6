package model

// WebSocket message types
const (
	WSMessageTypeStep     = "step"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the bare envelope used for client keep-alives.
type WSMessage struct {
	Type string `json:"type"`
}

// WSStepMessage announces a pipeline step change for a project.
type WSStepMessage struct {
	Type      string        `json:"type"`
	ProjectID string        `json:"projectId"`
	Status    ProjectStatus `json:"status"`
	Step      string        `json:"step,omitempty"`
}

// WSCompleteMessage announces pipeline completion with the artifact URL.
type WSCompleteMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	VideoURL  string `json:"videoUrl"`
}

// WSErrorMessage announces a terminal pipeline failure.
type WSErrorMessage struct {
	Type      string `json:"type"`
	ProjectID string `json:"projectId"`
	Error     string `json:"error"`
}

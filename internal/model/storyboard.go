package model

// SceneSpec is one entry of a storyboard as produced by the structured
// generation call. Immutable once the storyboard exists.
type SceneSpec struct {
	ID           int      `json:"id"`
	Narration    string   `json:"narration"`
	VisualPrompt string   `json:"visual_prompt"`
	TextOverlay  string   `json:"text_overlay,omitempty"`
	Accents      []string `json:"accents,omitempty"`
	Duration     float64  `json:"duration_seconds"`
}

// Storyboard is the ordered scene specification for one project.
type Storyboard struct {
	Title  string      `json:"title"`
	Scenes []SceneSpec `json:"scenes"`
}

// Scene is a fully materialized, renderable unit: the sketch on disk, the
// optional narration audio on disk, and final timing. Scenes[i] always
// corresponds to Storyboard.Scenes[i].
type Scene struct {
	Index       int
	SketchPath  string
	TextOverlay string
	Duration    float64
	Motion      string
	AudioPath   string
	Narration   string
}

// Script is the scene-by-scene script generated from extracted text. It
// shares the storyboard shape; the storyboard stage refines it.
type Script = Storyboard

// Outline is the merged educational outline extracted from document chunks.
type Outline struct {
	Topics         []string            `json:"topics"`
	Subtopics      map[string][]string `json:"subtopics"`
	KeyConcepts    []string            `json:"key_concepts"`
	Definitions    map[string]string   `json:"definitions"`
	SuggestedOrder []string            `json:"suggested_order,omitempty"`
}

// ExtractedDocument is the output of the text-extraction stage.
type ExtractedDocument struct {
	FullText string            `json:"full_text"`
	Sections []DocumentSection `json:"sections"`
	Chunks   []string          `json:"chunks"`
}

// DocumentSection is a heuristically detected titled section.
type DocumentSection struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/runner"
	"github.com/sketchcourse/api/pkg/loosejson"
)

const scriptSystemPrompt = `You are an expert educational content creator for TikTok/YouTube Shorts.
Your goal is to turn dense academic text into a fast-paced, visually engaging video script.

STYLE GUIDE:
- Fast Paced: no long monologues. Change visuals every 3-5 seconds.
- Visual First: the narration should support the visual, not the other way around.
- Simple Language: explain like I'm 12. Use analogies.
- Sketch Style: the visuals will be hand-drawn sketches. Keep prompts simple and iconic.
- Colors: black (primary), blue, red, green, yellow (accents).

OUTPUT FORMAT (JSON):
{
  "title": "Catchy Title",
  "scenes": [
    {
      "id": 1,
      "narration": "Spoken text here...",
      "visual_prompt": "Description of the sketch to draw...",
      "text_overlay": "Short text on screen (optional)",
      "accents": ["blue", "red"],
      "duration_seconds": 4
    }
  ]
}`

const outlineSystemPrompt = `You are a senior curriculum designer. Extract structured educational metadata
from this chunk of text.

Return strictly valid JSON:
{
  "topics": [string],
  "subtopics": { topic: [subtopic list] },
  "key_concepts": [string],
  "definitions": { term: definition }
}

Absolutely no made-up topics or terms.
Only return what is explicitly present or strongly implied.`

const orderSystemPrompt = `You are an expert educator. Based on the topics extracted, produce a logical
teaching order that progresses from beginner to intermediate to advanced.

Return JSON:
{ "order": [topic1, topic2, ...] }`

// Input text is truncated before prompting to stay inside context windows.
const (
	maxScriptInput  = 20000
	maxOutlineInput = 15000
)

// ScriptService runs the structured generation calls: script, storyboard,
// and outline extraction.
type ScriptService struct {
	llm        *client.OpenAIClient
	outlineCfg runner.Config
}

func NewScriptService(llm *client.OpenAIClient, pipelineCfg *config.PipelineConfig) *ScriptService {
	conc := 3
	if pipelineCfg != nil && pipelineCfg.OutlineConcurrency > 0 {
		conc = pipelineCfg.OutlineConcurrency
	}
	return &ScriptService{
		llm: llm,
		outlineCfg: runner.Config{
			MaxConcurrency: conc,
		},
	}
}

// GenerateScript builds a scene-by-scene script from extracted text.
func (s *ScriptService) GenerateScript(ctx context.Context, text string, targetMinutes int) (*model.Script, error) {
	if text == "" {
		return nil, &model.InvalidInputError{Field: "text", Reason: "empty document text"}
	}
	if !s.llm.IsConfigured() {
		return mockStoryboard("Mock Script"), nil
	}

	user := fmt.Sprintf("Source Text:\n%s\n\nTarget Duration: %d minutes.\nCreate a script that explains the core concepts efficiently.",
		truncate(text, maxScriptInput), targetMinutes)

	raw, err := s.llm.ChatCompletionJSON(ctx, scriptSystemPrompt, user, 0.7)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	var script model.Script
	if err := loosejson.Decode(raw, &script); err != nil {
		return nil, err
	}
	return &script, nil
}

// GenerateStoryboard turns a script, an outline, or raw text into the final
// storyboard used for scene composition.
func (s *ScriptService) GenerateStoryboard(ctx context.Context, input interface{}) (*model.Storyboard, error) {
	content, err := storyboardInput(input)
	if err != nil {
		return nil, err
	}
	if !s.llm.IsConfigured() {
		return mockStoryboard("Mock Storyboard"), nil
	}

	user := fmt.Sprintf("Create a short video storyboard from this content:\n\n%s", content)

	raw, err := s.llm.ChatCompletionJSON(ctx, scriptSystemPrompt, user, 0.7)
	if err != nil {
		return nil, fmt.Errorf("storyboard generation failed: %w", err)
	}

	var sb model.Storyboard
	if err := loosejson.Decode(raw, &sb); err != nil {
		return nil, err
	}
	return &sb, nil
}

// GenerateOutline extracts a per-chunk outline in parallel, merges the
// results preserving first-seen order, then asks for a global teaching order.
func (s *ScriptService) GenerateOutline(ctx context.Context, chunks []string) (*model.Outline, error) {
	if len(chunks) == 0 {
		return nil, &model.InvalidInputError{Field: "chunks", Reason: "no chunks provided"}
	}
	if !s.llm.IsConfigured() {
		return mockOutline(), nil
	}

	outlines, err := runner.Run(ctx, chunks, s.outlineCfg, func(ctx context.Context, chunk string) (*model.Outline, error) {
		return s.outlineForChunk(ctx, chunk)
	})
	if err != nil {
		return nil, fmt.Errorf("outline extraction failed: %w", err)
	}

	merged := mergeOutlines(outlines)

	order, err := s.globalOrder(ctx, merged.Topics)
	if err != nil {
		// The merged outline is still useful without an ordering pass.
		log.Printf("outline ordering failed: %v", err)
	} else {
		merged.SuggestedOrder = order
	}

	return merged, nil
}

func (s *ScriptService) outlineForChunk(ctx context.Context, chunk string) (*model.Outline, error) {
	user := fmt.Sprintf("Extract outline components from this text:\n\n%s", truncate(chunk, maxOutlineInput))

	raw, err := s.llm.ChatCompletionJSON(ctx, outlineSystemPrompt, user, 0.1)
	if err != nil {
		return nil, err
	}

	var o model.Outline
	if err := loosejson.Decode(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *ScriptService) globalOrder(ctx context.Context, topics []string) ([]string, error) {
	user := fmt.Sprintf("Topics: %v", topics)

	raw, err := s.llm.ChatCompletionJSON(ctx, orderSystemPrompt, user, 0.2)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Order []string `json:"order"`
	}
	if err := loosejson.Decode(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// IsConfigured reports whether real generation is available.
func (s *ScriptService) IsConfigured() bool {
	return s.llm.IsConfigured()
}

// mergeOutlines combines per-chunk outlines, de-duplicating while keeping
// first-seen order.
func mergeOutlines(outlines []*model.Outline) *model.Outline {
	merged := &model.Outline{
		Topics:      []string{},
		Subtopics:   map[string][]string{},
		KeyConcepts: []string{},
		Definitions: map[string]string{},
	}

	seenTopics := map[string]bool{}
	seenConcepts := map[string]bool{}

	for _, o := range outlines {
		if o == nil {
			continue
		}
		for _, t := range o.Topics {
			if !seenTopics[t] {
				seenTopics[t] = true
				merged.Topics = append(merged.Topics, t)
			}
		}
		for topic, subs := range o.Subtopics {
			existing := merged.Subtopics[topic]
			for _, sub := range subs {
				if !containsString(existing, sub) {
					existing = append(existing, sub)
				}
			}
			merged.Subtopics[topic] = existing
		}
		for _, k := range o.KeyConcepts {
			if !seenConcepts[k] {
				seenConcepts[k] = true
				merged.KeyConcepts = append(merged.KeyConcepts, k)
			}
		}
		for term, def := range o.Definitions {
			if _, ok := merged.Definitions[term]; !ok {
				merged.Definitions[term] = def
			}
		}
	}

	return merged
}

func storyboardInput(input interface{}) (string, error) {
	switch v := input.(type) {
	case string:
		if v == "" {
			return "", &model.InvalidInputError{Field: "text", Reason: "empty storyboard input"}
		}
		return truncate(v, maxOutlineInput), nil
	case *model.Outline:
		if v == nil {
			return "", &model.InvalidInputError{Field: "outline", Reason: "no outline provided"}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal outline: %w", err)
		}
		return string(data), nil
	case *model.Script:
		if v == nil {
			return "", &model.InvalidInputError{Field: "script", Reason: "no script provided"}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal script: %w", err)
		}
		return string(data), nil
	default:
		return "", &model.InvalidInputError{Field: "input", Reason: "unsupported storyboard input type"}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func mockStoryboard(title string) *model.Storyboard {
	return &model.Storyboard{
		Title: title,
		Scenes: []model.SceneSpec{
			{ID: 1, Narration: "Every big idea starts with a simple question.", VisualPrompt: "a lightbulb above a stick figure's head", TextOverlay: "The Big Idea", Accents: []string{"yellow"}, Duration: 4},
			{ID: 2, Narration: "Let's break it down step by step.", VisualPrompt: "three numbered boxes connected by arrows", Accents: []string{"blue"}, Duration: 4},
			{ID: 3, Narration: "And that's the core concept in a nutshell.", VisualPrompt: "a nutshell with a star inside", TextOverlay: "Done!", Accents: []string{"green"}, Duration: 4},
		},
	}
}

func mockOutline() *model.Outline {
	return &model.Outline{
		Topics:      []string{"Introduction", "Core Concepts", "Applications"},
		Subtopics:   map[string][]string{"Core Concepts": {"Definitions", "Examples"}},
		KeyConcepts: []string{"first principles"},
		Definitions: map[string]string{"concept": "a general idea"},
		SuggestedOrder: []string{
			"Introduction", "Core Concepts", "Applications",
		},
	}
}

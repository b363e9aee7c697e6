package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sketchcourse/api/internal/client"
)

// SpeechService turns narration text into audio files in a project's
// scratch area.
type SpeechService struct {
	client *client.OpenAIClient
}

func NewSpeechService(c *client.OpenAIClient) *SpeechService {
	return &SpeechService{client: c}
}

// SynthesizeToFile writes narration audio into destDir and returns the
// local path. Empty text (and an unconfigured provider) yields an empty
// path with no error: the scene simply has no audio track.
func (s *SpeechService) SynthesizeToFile(ctx context.Context, text, destDir string) (string, error) {
	if text == "" || !s.client.IsConfigured() {
		return "", nil
	}

	audio, err := s.client.Synthesize(ctx, text)
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	if len(audio) == 0 {
		return "", nil
	}

	path := filepath.Join(destDir, fmt.Sprintf("audio_%s.mp3", uuid.New().String()))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	return path, nil
}

// IsConfigured returns true if the speech provider is configured.
func (s *SpeechService) IsConfigured() bool {
	return s.client.IsConfigured()
}

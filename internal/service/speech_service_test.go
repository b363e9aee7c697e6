package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
)

func TestSynthesizeToFile_EmptyTextProducesNoAudio(t *testing.T) {
	svc := NewSpeechService(client.NewOpenAIClient(&config.OpenAIConfig{}))

	path, err := svc.SynthesizeToFile(context.Background(), "", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestSynthesizeToFile_UnconfiguredProviderIsSilent(t *testing.T) {
	svc := NewSpeechService(client.NewOpenAIClient(&config.OpenAIConfig{}))

	path, err := svc.SynthesizeToFile(context.Background(), "hello world", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, path)
}

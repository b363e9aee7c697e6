package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
)

func unconfiguredSketchService() *SketchService {
	return NewSketchService(
		client.NewReplicateClient(&config.ReplicateConfig{}),
		nil,
		&config.ReplicateConfig{},
	)
}

func TestBuildPrompt_DefaultAccents(t *testing.T) {
	svc := unconfiguredSketchService()

	prompt := svc.BuildPrompt("a water cycle diagram", nil, false)
	assert.Contains(t, prompt, "Draw: a water cycle diagram.")
	assert.Contains(t, prompt, "blue, red, green, yellow")
	assert.Contains(t, prompt, "Do NOT include any text")
}

func TestBuildPrompt_CustomAccentsAndLabels(t *testing.T) {
	svc := unconfiguredSketchService()

	prompt := svc.BuildPrompt("a neuron", []string{"purple", "orange"}, true)
	assert.Contains(t, prompt, "purple, orange")
	assert.NotContains(t, prompt, "blue, red, green, yellow")
	assert.Contains(t, prompt, "handwritten labels")
}

func TestGenerate_MissingDescription(t *testing.T) {
	svc := unconfiguredSketchService()

	_, err := svc.Generate(context.Background(), model.SketchGenerateRequest{})
	require.Error(t, err)

	var invalid *model.InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "description", invalid.Field)
}

func TestGenerate_UnconfiguredProviderReturnsPlaceholder(t *testing.T) {
	svc := unconfiguredSketchService()

	result, err := svc.Generate(context.Background(), model.SketchGenerateRequest{Description: "a cat"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.URL)
	assert.Contains(t, result.Prompt, "Draw: a cat.")
}

func TestGenerateToFile_WritesPNG(t *testing.T) {
	svc := unconfiguredSketchService()
	dir := t.TempDir()

	path, err := svc.GenerateToFile(context.Background(), model.SketchGenerateRequest{Description: "a tree"}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}

func TestGenerateBatch_ResultsInRequestOrder(t *testing.T) {
	svc := unconfiguredSketchService()

	items := []model.SketchGenerateRequest{
		{Description: "first"},
		{Description: "second"},
		{Description: "third"},
	}
	results, err := svc.GenerateBatch(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Contains(t, results[0].Prompt, "Draw: first.")
	assert.Contains(t, results[1].Prompt, "Draw: second.")
	assert.Contains(t, results[2].Prompt, "Draw: third.")
}

func TestBatchConfig_SerialWithSpacing(t *testing.T) {
	svc := NewSketchService(
		client.NewReplicateClient(&config.ReplicateConfig{}),
		nil,
		&config.ReplicateConfig{Spacing: 10 * time.Second, MaxAttempts: 5},
	)

	cfg := svc.BatchConfig()
	assert.Equal(t, 1, cfg.MaxConcurrency)
	assert.Equal(t, 5, cfg.Backoff.MaxAttempts)
}

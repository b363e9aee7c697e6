package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
	"github.com/sketchcourse/api/internal/runner"
)

type fakeSketcher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	cfg   runner.Config
}

func (f *fakeSketcher) GenerateToFile(ctx context.Context, req model.SketchGenerateRequest, destDir string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Description)
	f.mu.Unlock()
	if err, ok := f.fail[req.Description]; ok {
		return "", err
	}
	return destDir + "/sketch_" + req.Description + ".png", nil
}

func (f *fakeSketcher) BatchConfig() runner.Config {
	if f.cfg.MaxConcurrency == 0 {
		return runner.Config{MaxConcurrency: 1}
	}
	return f.cfg
}

type fakeSpeaker struct {
	fail  error
	delay time.Duration
}

func (f *fakeSpeaker) SynthesizeToFile(ctx context.Context, text, destDir string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail != nil {
		return "", f.fail
	}
	return destDir + "/audio_" + text + ".mp3", nil
}

type fakeProber struct {
	durations map[string]float64
}

func (f *fakeProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	d, ok := f.durations[path]
	if !ok {
		return 0, fmt.Errorf("unknown audio file %s", path)
	}
	return d, nil
}

func testComposer(sk *fakeSketcher, sp *fakeSpeaker, pr *fakeProber) *Composer {
	return NewComposer(sk, sp, pr, &config.PipelineConfig{
		SpeechConcurrency:  4,
		SpeechBatchTimeout: 5 * time.Second,
	})
}

func storyboard(specs ...model.SceneSpec) *model.Storyboard {
	return &model.Storyboard{Title: "Test", Scenes: specs}
}

func TestCompose_OrderMatchesStoryboard(t *testing.T) {
	sk := &fakeSketcher{cfg: runner.Config{MaxConcurrency: 3}}
	pr := &fakeProber{durations: map[string]float64{}}
	specs := make([]model.SceneSpec, 6)
	for i := range specs {
		specs[i] = model.SceneSpec{
			ID:           i + 1,
			Narration:    fmt.Sprintf("n%d", i),
			VisualPrompt: fmt.Sprintf("v%d", i),
			Duration:     4,
		}
		pr.durations[fmt.Sprintf("/tmp/audio_n%d.mp3", i)] = 2
	}

	scenes, err := testComposer(sk, &fakeSpeaker{}, pr).Compose(context.Background(), storyboard(specs...), "/tmp")
	require.NoError(t, err)
	require.Len(t, scenes, 6)
	for i, s := range scenes {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, fmt.Sprintf("/tmp/sketch_v%d.png", i), s.SketchPath)
		assert.Equal(t, fmt.Sprintf("/tmp/audio_n%d.mp3", i), s.AudioPath)
	}
}

func TestCompose_DurationStretchesToAudio(t *testing.T) {
	sk := &fakeSketcher{}
	pr := &fakeProber{durations: map[string]float64{"/tmp/audio_long.mp3": 6}}

	scenes, err := testComposer(sk, &fakeSpeaker{}, pr).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, Narration: "long", VisualPrompt: "v", Duration: 4},
	), "/tmp")
	require.NoError(t, err)
	assert.InDelta(t, 6.5, scenes[0].Duration, 0.001)
}

func TestCompose_DurationKeepsSpecWhenAudioShorter(t *testing.T) {
	sk := &fakeSketcher{}
	pr := &fakeProber{durations: map[string]float64{"/tmp/audio_short.mp3": 1}}

	scenes, err := testComposer(sk, &fakeSpeaker{}, pr).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, Narration: "short", VisualPrompt: "v", Duration: 4},
	), "/tmp")
	require.NoError(t, err)
	assert.InDelta(t, 4, scenes[0].Duration, 0.001)
}

func TestCompose_SilentSceneKeepsSpecDuration(t *testing.T) {
	sk := &fakeSketcher{}
	pr := &fakeProber{durations: map[string]float64{}}

	scenes, err := testComposer(sk, &fakeSpeaker{}, pr).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, VisualPrompt: "v", Duration: 4},
	), "/tmp")
	require.NoError(t, err)
	assert.Empty(t, scenes[0].AudioPath)
	assert.InDelta(t, 4, scenes[0].Duration, 0.001)
}

func TestCompose_MissingVisualPromptFailsWithoutRetry(t *testing.T) {
	sk := &fakeSketcher{}

	_, err := testComposer(sk, &fakeSpeaker{}, &fakeProber{}).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, Narration: "n", Duration: 4},
	), "/tmp")
	require.Error(t, err)

	var invalid *model.InvalidInputError
	assert.True(t, errors.As(err, &invalid))
	assert.Empty(t, sk.calls)
}

func TestCompose_SketchFailureAbortsWholeBatch(t *testing.T) {
	sk := &fakeSketcher{fail: map[string]error{"v1": errors.New("provider down")}}

	scenes, err := testComposer(sk, &fakeSpeaker{}, &fakeProber{}).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, VisualPrompt: "v0", Duration: 4},
		model.SceneSpec{ID: 2, VisualPrompt: "v1", Duration: 4},
		model.SceneSpec{ID: 3, VisualPrompt: "v2", Duration: 4},
	), "/tmp")
	require.Error(t, err)
	assert.Nil(t, scenes)
}

func TestCompose_SpeechFailureAbortsWholeBatch(t *testing.T) {
	sk := &fakeSketcher{}
	sp := &fakeSpeaker{fail: errors.New("tts unavailable")}

	scenes, err := testComposer(sk, sp, &fakeProber{}).Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, Narration: "n", VisualPrompt: "v", Duration: 4},
	), "/tmp")
	require.Error(t, err)
	assert.Nil(t, scenes)
}

func TestCompose_SpeechBatchDeadlineCoversWholeBatch(t *testing.T) {
	sk := &fakeSketcher{}
	sp := &fakeSpeaker{delay: 2 * time.Second}
	composer := NewComposer(sk, sp, &fakeProber{}, &config.PipelineConfig{
		SpeechConcurrency:  4,
		SpeechBatchTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	scenes, err := composer.Compose(context.Background(), storyboard(
		model.SceneSpec{ID: 1, Narration: "n0", VisualPrompt: "v0", Duration: 4},
		model.SceneSpec{ID: 2, Narration: "n1", VisualPrompt: "v1", Duration: 4},
	), "/tmp")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, scenes)
	// The window bounds the batch, not each item, so the failure lands
	// shortly after 50ms rather than after either synthesis finishes.
	assert.Less(t, elapsed, time.Second)
}

func TestCompose_EmptyStoryboard(t *testing.T) {
	scenes, err := testComposer(&fakeSketcher{}, &fakeSpeaker{}, &fakeProber{}).Compose(context.Background(), storyboard(), "/tmp")
	require.NoError(t, err)
	assert.Empty(t, scenes)
}

// Package render turns composed scenes into MP4 clips with ffmpeg and
// concatenates them into the final video.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/model"
)

// stderrTailLimit bounds how much ffmpeg output a RenderError carries.
const stderrTailLimit = 2048

// RenderError reports a failed ffmpeg invocation for a single scene.
// Render failures are never retried.
type RenderError struct {
	SceneIndex int
	Stderr     string
	Err        error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render scene %d: %v", e.SceneIndex, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Engine abstracts the ffmpeg layer so the renderer can be tested without
// the binaries installed.
type Engine interface {
	RenderScene(ctx context.Context, scene model.Scene, motion Motion, outPath string) error
	Concat(ctx context.Context, clipPaths []string, outPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// FFmpegEngine shells out to ffmpeg and ffprobe.
type FFmpegEngine struct {
	ffmpeg   string
	ffprobe  string
	fontPath string
	width    int
	height   int
	fps      int
}

func NewFFmpegEngine(cfg *config.RenderConfig) *FFmpegEngine {
	e := &FFmpegEngine{
		ffmpeg:   cfg.FFmpegPath,
		ffprobe:  cfg.FFprobePath,
		fontPath: cfg.FontPath,
		width:    cfg.Width,
		height:   cfg.Height,
		fps:      cfg.FPS,
	}
	if e.ffmpeg == "" {
		e.ffmpeg = "ffmpeg"
	}
	if e.ffprobe == "" {
		e.ffprobe = "ffprobe"
	}
	if e.width == 0 {
		e.width = 1280
	}
	if e.height == 0 {
		e.height = 720
	}
	if e.fps == 0 {
		e.fps = 25
	}
	return e
}

// RenderScene encodes one sketch into a clip with a camera move, an
// optional text overlay and either the narration track or silence.
func (e *FFmpegEngine) RenderScene(ctx context.Context, scene model.Scene, motion Motion, outPath string) error {
	args := e.sceneArgs(scene, motion, outPath)

	cmd := exec.CommandContext(ctx, e.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &RenderError{SceneIndex: scene.Index, Stderr: tail(stderr.String()), Err: err}
	}
	return nil
}

// sceneArgs builds the full ffmpeg argument list. Split out for testing.
func (e *FFmpegEngine) sceneArgs(scene model.Scene, motion Motion, outPath string) []string {
	duration := strconv.FormatFloat(scene.Duration, 'f', 3, 64)

	args := []string{
		"-y",
		"-loop", "1", "-t", duration, "-i", scene.SketchPath,
	}
	if scene.AudioPath != "" {
		args = append(args, "-i", scene.AudioPath)
	} else {
		args = append(args, "-f", "lavfi", "-t", duration, "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	}

	args = append(args,
		"-filter_complex", e.sceneFilter(scene, motion),
		"-map", "[v]", "-map", "1:a",
		"-c:v", "libx264", "-preset", "ultrafast",
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(e.fps),
		"-c:a", "aac",
		"-shortest",
		outPath,
	)
	return args
}

func (e *FFmpegEngine) sceneFilter(scene model.Scene, motion Motion) string {
	frames := int(scene.Duration * float64(e.fps))
	if frames < 1 {
		frames = 1
	}
	zoom, x, y := zoompanExpr(motion)

	var b strings.Builder
	fmt.Fprintf(&b, "[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=white",
		e.width, e.height, e.width, e.height)
	fmt.Fprintf(&b, ",zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zoom, x, y, frames, e.width, e.height, e.fps)
	if scene.TextOverlay != "" {
		fmt.Fprintf(&b, ",drawtext=%s", e.drawtextArgs(scene.TextOverlay))
	}
	b.WriteString("[v]")
	return b.String()
}

func (e *FFmpegEngine) drawtextArgs(text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "text='%s'", escapeDrawtext(text))
	if e.fontPath != "" {
		fmt.Fprintf(&b, ":fontfile=%s", e.fontPath)
	}
	b.WriteString(":fontsize=44:fontcolor=black:box=1:boxcolor=white@0.7:boxborderw=12:x=(w-text_w)/2:y=h-text_h-40")
	return b.String()
}

// Concat joins finished clips with the concat demuxer and stream copy, so
// ordering is the only thing it can get wrong.
func (e *FFmpegEngine) Concat(ctx context.Context, clipPaths []string, outPath string) error {
	listPath := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	var list strings.Builder
	for _, p := range clipPaths {
		fmt.Fprintf(&list, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-y", "-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("concat %d clips: %w (%s)", len(clipPaths), err, tail(stderr.String()))
	}
	return nil
}

// ProbeDuration reads a media file's duration in seconds via ffprobe.
func (e *FFmpegEngine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// escapeDrawtext neutralizes the characters drawtext treats specially.
func escapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "'", "")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, "%", "\\%")
	return text
}

func tail(s string) string {
	if len(s) <= stderrTailLimit {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(s[len(s)-stderrTailLimit:])
}

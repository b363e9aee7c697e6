package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	OpenAI    OpenAIConfig
	Replicate ReplicateConfig
	Storage   StorageConfig
	Render    RenderConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	ProjectsPerHour   int
	SketchesPerMin    int
	StoryboardsPerMin int
}

// OpenAIConfig covers both structured generation (chat completions) and
// speech synthesis, which share one API surface.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	TTSModel   string
	TTSVoice   string
	Timeout    int // seconds, per chat completion call
	TTSTimeout int // seconds, per synthesis call
}

// ReplicateConfig describes the sketch-generation provider. The provider
// enforces 6 requests/minute with no bursting, hence the serial batch with
// 10s post-completion spacing.
type ReplicateConfig struct {
	APIToken    string
	BaseURL     string
	Model       string
	Width       int
	Height      int
	Steps       int
	Guidance    float64
	Timeout     int // seconds, per generation call
	Spacing     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

type StorageConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	SignedURLExpiry time.Duration
}

type RenderConfig struct {
	FFmpegPath  string
	FFprobePath string
	FontPath    string
	Width       int
	Height      int
	FPS         int
	Concurrency int
	MotionSeed  int64 // 0 = derive from project ID
}

type PipelineConfig struct {
	ScratchDir         string
	SpeechConcurrency  int
	SpeechBatchTimeout time.Duration
	OutlineConcurrency int
	TargetMinutes      int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("OPENAI_API_KEY")
	readSecret("REPLICATE_API_TOKEN")
	readSecret("STORAGE_ACCOUNT_ID")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_MODEL")
	_ = viper.BindEnv("openai.tts_model", "OPENAI_TTS_MODEL")
	_ = viper.BindEnv("openai.tts_voice", "OPENAI_TTS_VOICE")
	_ = viper.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN")
	_ = viper.BindEnv("replicate.base_url", "REPLICATE_BASE_URL")
	_ = viper.BindEnv("replicate.model", "REPLICATE_MODEL")
	_ = viper.BindEnv("storage.account_id", "STORAGE_ACCOUNT_ID")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("render.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("render.ffprobe_path", "FFPROBE_PATH")
	_ = viper.BindEnv("render.font_path", "RENDER_FONT_PATH")
	_ = viper.BindEnv("render.concurrency", "RENDER_CONCURRENCY")
	_ = viper.BindEnv("pipeline.scratch_dir", "PIPELINE_SCRATCH_DIR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.projects_per_hour", 5)
	viper.SetDefault("ratelimit.sketches_per_min", 10)
	viper.SetDefault("ratelimit.storyboards_per_min", 10)

	// OpenAI defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("openai.tts_model", "tts-1")
	viper.SetDefault("openai.tts_voice", "alloy")
	viper.SetDefault("openai.timeout", 60)
	viper.SetDefault("openai.tts_timeout", 60)

	// Replicate defaults: flux-schnell at 1024x768
	viper.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	viper.SetDefault("replicate.model", "black-forest-labs/flux-schnell")
	viper.SetDefault("replicate.width", 1024)
	viper.SetDefault("replicate.height", 768)
	viper.SetDefault("replicate.steps", 4)
	viper.SetDefault("replicate.guidance", 3.5)
	viper.SetDefault("replicate.timeout", 120)
	viper.SetDefault("replicate.spacing_seconds", 10)
	viper.SetDefault("replicate.max_attempts", 5)
	viper.SetDefault("replicate.backoff_base_seconds", 2)

	// Storage defaults
	viper.SetDefault("storage.signed_url_expiry_hours", 168) // 7 days

	// Render defaults
	viper.SetDefault("render.ffmpeg_path", "ffmpeg")
	viper.SetDefault("render.ffprobe_path", "ffprobe")
	viper.SetDefault("render.font_path", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf")
	viper.SetDefault("render.width", 1280)
	viper.SetDefault("render.height", 720)
	viper.SetDefault("render.fps", 25)
	viper.SetDefault("render.concurrency", 8)
	viper.SetDefault("render.motion_seed", 0)

	// Pipeline defaults
	viper.SetDefault("pipeline.scratch_dir", os.TempDir())
	viper.SetDefault("pipeline.speech_concurrency", 4)
	viper.SetDefault("pipeline.speech_batch_timeout_seconds", 120)
	viper.SetDefault("pipeline.outline_concurrency", 3)
	viper.SetDefault("pipeline.target_minutes", 3)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			ProjectsPerHour:   viper.GetInt("ratelimit.projects_per_hour"),
			SketchesPerMin:    viper.GetInt("ratelimit.sketches_per_min"),
			StoryboardsPerMin: viper.GetInt("ratelimit.storyboards_per_min"),
		},
		OpenAI: OpenAIConfig{
			APIKey:     viper.GetString("openai.api_key"),
			BaseURL:    viper.GetString("openai.base_url"),
			Model:      viper.GetString("openai.model"),
			TTSModel:   viper.GetString("openai.tts_model"),
			TTSVoice:   viper.GetString("openai.tts_voice"),
			Timeout:    viper.GetInt("openai.timeout"),
			TTSTimeout: viper.GetInt("openai.tts_timeout"),
		},
		Replicate: ReplicateConfig{
			APIToken:    viper.GetString("replicate.api_token"),
			BaseURL:     viper.GetString("replicate.base_url"),
			Model:       viper.GetString("replicate.model"),
			Width:       viper.GetInt("replicate.width"),
			Height:      viper.GetInt("replicate.height"),
			Steps:       viper.GetInt("replicate.steps"),
			Guidance:    viper.GetFloat64("replicate.guidance"),
			Timeout:     viper.GetInt("replicate.timeout"),
			Spacing:     time.Duration(viper.GetInt("replicate.spacing_seconds")) * time.Second,
			MaxAttempts: viper.GetInt("replicate.max_attempts"),
			BackoffBase: time.Duration(viper.GetInt("replicate.backoff_base_seconds")) * time.Second,
		},
		Storage: StorageConfig{
			AccountID:       viper.GetString("storage.account_id"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
			SignedURLExpiry: time.Duration(viper.GetInt("storage.signed_url_expiry_hours")) * time.Hour,
		},
		Render: RenderConfig{
			FFmpegPath:  viper.GetString("render.ffmpeg_path"),
			FFprobePath: viper.GetString("render.ffprobe_path"),
			FontPath:    viper.GetString("render.font_path"),
			Width:       viper.GetInt("render.width"),
			Height:      viper.GetInt("render.height"),
			FPS:         viper.GetInt("render.fps"),
			Concurrency: viper.GetInt("render.concurrency"),
			MotionSeed:  viper.GetInt64("render.motion_seed"),
		},
		Pipeline: PipelineConfig{
			ScratchDir:         viper.GetString("pipeline.scratch_dir"),
			SpeechConcurrency:  viper.GetInt("pipeline.speech_concurrency"),
			SpeechBatchTimeout: time.Duration(viper.GetInt("pipeline.speech_batch_timeout_seconds")) * time.Second,
			OutlineConcurrency: viper.GetInt("pipeline.outline_concurrency"),
			TargetMinutes:      viper.GetInt("pipeline.target_minutes"),
		},
	}

	return cfg, nil
}

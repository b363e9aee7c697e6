package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sketchcourse/api/internal/client"
	"github.com/sketchcourse/api/internal/config"
	"github.com/sketchcourse/api/internal/extract"
	"github.com/sketchcourse/api/internal/handler"
	"github.com/sketchcourse/api/internal/middleware"
	"github.com/sketchcourse/api/internal/pipeline"
	"github.com/sketchcourse/api/internal/render"
	"github.com/sketchcourse/api/internal/service"
	"github.com/sketchcourse/api/internal/store"
	"github.com/sketchcourse/api/internal/worker"
	ws "github.com/sketchcourse/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize provider clients
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)
	replicateClient := client.NewReplicateClient(&cfg.Replicate)

	// Initialize object storage (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Printf("Warning: object storage not initialized: %v", err)
		} else {
			storageClient = s3Client
		}
	} else {
		log.Println("Info: object storage not configured, keeping artifacts on local disk")
	}

	// Project records follow the storage: persisted JSON documents in the
	// bucket, or on local disk when no bucket is configured.
	var projectStore store.ProjectStore
	if storageClient != nil {
		projectStore = store.NewObjectStore(storageClient)
	} else {
		localDir := filepath.Join(os.TempDir(), "sketchcourse", "projects")
		if err := os.MkdirAll(localDir, 0o755); err != nil {
			log.Fatalf("Failed to create local project store: %v", err)
		}
		projectStore = store.NewLocalStore(localDir)
	}

	// Initialize services
	extractor := extract.NewPDFExtractor("")
	scriptService := service.NewScriptService(openaiClient, &cfg.Pipeline)
	sketchService := service.NewSketchService(replicateClient, storageClient, &cfg.Replicate)
	speechService := service.NewSpeechService(openaiClient)
	documentService := service.NewDocumentService(extractor, storageClient)
	projectService := service.NewProjectService(projectStore, asynqClient)

	// Initialize the render and pipeline layers
	engine := render.NewFFmpegEngine(&cfg.Render)
	renderer := render.NewRenderer(engine, &cfg.Render)
	composer := pipeline.NewComposer(sketchService, speechService, engine, &cfg.Pipeline)
	orchestrator := pipeline.NewOrchestrator(extractor, scriptService, composer, renderer, storageClient, cfg)

	// Initialize handlers
	projectHandler := handler.NewProjectHandler(projectService, validate, cfg.Pipeline.ScratchDir)
	sketchHandler := handler.NewSketchHandler(sketchService, validate)
	storyboardHandler := handler.NewStoryboardHandler(scriptService, validate)
	documentHandler := handler.NewDocumentHandler(documentService, cfg.Pipeline.ScratchDir)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    25 * 1024 * 1024, // 25MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"openai":    openaiClient.IsConfigured(),
				"replicate": replicateClient.IsConfigured(),
				"storage":   storageClient != nil,
				"auth":      cfg.JWT.Secret != "",
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Project routes
	projects := api.Group("/projects")
	projects.Post("/", rateLimiter.ProjectsLimit(cfg.RateLimit.ProjectsPerHour), projectHandler.Create)
	projects.Post("/status", projectHandler.StatusList)
	projects.Get("/:id/status", projectHandler.Status)

	// Sketch routes
	sketches := api.Group("/sketches", rateLimiter.SketchesLimit(cfg.RateLimit.SketchesPerMin))
	sketches.Post("/generate", sketchHandler.Generate)
	sketches.Post("/generate_batch", sketchHandler.GenerateBatch)

	// Outline and storyboard routes
	outline := api.Group("/outline", rateLimiter.StoryboardsLimit(cfg.RateLimit.StoryboardsPerMin))
	outline.Post("/generate", storyboardHandler.GenerateOutline)

	storyboard := api.Group("/storyboard", rateLimiter.StoryboardsLimit(cfg.RateLimit.StoryboardsPerMin))
	storyboard.Post("/generate", storyboardHandler.GenerateStoryboard)

	// Document routes
	documents := api.Group("/documents")
	documents.Post("/process", documentHandler.Process)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/projects/:projectId", websocket.New(func(c *websocket.Conn) {
		projectID := c.Params("projectId")
		hub.HandleConnection(c, projectID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, projectService, orchestrator, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	projectService *service.ProjectService,
	orchestrator *pipeline.Orchestrator,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// One pipeline at a time per instance; the render fan-out
			// inside a run already saturates the CPU.
			Concurrency: 1,
			Queues: map[string]int{
				"pipeline": 1,
			},
			LogLevel: asynqLogLevel,
		},
	)

	projectWorker := worker.NewProjectWorker(projectService, orchestrator, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeProject, projectWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

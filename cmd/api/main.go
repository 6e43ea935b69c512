package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/anishvdev/voiceforge/pkg/validator"

	"github.com/anishvdev/voiceforge/internal/adapter/handler"
	"github.com/anishvdev/voiceforge/internal/adapter/repository"
	adapterws "github.com/anishvdev/voiceforge/internal/adapter/ws"
	"github.com/anishvdev/voiceforge/internal/infrastructure/cache"
	"github.com/anishvdev/voiceforge/internal/infrastructure/database"
	"github.com/anishvdev/voiceforge/internal/infrastructure/storage"
	infraws "github.com/anishvdev/voiceforge/internal/infrastructure/ws"
	"github.com/anishvdev/voiceforge/internal/streaming"
	"github.com/anishvdev/voiceforge/internal/usecase/chat"
	"github.com/anishvdev/voiceforge/internal/usecase/speech"
	"github.com/anishvdev/voiceforge/internal/usecase/stt"
	"github.com/anishvdev/voiceforge/internal/usecase/synthesis"
	pkgai "github.com/anishvdev/voiceforge/pkg/ai"
	"github.com/anishvdev/voiceforge/pkg/config"
)

const voiceCacheTTL = 15 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running schema migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Voice profile cache: Redis when configured, in-memory otherwise.
	var profileStore cache.Store
	if cfg.GetRedisAddr() != "" {
		log.Println("📦 Connecting to Redis...")
		redisClient, err := cache.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		profileStore = cache.NewRedisStore(redisClient)
	} else {
		log.Println("📦 Redis not configured, using in-memory voice cache")
		profileStore = cache.NewMemoryStore()
	}
	voiceCache := cache.NewVoiceProfileCache(profileStore, voiceCacheTTL, logger)

	// Initialize object storage for audio artifacts
	log.Println("🗄️  Connecting to object storage...")
	artifacts, err := storage.NewAudioStore(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	voiceRepo := repository.NewVoiceRepository(db)
	conversationRepo := repository.NewConversationRepository(db)

	// Synthesis backends form a ranked fallback chain.
	log.Println("🎙️  Initializing synthesis backends...")
	engines := make([]synthesis.Engine, 0, len(cfg.Synthesis.BackendURLs))
	for i, url := range cfg.Synthesis.BackendURLs {
		name := fmt.Sprintf("backend-%d", i+1)
		engines = append(engines, synthesis.NewHTTPEngine(name, url, cfg.Synthesis.RequestTimeout, cfg.Synthesis.MaxRetryWait))
		log.Printf("   • %s: %s", name, url)
	}
	engine := synthesis.NewFallbackEngine(engines, logger)

	// Initialize AI clients
	log.Println("🤖 Initializing AI clients...")
	asmClient := pkgai.NewAssemblyAIClient(&cfg.Assembly)
	groqClient := pkgai.NewGroqClient(&cfg.Groq)

	// Streaming core: admission control, session registry, chunker
	scheduler := streaming.NewScheduler(streaming.SchedulerConfig{
		MaxConcurrent: cfg.Scheduler.MaxConcurrent,
		Policy:        streaming.OverflowPolicy(cfg.Scheduler.Overflow),
		QueueSize:     cfg.Scheduler.QueueSize,
	})
	sessions := streaming.NewRegistry()
	chunker := streaming.NewChunker(cfg.Chunker.MaxChunkLen)

	// Initialize services
	log.Println("✨ Initializing services...")
	speechSvc := speech.NewService(voiceRepo, voiceCache, engine, artifacts, scheduler, sessions, chunker, logger)
	sttSvc := stt.NewService(asmClient, logger)
	chatSvc := chat.NewService(conversationRepo, chat.NewGroqResponder(groqClient), sttSvc, speechSvc, logger)

	// WebSocket layer
	log.Println("🔌 Initializing websocket layer...")
	dispatcher := adapterws.NewDispatcher(speechSvc, chatSvc, sttSvc, sessions, logger)
	hub := infraws.NewHub(cfg.Websocket, cfg.Server.AllowedOrigins, dispatcher, logger)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	voiceHandler := handler.NewVoiceHandler(speechSvc, hub, logger)
	speechHandler := handler.NewSpeechHandler(speechSvc, artifacts, logger)
	router := handler.NewRouter(db, artifacts, hub, voiceHandler, speechHandler, logger)
	router.Register(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

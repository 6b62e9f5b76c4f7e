package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/ai"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/db"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/repository"
	"github.com/windoze95/saltybytes-voice/internal/router"
	"github.com/windoze95/saltybytes-voice/internal/s3"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"github.com/windoze95/saltybytes-voice/internal/ws"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// init is called before the main function.
func init() {
	// Initialize structured logger (dev mode if GIN_MODE != release)
	isDev := os.Getenv("GIN_MODE") != "release"
	logger.Init(isDev)

	// Configure the runtime
	ConfigureRuntime()
}

// Entry point for the API.
func main() {
	defer logger.Sync()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the config
	var cfg *config.Config
	if c, err := config.LoadConfig(); err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	} else {
		cfg = c
	}

	// Check that all ENV variables are set
	warnings, err := cfg.CheckConfigEnvFields()
	if err != nil {
		log.Fatal("missing required config fields", zap.Error(err))
	}
	for _, field := range warnings {
		log.Warn("config field is not set; dependent features will fail at use", zap.String("field", field))
	}

	generated, err := service.EnsureSessionSigningKey(cfg)
	if err != nil {
		log.Fatal("failed to prepare session signing key", zap.Error(err))
	}
	if generated {
		log.Warn("SESSION_SIGNING_KEY not set; using a random key, session tokens will not survive restarts")
	}

	// Load prompts from YAML and keep them current
	prompts, err := config.LoadPrompts(cfg.EnvVars.PromptsPath)
	if err != nil {
		log.Fatal("failed to load prompts", zap.Error(err))
	}
	cfg.Prompts = config.NewPromptSet(prompts)
	watcher, err := config.WatchPrompts(cfg.EnvVars.PromptsPath, cfg.Prompts)
	if err != nil {
		log.Warn("prompt hot reload disabled", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	// Session store
	var repo repository.RecipeSessionRepo
	if cfg.EnvVars.DBDriver == config.DBDriverMemory {
		repo = repository.NewMemoryRecipeSessionRepository()
	} else {
		database, err := db.New(cfg)
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		sqlDB, err := database.DB()
		if err != nil {
			log.Fatal("failed to get underlying sql.DB", zap.Error(err))
		}
		defer sqlDB.Close()
		repo = repository.NewRecipeSessionRepository(database)
	}

	// AI provider setup
	var videoProvider ai.VideoProvider
	var textProvider ai.TextProvider
	gemini, err := ai.NewGeminiProvider(ctx, cfg.EnvVars.GoogleAIAPIKey, cfg.EnvVars.GeminiModel, cfg.Prompts)
	if err != nil {
		log.Warn("Gemini provider unavailable", zap.Error(err))
		unconfigured := ai.UnconfiguredProvider{Name: "gemini"}
		videoProvider, textProvider = unconfigured, unconfigured
	} else {
		videoProvider, textProvider = gemini, gemini
	}
	if cfg.EnvVars.RecipeTextProvider == config.TextProviderAnthropic {
		textProvider = ai.NewAnthropicProvider(cfg.EnvVars.AnthropicAPIKey, cfg.Prompts)
	}
	speechProvider := ai.NewWhisperProvider(cfg.EnvVars.OpenAIAPIKey)
	downloader := ai.NewYouTubeDownloader()

	// Recipe archive
	var archiver service.Archiver
	recipeArchiver, err := s3.NewRecipeArchiver(ctx, cfg)
	if err != nil {
		log.Warn("recipe archive disabled", zap.Error(err))
	} else if recipeArchiver != nil {
		archiver = recipeArchiver
	}

	hub := ws.NewHub()
	go hub.Run()

	// Create a new gin router
	gin.SetMode(gin.ReleaseMode)
	r := router.SetupRouter(cfg, router.Services{
		Recipes:     service.NewRecipeService(cfg, repo, textProvider, videoProvider, downloader, archiver),
		Ingredients: service.NewIngredientService(cfg, textProvider, videoProvider, downloader),
		Voice:       service.NewVoiceService(cfg, speechProvider),
		Hub:         hub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.EnvVars.Port,
		Handler: r,
	}

	// Run the server
	go func() {
		log.Info("starting server",
			zap.String("port", cfg.EnvVars.Port),
			zap.String("db_driver", cfg.EnvVars.DBDriver),
			zap.String("text_provider", cfg.EnvVars.RecipeTextProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	// Hijacked websocket connections are not tracked by Shutdown.
	hub.CloseAll()
}

// ConfigureRuntime sets the number of operating system threads.
func ConfigureRuntime() {
	nuCPU := runtime.NumCPU()
	runtime.GOMAXPROCS(nuCPU)
	logger.Get().Info("runtime configured", zap.Int("cpus", nuCPU))
}

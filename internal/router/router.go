package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/windoze95/saltybytes-voice/internal/config"
	"github.com/windoze95/saltybytes-voice/internal/handlers"
	"github.com/windoze95/saltybytes-voice/internal/logger"
	"github.com/windoze95/saltybytes-voice/internal/middleware"
	"github.com/windoze95/saltybytes-voice/internal/service"
	"github.com/windoze95/saltybytes-voice/internal/ws"
)

// Services are the long-lived dependencies the routes are built on.
type Services struct {
	Recipes     *service.RecipeService
	Ingredients *service.IngredientService
	Voice       *service.VoiceService
	Hub         *ws.Hub

	// TimerUnit overrides the length of one voice timer second.
	TimerUnit time.Duration
}

// SetupRouter sets up the Gin router.
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, middleware.SessionTokenHeader, middleware.ClientIDHeader)
	if len(cfg.EnvVars.AllowedOrigins) > 0 {
		corsConfig.AllowCredentials = true
		corsConfig.AllowOrigins = cfg.EnvVars.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	// Add request ID middleware for request correlation
	r.Use(logger.RequestIDMiddleware())
	r.Use(logger.AccessLogMiddleware())

	// Ping route for testing
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	recipeHandler := handlers.NewRecipeHandler(svc.Recipes)
	ingredientHandler := handlers.NewIngredientHandler(svc.Ingredients)
	transcribeHandler := handlers.NewTranscribeHandler(svc.Voice)

	// Every acquisition call costs a model round trip.
	acquireLimiter := middleware.NewIPRateLimiter(cfg.EnvVars.RateLimitRPS, time.Minute, 10*time.Minute)

	api := r.Group("/")
	if cfg.EnvVars.IDHeader != "" {
		api.Use(middleware.CheckIDHeader(cfg.EnvVars.IDHeader))
	}
	{
		// Recipe acquisition
		api.POST("/recipe", acquireLimiter.Middleware(), recipeHandler.AcquireByName)
		api.POST("/youtube-recipe", acquireLimiter.Middleware(), recipeHandler.AcquireByVideo)

		// Recipe sessions
		api.GET("/recipe/current", recipeHandler.GetCurrentRecipe)
		api.GET("/recipe/:session_id", recipeHandler.GetRecipeSession)

		// Ingredient extraction
		api.POST("/ingredients/menu", acquireLimiter.Middleware(), ingredientHandler.ByMenu)
		api.POST("/ingredients/link", acquireLimiter.Middleware(), ingredientHandler.ByLink)

		// One-shot speech-to-text
		api.POST("/transcribe", acquireLimiter.Middleware(), transcribeHandler.Transcribe)
	}

	// Voice websocket (session selected via ?session=<token>)
	voiceHandler := ws.NewVoiceHandler(svc.Hub, svc.Recipes, svc.Voice, cfg.Prompts, cfg.EnvVars.AllowedOrigins)
	voiceHandler.TimerUnit = svc.TimerUnit
	r.GET("/ws", middleware.SessionTokenMiddleware(cfg), voiceHandler.HandleVoiceSession)

	return r
}

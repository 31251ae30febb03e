package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"gourmet/internal/config"
	"gourmet/internal/geo"
	"gourmet/internal/handler"
	"gourmet/internal/repository"
	"gourmet/internal/service"
	"gourmet/internal/source"
	"gourmet/internal/worker"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Print version info
	log.Printf("Gourmet Guide API")
	log.Printf("Version: %s", Version)
	log.Printf("Build Time: %s", BuildTime)
	log.Printf("Git Commit: %s", GitCommit)
	log.Println("")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Initialize database connection
	repo, err := repository.NewTimescaleRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	log.Println("✅ Connected to TimescaleDB")

	// Initialize OpenRouter client
	aiClient := service.NewOpenRouterClient(&cfg.OpenRouter)
	if cfg.OpenRouter.Enabled {
		log.Printf("✅ OpenRouter client initialized")
		log.Printf("   - API Base: %s", cfg.OpenRouter.APIBase)
		log.Printf("   - Model: %s", cfg.OpenRouter.Model)
		log.Printf("   - Temperature: %.2f", cfg.OpenRouter.Temperature)
		log.Printf("   - MaxTokens: %d", cfg.OpenRouter.MaxTokens)
	} else {
		log.Println("⚠️  OpenRouter is disabled - recommendations will use heuristic scoring only")
		log.Println("   Set OPENROUTER_API_KEY environment variable to enable AI features")
	}

	// Initialize services
	resolver := geo.NewResolver(&cfg.Geocoder)
	session := source.NewSession(cfg.Gofood.SessionCookie)
	candidates := source.NewClient(&cfg.Gofood, session)
	prompts := service.NewPromptBuilder(cfg.Pipeline.PromptTopK)
	scorer := service.NewScorer(aiClient, &cfg.Pipeline)
	suggestions := service.NewSuggestionService(aiClient, repo)

	// History writer persists interaction records off the request path
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	historyWriter := worker.NewHistoryWriter(repo, aiClient, cfg.History.QueueSize, cfg.History.Workers)
	historyWriter.Start(ctx)

	orchestrator := service.NewOrchestrator(resolver, candidates, prompts, scorer, historyWriter, &cfg.Pipeline)

	log.Println("✅ Services initialized")

	// Initialize handlers
	recommendHandler := handler.NewRecommendHandler(orchestrator)
	locationHandler := handler.NewLocationHandler(resolver)
	preferencesHandler := handler.NewPreferencesHandler(suggestions)

	// Setup Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.AllowedOrigins}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "healthy",
			"service":    "gourmet-guide-api",
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/restaurants/recommendations", recommendHandler.Recommend)

		apiV1.POST("/location/geocode", locationHandler.Geocode)
		apiV1.POST("/location/reverse-geocode", locationHandler.ReverseGeocode)

		apiV1.GET("/preferences/suggestions", preferencesHandler.Suggestions)
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("🚀 Starting server on %s", addr)
	log.Printf("📝 API Documentation: http://localhost:%d/api/v1", cfg.Server.Port)

	go func() {
		if err := router.Run(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Println("🛑 Shutting down server...")
	historyWriter.Stop()
	log.Println("✅ Server stopped")
}

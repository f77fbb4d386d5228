package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/votearena/backend/docs"
	"github.com/votearena/backend/internal/database"
	"github.com/votearena/backend/internal/handlers"
	mW "github.com/votearena/backend/internal/middleware"
	"github.com/votearena/backend/internal/services"
)

// @title VoteArena Backend API
// @version 1.0
// @description API for the contest voting and gifting platform
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")
	viper.BindEnv("app.base_url", "APP_BASE_URL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "VoteArena Backend API"
	docs.SwaggerInfo.Description = "API for the contest voting and gifting platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	catalogService := services.NewCatalogService(db)
	walletService := services.NewWalletService(db)
	ledgerService := services.NewVoteLedgerService(db, catalogService)
	votingService := services.NewVotingService(db, redisClient, walletService, ledgerService, catalogService)
	aggregationService := services.NewAggregationService(db, redisClient)
	authService := services.NewAuthService(db, redisClient)
	fundingService := services.NewFundingService(db, redisClient, walletService)
	fundingHandler := handlers.NewFundingHandler(fundingService)
	shareService := services.NewShareService(db, redisClient, catalogService)
	shareHandler := handlers.NewShareHandler(shareService)
	settlementService := services.NewSettlementService(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for candidate images
	r.Handle("/static/candidates/*", http.StripPrefix("/static/candidates/",
		mW.StaticFileServer("./static/candidates")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		r.Get("/candidates", catalogService.ListCandidatesHandler)
		r.Get("/candidates/{candidateId}", catalogService.GetCandidateHandler)
		r.Get("/candidates/{candidateId}/votes", aggregationService.CandidateTotalsHandler)
		r.Get("/gifts", catalogService.ListGiftsHandler)
		r.Get("/leaderboard", aggregationService.LeaderboardHandler)
		r.Get("/leaderboard/voters", aggregationService.VotersLeaderboardHandler)

		// Payment channel webhook
		r.Post("/funding/confirm", fundingHandler.ConfirmFunding)

		// Share token resolution (scanned links are unauthenticated)
		r.Post("/share/resolve", shareHandler.ResolveShareToken)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware(redisClient))

			r.Get("/auth/account", authService.GetUserAccount)
			r.Post("/users/{userId}/follow", authService.Follow)
			r.Delete("/users/{userId}/follow", authService.Unfollow)

			// Voting endpoints
			r.Post("/votes", votingService.CastVoteHandler)
			r.Post("/votes/bulk", votingService.BulkVoteHandler)
			r.Get("/votes", votingService.ListMyVotes)

			// Wallet endpoints
			r.Get("/wallet/balance", walletService.BalanceEnquiry)
			r.Get("/wallet/transactions", walletService.ListTransactions)

			// Funding endpoints
			r.Post("/funding/initiate", fundingHandler.InitiateFunding)
			r.Get("/funding/references", fundingHandler.GetUserReferences)

			// Share endpoints
			r.Post("/candidates/{candidateId}/share", shareHandler.GenerateShareLink)

			// Settlement endpoints (admin only)
			r.Group(func(r chi.Router) {
				r.Use(mW.AdminOnly)

				r.Post("/settlement/export", settlementService.ExportSettlement)
				r.Post("/settlement/acknowledge", settlementService.AcknowledgeMovement)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}

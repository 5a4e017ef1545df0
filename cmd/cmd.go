package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"athlos-backend/internal/config"
	"athlos-backend/internal/events"
	"athlos-backend/internal/handlers"
	"athlos-backend/internal/middleware"
	"athlos-backend/internal/repository"
	"athlos-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Apply schema migrations
	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Connect to Redis
	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := cache.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping Redis")
	}
	defer cache.Close()

	// Event bus: NATS when configured, in-process otherwise
	var bus events.Bus
	if cfg.NATS.URL != "" {
		natsBus, err := events.NewNATSBus(events.NATSConfig{
			URL:           cfg.NATS.URL,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: time.Duration(cfg.NATS.ReconnectWaitSeconds) * time.Second,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		bus = natsBus
		log.Info().Str("url", cfg.NATS.URL).Msg("Connected to NATS")
	} else {
		bus = events.NewInprocBus()
		log.Info().Msg("NATS not configured, using in-process event bus")
	}
	defer bus.Close()

	// Object storage
	storage, err := services.NewS3Storage(services.S3Config{
		Region:    cfg.AWS.Region,
		Bucket:    cfg.AWS.S3Bucket,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Endpoint:  cfg.AWS.Endpoint,
		PublicURL: cfg.AWS.PublicURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 storage")
	}

	// Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	followRepo := repository.NewFollowRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	tagRepo := repository.NewTagRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)

	// Initialize services
	publisher := events.NewPublisher(bus)
	wsHub := services.NewWSHub()
	authService := services.NewAuthService(profileRepo, cfg.JWT.Secret)
	leaderboardService := services.NewLeaderboardService(profileRepo, cache)
	profileService := services.NewProfileService(profileRepo, followRepo, achievementRepo, storage)
	postService := services.NewPostService(postRepo, commentRepo, likeRepo, tagRepo, storage, publisher)
	engagementService := services.NewEngagementService(likeRepo, followRepo, postRepo, leaderboardService, publisher)
	notificationService := services.NewNotificationService(notificationRepo)

	consumer := events.NewConsumer(bus, notificationRepo, achievementRepo, profileRepo, wsHub)
	if err := consumer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start event consumer")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService)
	postHandler := handlers.NewPostHandler(postService)
	engagementHandler := handlers.NewEngagementHandler(engagementService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, authService)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))

			r.Get("/profiles/me", profileHandler.Me)
			r.Patch("/profiles/me", profileHandler.Update)
			r.Post("/profiles/me/image", profileHandler.UploadImage)
			r.Get("/profiles/by-username/{username}", profileHandler.GetByUsername)
			r.Get("/profiles/{profile_id}", profileHandler.Get)
			r.Get("/profiles/{profile_id}/followers", profileHandler.Followers)
			r.Get("/profiles/{profile_id}/following", profileHandler.Following)
			r.Get("/profiles/{profile_id}/achievements", profileHandler.Achievements)
			r.Get("/profiles/{profile_id}/posts", postHandler.ListByUser)
			r.Put("/profiles/{profile_id}/follow", engagementHandler.Follow)
			r.Delete("/profiles/{profile_id}/follow", engagementHandler.Unfollow)

			r.Post("/posts", postHandler.Create)
			r.Get("/feed", postHandler.Feed)
			r.Get("/posts/{post_id}", postHandler.Get)
			r.Delete("/posts/{post_id}", postHandler.Delete)
			r.Get("/posts/{post_id}/comments", postHandler.Comments)
			r.Post("/posts/{post_id}/comments", postHandler.AddComment)
			r.Put("/posts/{post_id}/like", engagementHandler.Like)
			r.Delete("/posts/{post_id}/like", engagementHandler.Unlike)

			r.Get("/tags/{tag_name}/posts", postHandler.ListByTag)
			r.Get("/search", profileHandler.Search)
			r.Get("/leaderboard", leaderboardHandler.Top)

			r.Get("/notifications", notificationHandler.List)
			r.Patch("/notifications/{notification_id}/read", notificationHandler.MarkRead)
			r.Post("/notifications/read-all", notificationHandler.MarkAllRead)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	consumer.Stop()
	wsHub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"studycircle-backend/internal/config"
	"studycircle-backend/internal/database"
	"studycircle-backend/internal/handlers"
	"studycircle-backend/internal/middleware"
	"studycircle-backend/internal/repository"
	"studycircle-backend/internal/router"
	"studycircle-backend/internal/services"
	"studycircle-backend/internal/websocket"
	"studycircle-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("✓ config loaded (env: %s)", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ postgres: %v", err)
	}
	defer pool.Close()
	log.Println("✓ connected to postgres")

	if err := database.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatalf("✗ migrations: %v", err)
	}
	log.Println("✓ migrations applied")

	rdb, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ redis: %v", err)
	}
	defer rdb.Close()
	log.Println("✓ connected to redis")

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewStudySessionRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	followRepo := repository.NewFollowRepository(pool)
	likeRepo := repository.NewLikeRepository(pool)
	presenceRepo := repository.NewPresenceRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	// Services
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	notifier := services.NewNotifier(notificationRepo, rdb.PubSub)
	authService := services.NewAuthService(userRepo, rdb.Queue, jwtAuth, cfg.GoogleClientID)
	userService := services.NewUserService(userRepo, sessionRepo, postRepo)
	postService := services.NewPostService(postRepo, sessionRepo, followRepo,
		userRepo, likeRepo, notifier, cfg.FeedFanoutPerUser)
	presenceService := services.NewPresenceService(presenceRepo, followRepo, sessionRepo, notifier)
	socialService := services.NewSocialService(followRepo, userRepo, notifier)

	hub := websocket.NewHub(rdb.PubSub, cfg.FrontendURL,
		func(ctx context.Context, userID uuid.UUID) (interface{}, error) {
			return presenceService.WatchList(ctx, userID)
		})

	workerPool := worker.NewPool(rdb.Queue, sessionRepo, postService, presenceService,
		notifier, cfg.WorkerCount)
	workerPool.Start(ctx)
	log.Printf("✓ started %d workers", cfg.WorkerCount)

	scheduler := services.NewStreakReminderScheduler(userRepo, notifier, rdb.Queue)
	scheduler.Start()
	log.Println("✓ streak reminder scheduler running")

	mux := router.New(router.Deps{
		Config:        cfg,
		JWT:           jwtAuth,
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUserHandler(userService, authService),
		Sessions:      handlers.NewStudySessionHandler(sessionRepo, postService, rdb.Queue, cfg.MinSessionSeconds),
		Posts:         handlers.NewPostHandler(postService),
		Social:        handlers.NewSocialHandler(socialService),
		Presence:      handlers.NewPresenceHandler(presenceService, rdb.Queue),
		Notifications: handlers.NewNotificationHandler(notificationRepo),
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("✗ server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("✗ server shutdown: %v", err)
	}
	scheduler.Stop()
	hub.Shutdown()
	cancel()
	workerPool.Stop()
	log.Println("✓ goodbye")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fitspot/api/routes"
	"fitspot/internal/ingest"
	"fitspot/internal/shared/config"
	"fitspot/internal/shared/database"
	"fitspot/internal/stats"
	"fitspot/pkg/cache"
	"fitspot/pkg/logger"
	"fitspot/pkg/ratelimit"
)

func main() {
	// Container deployments configure through the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Environment)
	log := logger.Get()

	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Error("failed to initialize database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it caching is disabled and rate limiting
	// fails open.
	if cfg.Redis.Enabled {
		err := cache.Init(cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, continuing without cache", "error", err.Error())
		} else {
			defer cache.Close()
		}
	}
	cacheService := cache.NewService(cache.Client())

	statsService := stats.NewService(db.Gorm, cacheService)

	limiter := ratelimit.NewLimiter(cache.Client(), &ratelimit.Config{
		Enabled:        cfg.RateLimit.Enabled,
		WindowDuration: cfg.RateLimit.WindowDuration,
		Requests:       cfg.RateLimit.TrackRequests,
	})

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if cfg.Kafka.Enabled {
		consumer, err := ingest.NewConsumer(cfg.Kafka, statsService)
		if err != nil {
			log.Warn("kafka unavailable, continuing without event ingestion", "error", err.Error())
		} else {
			consumer.Start(rootCtx)
			defer func() {
				if err := consumer.Stop(); err != nil {
					log.Error("consumer shutdown failed", "error", err.Error())
				}
			}()
		}
	}

	if cfg.Jobs.Enabled {
		jobs := stats.NewJobProcessor(statsService, &stats.JobConfig{
			RecomputeInterval: cfg.Jobs.RecomputeInterval,
			SnapshotInterval:  cfg.Jobs.SnapshotInterval,
		})
		jobs.Start(rootCtx)
		defer jobs.Stop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router := routes.NewRouter(cfg, db, statsService, limiter)
	router.SetupRoutes(engine)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info("server listening", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err.Error())
			rootCancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-rootCtx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}

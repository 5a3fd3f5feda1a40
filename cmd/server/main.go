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

	"offer-collab-service/internal/collab"
	"offer-collab-service/internal/config"
	"offer-collab-service/internal/db"
	"offer-collab-service/internal/history"
	"offer-collab-service/internal/metrics"
	"offer-collab-service/internal/middleware"
	"offer-collab-service/internal/notify"
	"offer-collab-service/internal/offer"
	"offer-collab-service/internal/session"
	"offer-collab-service/internal/worker"
	"offer-collab-service/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Offer store + history log: Postgres in production, in-memory for
	// local development without a database
	var store offer.Store
	var historyLog history.Log
	if config.AppConfig.StoreBackend == "memory" {
		log.Println("Using in-memory offer store")
		store = offer.NewMemoryStore()
		historyLog = history.NewMemoryLog()
	} else {
		db.ConnectDb()
		defer db.CloseDb()
		db.Migrate()
		store = offer.NewGormStore(db.AppDb)
		historyLog = history.NewGormLog(db.AppDb)
	}

	// Session registry: Redis when reachable so instances share session
	// state, otherwise in-process
	redis.InitRedis()
	var registry session.Registry
	if redis.RedisClient != nil {
		registry = session.NewRedisRegistry(redis.RedisClient, "collab:", config.AppConfig.SessionTimeout)
	} else {
		registry = session.NewMemoryRegistry(config.AppConfig.SessionTimeout, time.Now)
	}

	// Background workers: marketplace notifications and the session sweep
	pool := worker.NewWorkerPool(4)
	defer pool.Shutdown()

	notifier := notify.NewClient(config.AppConfig.MarketplaceAddress, config.AppConfig.InternalSecret)

	// Initialize service and handler
	service := collab.NewService(store, registry, historyLog, collab.NewDefaultPolicy(), notifier, pool)
	handler := collab.NewHandler(service)

	// Metrics
	registryProm := prometheus.NewRegistry()
	metrics.RegisterCollectors(registryProm)

	// Periodic sweep of timed-out sessions. Reads already filter stale
	// sessions; this just keeps the registry small.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(config.AppConfig.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pool.Submit(func(ctx context.Context) error {
					n, err := registry.Sweep(ctx)
					if n > 0 {
						metrics.SessionsSweptTotal.Add(float64(n))
						log.Printf("Swept %d expired sessions", n)
					}
					return err
				})
			case <-sweepDone:
				return
			}
		}
	}()

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.ErrorHandler())

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}

	if config.AppConfig.Environment == "development" {
		// Allow all origins in development
		corsConfig.AllowAllOrigins = true
	} else {
		// Restrict origins in production
		corsConfig.AllowOrigins = []string{"https://production-frontend.com"}
	}
	router.Use(cors.New(corsConfig))

	authMw := &middleware.Auth{
		JWTSecret:      config.AppConfig.JWTSecret,
		InternalSecret: config.AppConfig.InternalSecret,
	}

	// Offer collaboration routes
	router.GET("/offers/:id", authMw.AuthMiddleWare(), handler.Show)
	router.POST("/offers/:id/sessions", authMw.AuthMiddleWare(), handler.StartSession)
	router.GET("/offers/:id/sessions", authMw.AuthMiddleWare(), handler.ListActiveEditors)
	router.POST("/offers/:id/updates", authMw.AuthMiddleWare(), handler.SubmitUpdate)
	router.GET("/offers/:id/history", authMw.AuthMiddleWare(), handler.ShowHistory)
	router.POST("/sessions/:sessionId/heartbeat", authMw.AuthMiddleWare(), handler.Heartbeat)
	router.DELETE("/sessions/:sessionId", authMw.AuthMiddleWare(), handler.EndSession)

	// internal use routes
	router.POST("/internal/offers", authMw.InternalAuthMiddleware(), handler.Create)

	// operational routes
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registryProm, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Server configuration
	serverPort := config.AppConfig.ServerPort
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverPort),
		Handler: router.Handler(),
	}

	// Start server
	go func() {
		log.Printf("Server listening on port %s", serverPort)
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Println("Server shutdown error:", err)
	}

	<-ctx.Done()
	log.Println("Server shutdown complete")
}

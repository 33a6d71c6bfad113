package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"visar-backend/app"
	"visar-backend/config"
	"visar-backend/handlers"
	"visar-backend/logger"
	"visar-backend/metrics"
	"visar-backend/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	boot := logger.Bootstrap()
	cfg := config.MustLoad(boot)

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		boot.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer c.Close()

	metrics.Init()

	if cfg.Reindex.Interval > 0 {
		go c.Reindex.RunPeriodic(ctx, cfg.Reindex.Interval)
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", metrics.Handler())

	// API routes
	api := r.Group("/api", middleware.Auth(cfg.Auth.JWTSecret))
	handlers.RegisterRoutes(api, handlers.Handlers{
		Clients:    handlers.NewClientHandler(c.Clients),
		Templates:  handlers.NewTemplateHandler(c.Templates),
		Petitions:  handlers.NewPetitionHandler(c.Drafts),
		Chat:       handlers.NewChatHandler(c.Chat),
		References: handlers.NewReferenceHandler(c.Ingestion, c.Reindex, c.Retriever, cfg.Server.MaxUploadSize),
		Files:      handlers.NewFileHandler(c.CaseDocs, cfg.Server.MaxUploadSize),
	})

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwtSecret not set; API runs without authentication")
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}

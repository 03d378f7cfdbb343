package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docurisk/backend/internal/config"
	"github.com/docurisk/backend/internal/db"
	"github.com/docurisk/backend/internal/events"
	"github.com/docurisk/backend/internal/logger"
	"github.com/docurisk/backend/internal/middleware"
	"github.com/docurisk/backend/internal/repository"
	"github.com/docurisk/backend/internal/routes"
	"github.com/docurisk/backend/internal/services"
	"github.com/docurisk/backend/internal/storage"
	"github.com/docurisk/backend/internal/tasks"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "http://localhost:5173"
		if corsOrigin := os.Getenv("CORS_ORIGIN"); corsOrigin != "" {
			origin = corsOrigin
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func main() {
	logger.Initialize()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	cfg := config.Load()

	db.Connect()
	db.AutoMigrate()

	store, err := storage.NewFSStore(cfg.StorageRoot)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", map[string]interface{}{
			"root":  cfg.StorageRoot,
			"error": err.Error(),
		})
	}

	repo := repository.NewGormJobRepository(db.DB)
	broadcaster := events.NewBroadcaster()
	aiService := services.NewAIService(cfg)
	orchestrator := services.NewOrchestrator(repo, store, cfg, aiService, broadcaster)
	runner := tasks.NewImmediateRunner(orchestrator.HandleTask)
	orchestrator.SetRunner(runner)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestLogger())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		var dbError string

		if db.DB == nil {
			dbStatus = "error"
			dbError = "database connection not initialized"
		} else if sqlDB, err := db.DB.DB(); err != nil {
			dbStatus = "error"
			dbError = err.Error()
		} else if err := sqlDB.Ping(); err != nil {
			dbStatus = "error"
			dbError = err.Error()
		}

		statusCode := http.StatusOK
		overallStatus := "ok"
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
			overallStatus = "error"
		}

		c.JSON(statusCode, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"database": gin.H{
					"status": dbStatus,
					"error":  dbError,
				},
			},
		})
	})

	routes.SetupRoutes(r, repo, orchestrator, broadcaster, store)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	logger.Info("Starting DocuRisk backend server", map[string]interface{}{
		"port":     port,
		"gin_mode": gin.Mode(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("Shutting down server gracefully...", nil)

	// Stop the analysis loops at the next document boundary, then wait for
	// in-flight tasks to flush their ledgers.
	orchestrator.Stop()
	runner.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}

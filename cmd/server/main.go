package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/driftline/backend/internal/config"
	"github.com/driftline/backend/internal/database"
	"github.com/driftline/backend/internal/email"
	"github.com/driftline/backend/internal/handlers/auth"
	"github.com/driftline/backend/internal/routes"
	"github.com/driftline/backend/internal/services"
	"github.com/driftline/backend/internal/version"
	"github.com/driftline/backend/pkg/debug"
)

func main() {
	// Initialize debug package first with default settings
	debug.Reinitialize()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		debug.Warning("No .env file found, relying on environment variables: %v", err)

		requiredVars := []string{
			"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
			"JWT_SECRET",
		}

		missingVars := []string{}
		for _, v := range requiredVars {
			if os.Getenv(v) == "" {
				missingVars = append(missingVars, v)
			}
		}

		if len(missingVars) > 0 {
			debug.Error("Missing required environment variables: %v", missingVars)
			os.Exit(1)
		}
	} else {
		debug.Info("Successfully loaded .env file")
	}

	// Reinitialize debug package with environment variables
	debug.Reinitialize()
	debug.Info("Debug logging initialized with environment settings")

	debug.Info("Starting Driftline backend %s", version.Get().Version)

	// Initialize application configuration
	appConfig := config.NewConfig()
	debug.Info("Application configuration initialized")

	// Initialize database connection
	debug.Info("Initializing database connection")
	db, err := database.Connect()
	if err != nil {
		debug.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations before serving traffic
	if err := database.RunMigrations(); err != nil {
		debug.Error("Database migrations failed: %v", err)
		os.Exit(1)
	}

	// Initialize email service
	emailService, err := email.NewService(email.ConfigFromEnv(), appConfig.AppName, appConfig.BaseURL)
	if err != nil {
		debug.Error("Failed to initialize email service: %v", err)
		os.Exit(1)
	}

	// Setup routes
	debug.Info("Setting up routes")
	router := mux.NewRouter()
	authHandler := auth.NewHandlerWithEmailService(db, emailService, appConfig)
	routes.SetupRoutes(router, db, authHandler)

	// Start background cleanup of expired credentials
	cleanup := services.NewCleanupService(db, appConfig.CleanupInterval, appConfig.TokenRetentionWindow)
	if err := cleanup.Start(); err != nil {
		debug.Error("Failed to start cleanup service: %v", err)
		os.Exit(1)
	}
	defer cleanup.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.Host, appConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		debug.Info("Starting HTTP server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			debug.Error("HTTP server error: %v", err)
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	debug.Info("Server is ready to handle requests")

	select {
	case err := <-serverErr:
		debug.Error("Server error: %v", err)
		os.Exit(1)
	case sig := <-sigChan:
		debug.Info("Received signal: %v", sig)
		debug.Info("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			debug.Error("Error during server shutdown: %v", err)
		}
		debug.Info("Server shutdown complete")
	}
}

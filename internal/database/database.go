package database

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/driftline/backend/internal/db"
	"github.com/driftline/backend/pkg/debug"
)

// configFromEnv reads the PostgreSQL connection settings from DB_*
// environment variables.
func configFromEnv() db.Config {
	port := 5432
	if p, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		port = p
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	return db.Config{
		Host:     os.Getenv("DB_HOST"),
		Port:     port,
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  sslMode,
	}
}

/*
 * Connect establishes a connection to the PostgreSQL database using environment variables.
 * It validates the connection with a ping test before returning.
 *
 * Returns:
 *   - *db.DB: Database connection pool if successful
 *   - error: Any error encountered during connection
 */
func Connect() (*db.DB, error) {
	debug.Info("Attempting database connection")

	cfg := configFromEnv()
	debug.Debug("Database configuration - Host: %s, Port: %d, User: %s, Database: %s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName)

	database, err := db.New(cfg)
	if err != nil {
		debug.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	debug.Info("Successfully connected to database")
	return database, nil
}

/*
 * RunMigrations executes all pending database migrations from the db/migrations directory.
 * Migrations are run in order based on their numeric prefix.
 *
 * Returns:
 *   - error: Any error encountered during migration, nil if successful
 *           Returns nil if no migrations are pending (ErrNoChange)
 */
func RunMigrations() error {
	debug.Info("Starting database migrations")

	cfg := configFromEnv()
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)

	m, err := migrate.New("file://db/migrations", connStr)
	if err != nil {
		debug.Error("Failed to create migration instance: %v", err)
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		debug.Error("Migration failed: %v", err)
		return err
	}

	debug.Info("Database migrations completed successfully")
	return nil
}

package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/pkg/config"
)

// NewSQLiteDB opens (creating if needed) the single-file local store
func NewSQLiteDB(cfg *config.DatabaseConfig, appLogger *slog.Logger) (*Database, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path+"?_busy_timeout=5000"), gormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// One writer at a time
	sqlDB.SetMaxOpenConns(1)

	appLogger.Info("database connection established",
		slog.String("driver", DriverSQLite),
		slog.String("path", cfg.Path))

	return &Database{
		DB:     db,
		driver: DriverSQLite,
		logger: appLogger,
	}, nil
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/config"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Database wraps the GORM connection for either driver
type Database struct {
	DB     *gorm.DB
	driver string
	logger *slog.Logger
}

// Open connects using the driver named in cfg
func Open(cfg *config.DatabaseConfig, appLogger *slog.Logger) (*Database, error) {
	if appLogger == nil {
		appLogger = slog.Default()
	}

	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgresDB(cfg, appLogger)
	case DriverSQLite, "":
		return NewSQLiteDB(cfg, appLogger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig(level string) *gorm.Config {
	// Configure GORM logger
	gormLogger := logger.Default.LogMode(logger.Silent)
	switch level {
	case "debug", "info":
		gormLogger = logger.Default.LogMode(logger.Info)
	case "warn":
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Driver returns the active driver name
func (db *Database) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *Database) Close() error {
	db.logger.Info("closing database connection")
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database is reachable
func (db *Database) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Health returns health status of the database
func (db *Database) Health(ctx context.Context) map[string]interface{} {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return map[string]interface{}{
			"status": "down",
			"error":  err.Error(),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return map[string]interface{}{
			"status": "down",
			"driver": db.driver,
			"error":  err.Error(),
		}
	}

	stats := sqlDB.Stats()

	return map[string]interface{}{
		"status":           "up",
		"driver":           db.driver,
		"max_open_conns":   stats.MaxOpenConnections,
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration.String(),
	}
}

// AutoMigrate runs automatic migrations for the given models
func (db *Database) AutoMigrate(models ...interface{}) error {
	db.logger.Info("running auto migrations", slog.String("driver", db.driver))
	if err := db.DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db.logger.Info("migrations completed successfully")
	return nil
}

// Migrate creates or updates every table of the pipeline schema
func (db *Database) Migrate() error {
	return db.AutoMigrate(domain.Models()...)
}

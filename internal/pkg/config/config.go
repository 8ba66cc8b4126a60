package config

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Server Configuration
	ServerHost string `mapstructure:"SERVER_HOST"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	Database   DatabaseConfig
	Cache      CacheConfig
	Queue      QueueConfig
	Storage    StorageConfig
	Classifier ClassifierConfig
	Mapping    MappingConfig
}

// DatabaseConfig selects and tunes the relational store. Driver "sqlite"
// uses Path; "postgres" uses the host/credential fields.
type DatabaseConfig struct {
	Driver          string `mapstructure:"DB_DRIVER"`
	Path            string `mapstructure:"DB_PATH"`
	Host            string `mapstructure:"DB_HOST"`
	Port            int    `mapstructure:"DB_PORT"`
	User            string `mapstructure:"DB_USER"`
	Password        string `mapstructure:"DB_PASSWORD"`
	Database        string `mapstructure:"DB_NAME"`
	SSLMode         string `mapstructure:"DB_SSLMODE"`
	LogLevel        string `mapstructure:"DB_LOG_LEVEL"`
	MaxConnections  int    `mapstructure:"DB_MAX_CONNECTIONS"`
	MinConnections  int    `mapstructure:"DB_MIN_CONNECTIONS"`
	MaxConnLifetime int    `mapstructure:"DB_MAX_CONN_LIFETIME_MINUTES"`
	MaxConnIdleTime int    `mapstructure:"DB_MAX_CONN_IDLE_MINUTES"`
}

// CacheConfig configures the classifier suggestion cache. With Redis
// disabled an in-process cache is used instead.
type CacheConfig struct {
	RedisEnabled bool   `mapstructure:"CACHE_REDIS_ENABLED"`
	Host         string `mapstructure:"REDIS_HOST"`
	Port         int    `mapstructure:"REDIS_PORT"`
	Password     string `mapstructure:"REDIS_PASSWORD"`
	DB           int    `mapstructure:"REDIS_DB"`
	DialTimeout  int    `mapstructure:"REDIS_DIAL_TIMEOUT_SECONDS"`
	ReadTimeout  int    `mapstructure:"REDIS_READ_TIMEOUT_SECONDS"`
	WriteTimeout int    `mapstructure:"REDIS_WRITE_TIMEOUT_SECONDS"`
	PoolSize     int    `mapstructure:"REDIS_POOL_SIZE"`
	MinIdleConns int    `mapstructure:"REDIS_MIN_IDLE_CONNS"`
	TTLHours     int    `mapstructure:"CACHE_TTL_HOURS"`
}

// QueueConfig configures the asynq worker queue. Disabled means the HTTP
// API runs pipeline steps inline.
type QueueConfig struct {
	Enabled        bool `mapstructure:"QUEUE_ENABLED"`
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int
	ReadTimeout    int
	WriteTimeout   int
	Concurrency    int  `mapstructure:"WORKER_CONCURRENCY"`
	MaxRetries     int  `mapstructure:"WORKER_MAX_RETRIES"`
	StrictPriority bool `mapstructure:"WORKER_STRICT_PRIORITY"`
}

// StorageConfig holds the drop folder layout.
type StorageConfig struct {
	DataDir       string `mapstructure:"DATA_DIR"`
	InboxDir      string
	ProcessedDir  string
	QuarantineDir string
	OutputDir     string `mapstructure:"OUTPUT_DIR"`
	MaxFileSizeMB int64  `mapstructure:"MAX_FILE_SIZE_MB"`
}

type ClassifierConfig struct {
	URL            string `mapstructure:"CLASSIFIER_URL"`
	APIKey         string `mapstructure:"CLASSIFIER_API_KEY"`
	Model          string `mapstructure:"CLASSIFIER_MODEL"`
	TimeoutSeconds int    `mapstructure:"CLASSIFIER_TIMEOUT_SECONDS"`
	MappingFile    string `mapstructure:"MAPPING_FILE"`
}

// MappingConfig holds the confidence thresholds for the two mapping modes.
type MappingConfig struct {
	AutoThreshold        float64 `mapstructure:"AUTO_ACCEPT_THRESHOLD"`
	InteractiveThreshold float64 `mapstructure:"INTERACTIVE_ACCEPT_THRESHOLD"`
	RecentTransactions   int     `mapstructure:"MAPPING_CONTEXT_TRANSACTIONS"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	setDefaults()

	// Bind environment variables
	viper.AutomaticEnv()

	config := &Config{
		Environment: viper.GetString("ENV"),
		LogLevel:    viper.GetString("LOG_LEVEL"),
		ServerHost:  viper.GetString("SERVER_HOST"),
		ServerPort:  viper.GetString("SERVER_PORT"),
	}

	config.Database = DatabaseConfig{
		Driver:          viper.GetString("DB_DRIVER"),
		Path:            viper.GetString("DB_PATH"),
		Host:            viper.GetString("DB_HOST"),
		Port:            viper.GetInt("DB_PORT"),
		User:            viper.GetString("DB_USER"),
		Password:        viper.GetString("DB_PASSWORD"),
		Database:        viper.GetString("DB_NAME"),
		SSLMode:         viper.GetString("DB_SSLMODE"),
		LogLevel:        viper.GetString("DB_LOG_LEVEL"),
		MaxConnections:  viper.GetInt("DB_MAX_CONNECTIONS"),
		MinConnections:  viper.GetInt("DB_MIN_CONNECTIONS"),
		MaxConnLifetime: viper.GetInt("DB_MAX_CONN_LIFETIME_MINUTES"),
		MaxConnIdleTime: viper.GetInt("DB_MAX_CONN_IDLE_MINUTES"),
	}

	config.Cache = CacheConfig{
		RedisEnabled: viper.GetBool("CACHE_REDIS_ENABLED"),
		Host:         viper.GetString("REDIS_HOST"),
		Port:         viper.GetInt("REDIS_PORT"),
		Password:     viper.GetString("REDIS_PASSWORD"),
		DB:           viper.GetInt("REDIS_DB"),
		DialTimeout:  viper.GetInt("REDIS_DIAL_TIMEOUT_SECONDS"),
		ReadTimeout:  viper.GetInt("REDIS_READ_TIMEOUT_SECONDS"),
		WriteTimeout: viper.GetInt("REDIS_WRITE_TIMEOUT_SECONDS"),
		PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
		MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		TTLHours:     viper.GetInt("CACHE_TTL_HOURS"),
	}

	// The worker queue shares the Redis connection settings
	config.Queue = QueueConfig{
		Enabled:        viper.GetBool("QUEUE_ENABLED"),
		RedisHost:      config.Cache.Host,
		RedisPort:      config.Cache.Port,
		RedisPassword:  config.Cache.Password,
		RedisDB:        config.Cache.DB,
		DialTimeout:    config.Cache.DialTimeout,
		ReadTimeout:    config.Cache.ReadTimeout,
		WriteTimeout:   config.Cache.WriteTimeout,
		Concurrency:    viper.GetInt("WORKER_CONCURRENCY"),
		MaxRetries:     viper.GetInt("WORKER_MAX_RETRIES"),
		StrictPriority: viper.GetBool("WORKER_STRICT_PRIORITY"),
	}

	dataDir := viper.GetString("DATA_DIR")
	config.Storage = StorageConfig{
		DataDir:       dataDir,
		InboxDir:      filepath.Join(dataDir, "inbox"),
		ProcessedDir:  filepath.Join(dataDir, "processed"),
		QuarantineDir: filepath.Join(dataDir, "quarantine"),
		OutputDir:     viper.GetString("OUTPUT_DIR"),
		MaxFileSizeMB: viper.GetInt64("MAX_FILE_SIZE_MB"),
	}

	config.Classifier = ClassifierConfig{
		URL:            viper.GetString("CLASSIFIER_URL"),
		APIKey:         viper.GetString("CLASSIFIER_API_KEY"),
		Model:          viper.GetString("CLASSIFIER_MODEL"),
		TimeoutSeconds: viper.GetInt("CLASSIFIER_TIMEOUT_SECONDS"),
		MappingFile:    viper.GetString("MAPPING_FILE"),
	}

	config.Mapping = MappingConfig{
		AutoThreshold:        viper.GetFloat64("AUTO_ACCEPT_THRESHOLD"),
		InteractiveThreshold: viper.GetFloat64("INTERACTIVE_ACCEPT_THRESHOLD"),
		RecentTransactions:   viper.GetInt("MAPPING_CONTEXT_TRANSACTIONS"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")

	// Database defaults
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "esg_pipeline.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_NAME", "esgpipeline")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "silent")
	viper.SetDefault("DB_MAX_CONNECTIONS", 10)
	viper.SetDefault("DB_MIN_CONNECTIONS", 2)
	viper.SetDefault("DB_MAX_CONN_LIFETIME_MINUTES", 60)
	viper.SetDefault("DB_MAX_CONN_IDLE_MINUTES", 10)

	// Redis defaults
	viper.SetDefault("CACHE_REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT_SECONDS", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT_SECONDS", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT_SECONDS", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 1)
	viper.SetDefault("CACHE_TTL_HOURS", 24*30)

	// Worker defaults: a single writer
	viper.SetDefault("QUEUE_ENABLED", false)
	viper.SetDefault("WORKER_CONCURRENCY", 1)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)
	viper.SetDefault("WORKER_STRICT_PRIORITY", false)

	// File processing defaults
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("OUTPUT_DIR", "output")
	viper.SetDefault("MAX_FILE_SIZE_MB", 100)

	// Classification defaults
	viper.SetDefault("CLASSIFIER_MODEL", "esg-classifier")
	viper.SetDefault("CLASSIFIER_TIMEOUT_SECONDS", 30)
	viper.SetDefault("AUTO_ACCEPT_THRESHOLD", 0.8)
	viper.SetDefault("INTERACTIVE_ACCEPT_THRESHOLD", 0.9)
	viper.SetDefault("MAPPING_CONTEXT_TRANSACTIONS", 10)
}

// Validate checks field combinations that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite or postgres)", c.Database.Driver)
	}

	for name, v := range map[string]float64{
		"AUTO_ACCEPT_THRESHOLD":        c.Mapping.AutoThreshold,
		"INTERACTIVE_ACCEPT_THRESHOLD": c.Mapping.InteractiveThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}

	return nil
}

// GetRedisURL constructs the Redis connection string
func (c *Config) GetRedisURL() string {
	return fmt.Sprintf("%s:%d", c.Cache.Host, c.Cache.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Server: %s:%s", c.ServerHost, c.ServerPort)
	if c.Database.Driver == "sqlite" {
		log.Printf("  Database: sqlite %s", c.Database.Path)
	} else {
		log.Printf("  Database: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)
	}
	log.Printf("  Redis: %s (DB: %d, cache enabled: %t)", c.GetRedisURL(), c.Cache.DB, c.Cache.RedisEnabled)
	log.Printf("  Data dir: %s", c.Storage.DataDir)
	log.Printf("  Worker Concurrency: %d", c.Queue.Concurrency)

	// Check API keys without revealing them
	if c.Classifier.APIKey != "" {
		log.Printf("  Classifier API Key: [CONFIGURED]")
	} else {
		log.Printf("  Classifier API Key: [NOT SET]")
	}
}

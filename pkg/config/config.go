package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Broker   BrokerConfig
	Dispatch DispatchConfig
	Gateway  GatewayConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds token issuance configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// BrokerConfig holds NATS connection settings
type BrokerConfig struct {
	URL              string
	StreamName       string
	ConnectAttempts  int
	ReconnectWaitSec int
}

// DispatchConfig tunes the long-poll coordinator
type DispatchConfig struct {
	DefaultPollTimeoutSec int
	MaxPollTimeoutSec     int
	BufferCapacity        int
	PublishRetries        int
	PublishBackoffMs      int
}

// GatewayConfig holds upstream base addresses for the edge proxy
type GatewayConfig struct {
	AuthServiceURL     string
	RidesServiceURL    string
	DispatchServiceURL string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "swiftride"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		Broker: BrokerConfig{
			URL:              getEnv("BROKER_URL", "nats://localhost:4222"),
			StreamName:       getEnv("BROKER_STREAM", "DISPATCH"),
			ConnectAttempts:  getEnvAsInt("BROKER_CONNECT_ATTEMPTS", 5),
			ReconnectWaitSec: getEnvAsInt("BROKER_RECONNECT_WAIT", 2),
		},
		Dispatch: DispatchConfig{
			DefaultPollTimeoutSec: getEnvAsInt("DISPATCH_POLL_TIMEOUT", 30),
			MaxPollTimeoutSec:     getEnvAsInt("DISPATCH_MAX_POLL_TIMEOUT", 60),
			BufferCapacity:        getEnvAsInt("DISPATCH_BUFFER_CAPACITY", 256),
			PublishRetries:        getEnvAsInt("DISPATCH_PUBLISH_RETRIES", 3),
			PublishBackoffMs:      getEnvAsInt("DISPATCH_PUBLISH_BACKOFF_MS", 200),
		},
		Gateway: GatewayConfig{
			AuthServiceURL:     getEnv("AUTH_SERVICE_URL", "http://localhost:8081"),
			RidesServiceURL:    getEnv("RIDES_SERVICE_URL", "http://localhost:8082"),
			DispatchServiceURL: getEnv("DISPATCH_SERVICE_URL", "http://localhost:8083"),
		},
	}

	if cfg.Dispatch.DefaultPollTimeoutSec <= 0 {
		cfg.Dispatch.DefaultPollTimeoutSec = 30
	}
	if cfg.Dispatch.MaxPollTimeoutSec < cfg.Dispatch.DefaultPollTimeoutSec {
		cfg.Dispatch.MaxPollTimeoutSec = cfg.Dispatch.DefaultPollTimeoutSec
	}
	if cfg.Dispatch.BufferCapacity <= 0 {
		cfg.Dispatch.BufferCapacity = 256
	}
	if cfg.Broker.ConnectAttempts <= 0 {
		cfg.Broker.ConnectAttempts = 5
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// DefaultPollTimeout returns the default long-poll timeout as a duration
func (c *DispatchConfig) DefaultPollTimeout() time.Duration {
	return time.Duration(c.DefaultPollTimeoutSec) * time.Second
}

// MaxPollTimeout returns the server-side long-poll ceiling as a duration
func (c *DispatchConfig) MaxPollTimeout() time.Duration {
	return time.Duration(c.MaxPollTimeoutSec) * time.Second
}

// PublishBackoff returns the initial retry backoff for dispatch publishes
func (c *DispatchConfig) PublishBackoff() time.Duration {
	return time.Duration(c.PublishBackoffMs) * time.Millisecond
}

// ReconnectWait returns the broker reconnect wait as a duration
func (c *BrokerConfig) ReconnectWait() time.Duration {
	return time.Duration(c.ReconnectWaitSec) * time.Second
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt gets an environment variable as integer with a fallback value
func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

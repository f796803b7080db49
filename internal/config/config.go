package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bluesky  BlueskyConfig
	Sync     SyncConfig
	Secrets  SecretsConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Secure      bool   // Use HTTPS-only cookies
	Environment string // "development", "production", "test"
	Debug       bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type BlueskyConfig struct {
	ServiceURL string
	Timeout    time.Duration
}

type SyncConfig struct {
	PushRate          int // outbound block creations per second
	FanoutConcurrency int
	RateLimit         int // sync requests per account per hour
	CommunityListPath string
}

type SecretsConfig struct {
	// TokenSealKey seals stored Bluesky tokens. Empty disables sealing.
	TokenSealKey []byte
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			Secure:      getEnvBool("SERVER_SECURE", false),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "shield"),
			Password: getEnv("DB_PASSWORD", "shield"),
			DBName:   getEnv("DB_NAME", "blockshield"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Bluesky: BlueskyConfig{
			ServiceURL: getEnv("BSKY_SERVICE_URL", "https://bsky.social"),
			Timeout:    time.Duration(getEnvInt("BSKY_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Sync: SyncConfig{
			PushRate:          getEnvInt("SYNC_PUSH_RATE", 10),
			FanoutConcurrency: getEnvInt("SYNC_FANOUT_CONCURRENCY", 4),
			RateLimit:         getEnvInt("SYNC_RATE_LIMIT", 12),
			CommunityListPath: getEnv("COMMUNITY_LIST_PATH", "docs/community-blocklist.json"),
		},
	}

	if raw := getEnv("TOKEN_SEAL_KEY", ""); raw != "" {
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding TOKEN_SEAL_KEY: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("TOKEN_SEAL_KEY must be 32 bytes, got %d", len(key))
		}
		cfg.Secrets.TokenSealKey = key
	} else if cfg.Server.Environment == "production" {
		return nil, fmt.Errorf("TOKEN_SEAL_KEY is required in production")
	}

	if cfg.Sync.PushRate < 1 {
		cfg.Sync.PushRate = 1
	}
	if cfg.Sync.FanoutConcurrency < 1 {
		cfg.Sync.FanoutConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

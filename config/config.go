package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort   string
	AppMode   string
	StorePath string
	DeviceID  string
	AccountID string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	SyncOutboxBackend string
	SyncIntervalMs    int
	SyncBatchSize     int
	SyncMaxRetries    int

	RejectDraftsOnDeleted bool
}

const (
	OutboxBackendPebble   = "pebble"
	OutboxBackendPostgres = "postgres"
)

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:               getEnv("APP_PORT", "8080"),
		AppMode:               getEnv("APP_MODE", "debug"),
		StorePath:             getEnv("STORE_PATH", "data/threads"),
		DeviceID:              getEnv("DEVICE_ID", "primary"),
		AccountID:             getEnv("ACCOUNT_ID", "local"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "sentinal_threads"),
		DBPort:                getEnv("DB_PORT", "5432"),
		RedisHost:             getEnv("REDIS_HOST", "localhost"),
		RedisPort:             getEnv("REDIS_PORT", "6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		SyncOutboxBackend:     strings.ToLower(getEnv("SYNC_OUTBOX_BACKEND", OutboxBackendPebble)),
		SyncIntervalMs:        getEnvAsInt("SYNC_INTERVAL_MS", 500),
		SyncBatchSize:         getEnvAsInt("SYNC_BATCH_SIZE", 100),
		SyncMaxRetries:        getEnvAsInt("SYNC_MAX_RETRIES", 10),
		RejectDraftsOnDeleted: getEnvAsBool("REJECT_DRAFTS_ON_DELETED", true),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

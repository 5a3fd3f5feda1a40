package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Which offer store backend to run: "postgres" or "memory"
	StoreBackend string

	// Redis configuration (session registry). When Redis is unreachable the
	// service falls back to the in-memory registry.
	RedisAddress string

	// Editing session liveness
	SessionTimeout time.Duration
	SweepInterval  time.Duration

	// JWT configuration (tokens are issued by the marketplace API)
	JWTSecret string

	// internal secret used for communication between services
	InternalSecret string

	// Marketplace API, notified when an offer commit lands
	MarketplaceAddress string
}

// Global application configuration
var AppConfig Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Find .env file
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		// Try to find .env in parent directories
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}

	// Load .env file if it exists
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	AppConfig = Config{
		ServerPort:         getEnv("PORT", "8080"),
		Environment:        getEnv("ENV", "development"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "postgres"),
		DBPassword:         getEnv("DB_PASSWORD", "postgres"),
		DBName:             getEnv("DB_NAME", "offer_collab"),
		StoreBackend:       getEnv("STORE_BACKEND", "postgres"),
		RedisAddress:       getEnv("REDIS_ADDRESS", "localhost:6379"),
		SessionTimeout:     getDurationSeconds("SESSION_TIMEOUT_SECONDS", 30),
		SweepInterval:      getDurationSeconds("SESSION_SWEEP_SECONDS", 60),
		JWTSecret:          getEnv("JWT_SECRET", "offer-collab-secret"),
		InternalSecret:     getEnv("INTERNAL_SECRET", "offer-collab-internal-secret"),
		MarketplaceAddress: getEnv("MARKETPLACE_ADDRESS", "http://localhost:3000"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getDurationSeconds reads a whole-seconds env var as a time.Duration
func getDurationSeconds(key string, defaultSeconds int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultSeconds) * time.Second
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, using default %ds\n", key, value, defaultSeconds)
		return time.Duration(defaultSeconds) * time.Second
	}
	return time.Duration(n) * time.Second
}

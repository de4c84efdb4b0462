package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort int

	// Database configuration
	DatabaseHost     string
	DatabasePort     string
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Redis configuration
	RedisHost     string
	RedisPassword string
	RedisPort     string

	// ML configuration
	ML MLConfig

	// Emulator configuration
	Emulator EmulatorConfig
}

// MLConfig holds scoring engine parameters
type MLConfig struct {
	NumTrees   int
	SampleSize int
	Seed       int64

	// Drift monitoring
	DriftWindowSize      int // recent transactions per drift report
	DriftIntervalSeconds int // background refresh cadence
}

// EmulatorConfig holds synthetic traffic generator parameters
type EmulatorConfig struct {
	SeedUsers          int
	AnomalyProbability float64
	MinIntervalMs      int
	MaxIntervalMs      int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database configuration
		DatabaseHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DatabasePort:     getEnvOrDefault("DB_PORT", "5432"),
		DatabaseName:     getEnvOrDefault("DB_NAME", "fraudwatch"),
		DatabaseUser:     getEnvOrDefault("DB_USER", "fraudwatch"),
		DatabasePassword: getEnvOrDefault("DB_PASSWORD", "fraudwatch123"),

		// Redis configuration
		RedisHost:     getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		// ML configuration
		ML: MLConfig{
			NumTrees:   getEnvInt("ML_NUM_TREES", 100),
			SampleSize: getEnvInt("ML_SAMPLE_SIZE", 256),
			Seed:       int64(getEnvInt("ML_SEED", 42)),

			DriftWindowSize:      getEnvInt("ML_DRIFT_WINDOW", 100),
			DriftIntervalSeconds: getEnvInt("ML_DRIFT_INTERVAL", 30),
		},

		// Emulator configuration
		Emulator: EmulatorConfig{
			SeedUsers:          getEnvInt("EMULATOR_SEED_USERS", 50),
			AnomalyProbability: getEnvFloat("EMULATOR_ANOMALY_PROBABILITY", 0.1),
			MinIntervalMs:      getEnvInt("EMULATOR_MIN_INTERVAL_MS", 500),
			MaxIntervalMs:      getEnvInt("EMULATOR_MAX_INTERVAL_MS", 2000),
		},
	}
}

// getEnvInt gets environment variable as int or returns default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets environment variable as float64 or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var floatValue float64
	if _, err := fmt.Sscanf(value, "%f", &floatValue); err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvOrDefault gets environment variable or returns default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

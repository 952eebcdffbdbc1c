package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL      string
	RedisURL         string
	BaseURL          string // Public base URL used to build short links
	Port             string
	JWTSecret        string // Secret key for JWT token signing
	JWTTTL           int    // JWT token expiration time in hours
	ShortCodeLength  int    // Fixed length of generated short codes
	AllocMaxAttempts int    // Claim attempts before giving up on allocation
	CacheTTLSeconds  int    // TTL for cached link records
}

func Load() *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		BaseURL:          getEnv("BASE_URL", "http://localhost:8080"),
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTTTL:           getEnvInt("JWT_TTL_HOURS", 24),
		ShortCodeLength:  getEnvInt("SHORT_CODE_LENGTH", 6),
		AllocMaxAttempts: getEnvInt("ALLOC_MAX_ATTEMPTS", 3),
		CacheTTLSeconds:  getEnvInt("CACHE_TTL_SECONDS", 3600),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

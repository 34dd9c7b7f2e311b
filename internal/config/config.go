package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Env               string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	GoogleClientID    string
	FrontendURL       string
	WorkerCount       int
	MinSessionSeconds int
	FeedFanoutPerUser int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		DatabaseURL:       mustGetEnv("DATABASE_URL"),
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:         mustGetEnv("JWT_SECRET"),
		GoogleClientID:    getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		WorkerCount:       getEnvAsIntOrDefault("WORKER_COUNT", 4),
		MinSessionSeconds: getEnvAsIntOrDefault("MIN_SESSION_SECONDS", 60),
		FeedFanoutPerUser: getEnvAsIntOrDefault("FEED_FANOUT_PER_USER", 5),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("warning: invalid value for %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

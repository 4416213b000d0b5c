package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Nats    NatsConfig
	Therapy TherapyConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	JwtSecret          string
}

type NatsConfig struct {
	URL              string
	AuditStreamName  string
	AuditSubjectBase string
}

type TherapyConfig struct {
	SessionTTL   time.Duration
	MaxSlotRetry int
	MealPlanDays int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Nats: NatsConfig{
			URL:              getEnv("NATS_URL", "nats://localhost:4222"),
			AuditStreamName:  getEnv("NATS_AUDIT_STREAM", "THERAPY_AUDIT"),
			AuditSubjectBase: getEnv("NATS_AUDIT_SUBJECT", "therapy.audit"),
		},
		Therapy: TherapyConfig{
			SessionTTL:   getEnvAsDuration("SESSION_TTL", 30*time.Minute),
			MaxSlotRetry: getEnvAsInt("MAX_SLOT_RETRY", 2),
			MealPlanDays: getEnvAsInt("MEAL_PLAN_DAYS", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

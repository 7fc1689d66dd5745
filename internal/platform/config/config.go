package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	JWTSecret          string
	SessionTTL         time.Duration
	Environment        string
	RunMigrations      bool
	RunSeed            bool
	SeedFile           string
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	SentryDSN          string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GenAITimeout  time.Duration

	SlackBotToken       string
	SlackAPIURL         string
	SlackDefaultChannel string
	SlackTimeout        time.Duration

	SchedulerInterval      time.Duration
	SchedulerWebhookSecret string

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	ReportsDir string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "err", err)
	}

	return Config{
		Addr:                   getEnv("APP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTSecret:              getEnv("JWT_SECRET", ""),
		SessionTTL:             getEnvDuration("SESSION_TTL", 8*time.Hour),
		Environment:            getEnv("APP_ENV", "development"),
		RunMigrations:          getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                getEnvBool("RUN_SEED", true),
		SeedFile:               getEnv("SEED_FILE", ""),
		MaxBodyBytes:           int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:     getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MetricsEnabled:         getEnvBool("METRICS_ENABLED", true),
		SentryDSN:              getEnv("SENTRY_DSN", ""),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:            getEnv("GEMINI_MODEL", "gemini-1.5-flash-latest"),
		GeminiBaseURL:          getEnv("GEMINI_BASE_URL", ""),
		GenAITimeout:           getEnvDuration("GENAI_TIMEOUT", 20*time.Second),
		SlackBotToken:          getEnv("SLACK_BOT_TOKEN", ""),
		SlackAPIURL:            getEnv("SLACK_API_URL", "https://slack.com/api"),
		SlackDefaultChannel:    getEnv("SLACK_DEFAULT_CHANNEL", ""),
		SlackTimeout:           getEnvDuration("SLACK_TIMEOUT", 10*time.Second),
		SchedulerInterval:      getEnvDuration("SCHEDULER_INTERVAL", 24*time.Hour),
		SchedulerWebhookSecret: getEnv("SCHEDULER_WEBHOOK_SECRET", ""),
		GoogleClientID:         getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectURL:       getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/api/v1/auth/oauth/google/callback"),
		ReportsDir:             getEnv("REPORTS_DIR", "storage/reports"),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) OAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.GenAITimeout <= 0 || c.SlackTimeout <= 0 {
		return fmt.Errorf("GENAI_TIMEOUT and SLACK_TIMEOUT must be positive")
	}
	return nil
}

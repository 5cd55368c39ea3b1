package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	AIProviderGroq = "groq"
	AIProviderMock = "mock"

	localSessionSecret = "local-dev-session-secret"
)

type Config struct {
	AppEnv              string
	AppName             string
	APIPrefix           string
	AppPort             string
	LogLevel            string
	CORSAllowOrigins    []string
	AIProvider          string
	GroqAPIKey          string
	GroqModel           string
	GroqBaseURL         string
	AITimeoutSeconds    int
	SessionSecret       string
	SessionCacheSize    int
	SessionCookieSecure bool
}

func Load() Config {
	_ = godotenv.Load(".env")

	appEnv := getEnv("APP_ENV", "local")
	sessionFallback := ""
	if appEnv == "local" {
		sessionFallback = localSessionSecret
	}

	return Config{
		AppEnv:    appEnv,
		AppName:   getEnv("APP_NAME", "Fitplan API"),
		APIPrefix: getEnv("API_PREFIX", "/api/v1"),
		AppPort:   getEnv("APP_PORT", "8000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		AIProvider:          strings.ToLower(getEnv("AI_PROVIDER", AIProviderGroq)),
		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqModel:           getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		AITimeoutSeconds:    getEnvInt("AI_TIMEOUT_SECONDS", 60),
		SessionSecret:       getEnv("SESSION_SECRET", sessionFallback),
		SessionCacheSize:    getEnvInt("SESSION_CACHE_SIZE", 1024),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
	}
}

// Validate reports settings that make the process unable to serve at all.
// A missing GROQ_API_KEY is not one of them: it surfaces on the first plan
// request instead.
func (c Config) Validate() error {
	if strings.TrimSpace(c.AppPort) == "" {
		return errors.New("APP_PORT is required")
	}
	if _, err := strconv.Atoi(c.AppPort); err != nil {
		return fmt.Errorf("APP_PORT must be numeric, got %q", c.AppPort)
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return errors.New("API_PREFIX must start with /")
	}
	switch c.AIProvider {
	case AIProviderGroq, AIProviderMock:
	default:
		return fmt.Errorf("AI_PROVIDER must be one of: %s, %s", AIProviderGroq, AIProviderMock)
	}
	secret := strings.TrimSpace(c.SessionSecret)
	if secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if secret == localSessionSecret && c.AppEnv != "local" {
		return errors.New("SESSION_SECRET must not use the local default outside APP_ENV=local")
	}
	if len(secret) < 16 {
		return errors.New("SESSION_SECRET is too short; use at least 16 characters")
	}
	if c.SessionCacheSize <= 0 {
		return errors.New("SESSION_CACHE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

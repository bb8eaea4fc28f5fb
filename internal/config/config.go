package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort             = "8080"
	defaultTokenTTLHours    = 24
	defaultFrontendOrigin   = "http://localhost:8501"
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGroqModel        = "llama-3.3-70b-versatile"
	defaultTemperature      = 0.7
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultGroqBaseURL      = "https://api.groq.com/openai/v1"
	defaultTavilyBaseURL    = "https://api.tavily.com"
	defaultSearchMaxResults = 2
)

type Config struct {
	Port              string
	Environment       string
	AllowedOrigins    []string
	DatabaseURL       string
	DatabaseAuthToken string
	JWTSecret         string
	TokenTTL          time.Duration

	GeminiAPIKey      string
	GeminiModel       string
	GeminiTemperature float32
	GeminiBaseURL     string

	GroqAPIKey      string
	GroqModel       string
	GroqTemperature float32
	GroqBaseURL     string

	TavilyAPIKey     string
	TavilyBaseURL    string
	SearchMaxResults int
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func Load() (Config, error) {
	cfg := Config{
		Port:              envOrDefault("PORT", defaultPort),
		Environment:       envOrDefault("APP_ENV", "development"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseAuthToken: strings.TrimSpace(os.Getenv("DATABASE_AUTH_TOKEN")),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),

		GeminiAPIKey:      strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:       envOrDefault("GEMINI_MODEL", defaultGeminiModel),
		GeminiTemperature: floatOrDefault("GEMINI_TEMPERATURE", defaultTemperature),
		GeminiBaseURL:     envOrDefault("GEMINI_BASE_URL", defaultGeminiBaseURL),

		GroqAPIKey:      strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqModel:       envOrDefault("GROQ_MODEL", defaultGroqModel),
		GroqTemperature: floatOrDefault("GROQ_TEMPERATURE", defaultTemperature),
		GroqBaseURL:     envOrDefault("GROQ_BASE_URL", defaultGroqBaseURL),

		TavilyAPIKey:     strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TavilyBaseURL:    envOrDefault("TAVILY_BASE_URL", defaultTavilyBaseURL),
		SearchMaxResults: intOrDefault("SEARCH_MAX_RESULTS", defaultSearchMaxResults),
	}

	tokenTTLHours := intOrDefault("TOKEN_TTL_HOURS", defaultTokenTTLHours)
	if tokenTTLHours <= 0 {
		return Config{}, errors.New("TOKEN_TTL_HOURS must be > 0")
	}
	cfg.TokenTTL = time.Duration(tokenTTLHours) * time.Hour

	origins := parseList(envOrDefault("CORS_ALLOWED_ORIGINS", defaultFrontendOrigin+",http://localhost:5173"))
	if len(origins) == 0 {
		return Config{}, errors.New("CORS_ALLOWED_ORIGINS must include at least one origin")
	}
	cfg.AllowedOrigins = origins

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if strings.HasPrefix(cfg.DatabaseURL, "libsql://") && cfg.DatabaseAuthToken == "" {
		return Config{}, errors.New("DATABASE_AUTH_TOKEN is required for libsql:// URLs")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.SearchMaxResults <= 0 {
		cfg.SearchMaxResults = defaultSearchMaxResults
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func floatOrDefault(key string, fallback float32) float32 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return fallback
	}
	return float32(parsed)
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

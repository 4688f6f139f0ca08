package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Values come from the environment;
// a .env file in the working directory is loaded first if present.
type Config struct {
	ProjectID     string
	Dataset       string
	Bucket        string
	GeminiModel   string
	Port          string
	LogLevel      string
	OracleTimeout time.Duration

	// APITokens maps bearer tokens to user IDs. Empty means development
	// mode: every request runs as the demo user.
	APITokens map[string]string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:     getEnv("GCP_PROJECT_ID", ""),
		Dataset:       getEnv("BQ_DATASET", "boekhouding"),
		Bucket:        getEnv("GCS_BUCKET", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OracleTimeout: getDuration("ORACLE_TIMEOUT", 60*time.Second),
	}

	tokens, err := parseTokens(os.Getenv("API_TOKENS"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.APITokens = tokens

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// parseTokens parses "token1:alice,token2:bob" into a lookup map.
func parseTokens(s string) (map[string]string, error) {
	tokens := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return tokens, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed API_TOKENS entry %q", pair)
		}
		tokens[parts[0]] = parts[1]
	}
	return tokens, nil
}

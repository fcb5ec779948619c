package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	AgentsFile      string
	RequestsPerMin  int
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
}

// Load reads configuration from the environment. Values in a .env file in
// the working directory are used for keys not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            envInt("ZKBLUEPRINT_PORT", 8760),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("ZKBLUEPRINT_MODEL", "claude-3-5-sonnet-20241022"),
		AgentsFile:      envStr("ZKBLUEPRINT_AGENTS_FILE", ""),
		RequestsPerMin:  envInt("LLM_REQUESTS_PER_MINUTE", 0),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

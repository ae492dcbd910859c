// Package config loads application settings from the environment and an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names selectable via the PROVIDER variable.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds the application settings.
type Config struct {
	AppName string
	Addr    string

	// Provider selects the completion backend.
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	// DatabaseURL is a PostgreSQL DSN. Empty runs on the in-memory store.
	DatabaseURL string
	// RedisAddr enables the medication read cache when set.
	RedisAddr string
	// MongoURI enables conversation trace archiving when set.
	MongoURI string

	CORSOrigins   []string
	MaxIterations int
	SeedDatabase  bool

	Environment    string
	DisableTracing bool
}

// Load reads settings from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:         getEnv("APP_NAME", "Pharmacy Assistant"),
		Addr:            getEnv("ADDR", ":8000"),
		Provider:        strings.ToLower(getEnv("PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		MongoURI:        os.Getenv("MONGO_URI"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS",
			"http://localhost:5173,http://localhost:3000")),
		MaxIterations:  getEnvInt("MAX_ITERATIONS", 10),
		SeedDatabase:   getEnvBool("SEED_DATABASE", true),
		Environment:    getEnv("ENVIRONMENT", "development"),
		DisableTracing: getEnvBool("DISABLE_TRACING", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	v := NewValidator()
	v.ValidateAddr("ADDR", c.Addr)
	v.ValidateOneOf("PROVIDER", c.Provider, ProviderOpenAI, ProviderAnthropic)
	v.ValidateRange("MAX_ITERATIONS", c.MaxIterations, 1, 50)
	return v.Error()
}

// OpenAIConfigured reports whether a plausible OpenAI key is present. The
// key is allowed to be absent so health checks can run without credentials.
func (c *Config) OpenAIConfigured() bool {
	return c.OpenAIAPIKey != "" && strings.HasPrefix(c.OpenAIAPIKey, "sk-")
}

// AnthropicConfigured reports whether an Anthropic key is present.
func (c *Config) AnthropicConfigured() bool {
	return strings.TrimSpace(c.AnthropicAPIKey) != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

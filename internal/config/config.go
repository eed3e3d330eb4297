package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	OpenAIAPIKey       string
	OpenAIModel        string
	ProviderTimeout    time.Duration
	ReportCacheTTL     time.Duration
	DefaultRoleProfile string
	MaxTurns           int
	StreamingEnabled   bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("INTERVU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Intervu API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("provider.timeout", "45s")
	v.SetDefault("report.cache_ttl", "2m")
	v.SetDefault("interview.default_role", "Software Engineer")
	v.SetDefault("interview.max_turns", 5)
	v.SetDefault("interview.streaming", true)

	timeout, err := time.ParseDuration(v.GetString("provider.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid provider timeout: %w", err)
	}

	ttl, err := time.ParseDuration(v.GetString("report.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid report cache ttl: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		OpenAIAPIKey:       v.GetString("openai.api_key"),
		OpenAIModel:        v.GetString("openai.model"),
		ProviderTimeout:    timeout,
		ReportCacheTTL:     ttl,
		DefaultRoleProfile: v.GetString("interview.default_role"),
		MaxTurns:           v.GetInt("interview.max_turns"),
		StreamingEnabled:   v.GetBool("interview.streaming"),
	}

	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 5
	}

	return cfg, nil
}

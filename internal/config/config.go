package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"gopkg.in/yaml.v3"

	"github.com/davidbz/howl/internal/agent"
	"github.com/davidbz/howl/internal/models"
	"github.com/davidbz/howl/internal/ratelimit"
)

// Config represents the gateway configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Agent     agent.Config
	RateLimit ratelimit.Config
	Models    ModelsConfig
}

// ServerConfig contains HTTP server settings. The write timeout defaults
// to 0 (disabled): a fixed write deadline would cut long-lived streams.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"0"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization,X-Api-Key"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// ModelsConfig configures the external↔internal model id table.
// MODEL_MAP is a comma-separated list of external=internal pairs. When
// MODEL_MAP_FILE points to a YAML file, the file replaces the env table.
type ModelsConfig struct {
	Map  []string `env:"MODEL_MAP" envSeparator:"," envDefault:"gpt-4=claude-sonnet-4-20250514,gpt-4o=claude-opus-4-1-20250805,gpt-3.5-turbo=claude-3-5-haiku-20241022"`
	File string   `env:"MODEL_MAP_FILE"`
}

// Mappings resolves the configured model table.
func (c ModelsConfig) Mappings() ([]models.Mapping, error) {
	if c.File != "" {
		return loadMappingFile(c.File)
	}

	mappings := make([]models.Mapping, 0, len(c.Map))
	for _, pair := range c.Map {
		external, internal, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("model mapping %q is not of the form external=internal", pair)
		}
		mappings = append(mappings, models.Mapping{
			External: strings.TrimSpace(external),
			Internal: strings.TrimSpace(internal),
		})
	}
	return mappings, nil
}

func loadMappingFile(path string) ([]models.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model map file: %w", err)
	}

	var mappings []models.Mapping
	if err := yaml.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("failed to parse model map file: %w", err)
	}
	return mappings, nil
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	Agent     *agent.Config
	RateLimit *ratelimit.Config
	*ModelsConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Agent,
		&cfg.RateLimit,
		&cfg.Models,
	}
}

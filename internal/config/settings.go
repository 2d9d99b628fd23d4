package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Transport type constants
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Embeddings provider constants
const (
	ProviderStatic = "static"
	ProviderOpenAI = "openai"
)

// LogSettings configuration for logging
type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn or error
	Format string `mapstructure:"format"` // text or json
}

// EmbeddingsSettings configuration for the text encoder
type EmbeddingsSettings struct {
	Provider          string        `mapstructure:"provider"` // ProviderStatic or ProviderOpenAI
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	CacheSize         int           `mapstructure:"cache_size"`
}

// IndexSettings configuration for index builds
type IndexSettings struct {
	MaxDiffBytes int           `mapstructure:"max_diff_bytes"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
}

// SearchSettings configuration for queries
type SearchSettings struct {
	Results  int     `mapstructure:"results"`
	MinScore float64 `mapstructure:"min_score"`
}

// ServeSettings configuration for the MCP server
type ServeSettings struct {
	Transport string `mapstructure:"transport"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
}

// Settings application settings
type Settings struct {
	Log        LogSettings        `mapstructure:"log"`
	Embeddings EmbeddingsSettings `mapstructure:"embeddings"`
	Index      IndexSettings      `mapstructure:"index"`
	Search     SearchSettings     `mapstructure:"search"`
	Serve      ServeSettings      `mapstructure:"serve"`
}

// flagKeys maps CLI flag names to settings keys.
var flagKeys = map[string]string{
	"log-level":           "log.level",
	"log-format":          "log.format",
	"embeddings-provider": "embeddings.provider",
	"embeddings-model":    "embeddings.model",
	"embeddings-base-url": "embeddings.base_url",
	"max-diff-bytes":      "index.max_diff_bytes",
	"lock-timeout":        "index.lock_timeout",
	"results":             "search.results",
	"min-score":           "search.min_score",
	"transport":           "serve.transport",
	"host":                "serve.host",
	"port":                "serve.port",
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used. Flags missing from
// the set are ignored.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("embeddings.provider", ProviderStatic)
	v.SetDefault("embeddings.model", "")
	v.SetDefault("embeddings.api_key", "")
	v.SetDefault("embeddings.base_url", "https://api.openai.com/v1")
	v.SetDefault("embeddings.timeout", 30*time.Second)
	v.SetDefault("embeddings.requests_per_second", 0.0)
	v.SetDefault("embeddings.cache_size", 1000)

	v.SetDefault("index.max_diff_bytes", 10_000)
	v.SetDefault("index.lock_timeout", 30*time.Second)

	v.SetDefault("search.results", 10)
	v.SetDefault("search.min_score", 0.0)

	v.SetDefault("serve.transport", TransportStdio)
	v.SetDefault("serve.host", "127.0.0.1")
	v.SetDefault("serve.port", 8080)

	// Environment variables
	v.SetEnvPrefix("GIT_SEMANTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	keys := v.AllKeys()
	for _, key := range keys {
		_ = v.BindEnv(key, envName(key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				_ = v.BindPFlag(key, flag)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	// .env entries use the environment variable names and rank below the environment
	for _, key := range keys {
		if name := strings.ToLower(envName(key)); v.InConfig(name) {
			v.SetDefault(key, v.Get(name))
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Log.Level = strings.ToLower(strings.TrimSpace(settings.Log.Level))
	settings.Log.Format = strings.ToLower(strings.TrimSpace(settings.Log.Format))
	settings.Embeddings.Provider = strings.ToLower(strings.TrimSpace(settings.Embeddings.Provider))
	settings.Embeddings.APIKey = strings.TrimSpace(settings.Embeddings.APIKey)

	return &settings, nil
}

// envName returns the environment variable bound to a settings key.
func envName(key string) string {
	return "GIT_SEMANTIC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// ValidateSettings checks for invalid or incomplete configurations.
func ValidateSettings(s *Settings) error {
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return errors.New("log-level must be one of debug, info, warn or error, got: " + s.Log.Level)
	}

	switch s.Log.Format {
	case "text", "json":
		// valid
	default:
		return errors.New("log-format must be 'text' or 'json', got: " + s.Log.Format)
	}

	if err := validateEmbeddingsSettings(&s.Embeddings); err != nil {
		return err
	}

	if s.Index.MaxDiffBytes <= 0 {
		return errors.New("max-diff-bytes must be positive")
	}
	if s.Index.LockTimeout <= 0 {
		return errors.New("lock-timeout must be positive")
	}

	if s.Search.Results <= 0 {
		return errors.New("results must be positive")
	}
	if s.Search.MinScore < -1 || s.Search.MinScore > 1 {
		return fmt.Errorf("min-score must be between -1 and 1, got: %g", s.Search.MinScore)
	}

	switch s.Serve.Transport {
	case TransportStdio, TransportSSE:
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Serve.Transport)
	}
	if s.Serve.Transport == TransportSSE && (s.Serve.Port <= 0 || s.Serve.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got: %d", s.Serve.Port)
	}

	return nil
}

// validateEmbeddingsSettings validates the encoder configuration
func validateEmbeddingsSettings(e *EmbeddingsSettings) error {
	switch e.Provider {
	case ProviderStatic:
		return nil
	case ProviderOpenAI:
		// validated below
	default:
		return errors.New("embeddings-provider must be 'static' or 'openai', got: " + e.Provider)
	}

	if e.Model == "" {
		return errors.New("embeddings-provider 'openai' requires embeddings-model")
	}
	if e.BaseURL == "" {
		return errors.New("embeddings-base-url cannot be empty")
	}
	if e.Timeout <= 0 {
		return errors.New("embeddings timeout must be positive")
	}
	if e.RequestsPerSecond < 0 {
		return errors.New("embeddings requests per second cannot be negative")
	}
	return nil
}

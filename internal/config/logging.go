package config

import (
	"context"
	"io"
	"log/slog"
)

// NewLogger creates the application logger writing to w in the configured
// level and format.
func NewLogger(s LogSettings, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(s.Level)}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: log.level", "value", s.Log.Level)

	logger.InfoContext(ctx, "Config: embeddings.provider", "value", s.Embeddings.Provider)
	if s.Embeddings.Provider == ProviderOpenAI {
		logger.InfoContext(ctx, "Config: embeddings.model", "value", s.Embeddings.Model)
		logger.InfoContext(ctx, "Config: embeddings.base_url", "value", s.Embeddings.BaseURL)
		logger.InfoContext(ctx, "Config: embeddings.api_key", "value", mask(s.Embeddings.APIKey))
		logger.InfoContext(ctx, "Config: embeddings.timeout", "value", s.Embeddings.Timeout)
		if s.Embeddings.RequestsPerSecond > 0 {
			logger.InfoContext(ctx, "Config: embeddings.requests_per_second", "value", s.Embeddings.RequestsPerSecond)
		}
	}

	logger.InfoContext(ctx, "Config: index.max_diff_bytes", "value", s.Index.MaxDiffBytes)
	logger.InfoContext(ctx, "Config: index.lock_timeout", "value", s.Index.LockTimeout)
}

// LogServe logs the server settings.
func LogServe(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: serve.transport", "value", s.Serve.Transport)
	if s.Serve.Transport == TransportSSE {
		logger.InfoContext(ctx, "Config: serve.host", "value", s.Serve.Host)
		logger.InfoContext(ctx, "Config: serve.port", "value", s.Serve.Port)
	}
	logger.InfoContext(ctx, "Config: embeddings.cache_size", "value", s.Embeddings.CacheSize)
}

// EmbeddingsSettingsLogValue returns a slog.Value for EmbeddingsSettings with masked data
func EmbeddingsSettingsLogValue(s EmbeddingsSettings) slog.Value {
	return slog.GroupValue(
		slog.String("provider", s.Provider),
		slog.String("model", s.Model),
		slog.String("base_url", s.BaseURL),
		slog.String("api_key", mask(s.APIKey)),
		slog.Duration("timeout", s.Timeout),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("log_level", s.Log.Level),
		slog.Any("embeddings", EmbeddingsSettingsLogValue(s.Embeddings)),
		slog.Int("max_diff_bytes", s.Index.MaxDiffBytes),
		slog.String("transport", s.Serve.Transport),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

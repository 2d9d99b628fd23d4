package embed

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderStatic = "static"
	ProviderOpenAI = "openai"
)

// Config selects and configures an encoder.
type Config struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// New creates the encoder named by cfg.Provider. An empty provider selects
// the static encoder.
func New(cfg Config) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderStatic:
		return NewStaticEncoder(), nil
	case ProviderOpenAI:
		if cfg.Model == "" {
			return nil, fmt.Errorf("%w: embeddings model is required for the %s provider", ErrModelNotReady, ProviderOpenAI)
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultRequestTimeout
		}
		return NewOpenAIEncoder(cfg.Model, cfg.APIKey, cfg.BaseURL,
			WithHTTPClient(newHTTPClient(timeout)),
			WithRateLimit(cfg.RequestsPerSecond),
		), nil
	default:
		return nil, fmt.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultOpenAIBaseURL is the default OpenAI-compatible API root.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultRequestTimeout bounds a single embeddings request.
	DefaultRequestTimeout = 30 * time.Second

	maxResponseBytes = 32 << 20
)

// OpenAIEncoder calls an OpenAI-compatible /embeddings endpoint. Ollama and
// most self-hosted gateways expose the same shape.
type OpenAIEncoder struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter

	mu  sync.RWMutex
	dim int
}

// OpenAIOption configures an OpenAIEncoder.
type OpenAIOption func(*OpenAIEncoder)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(e *OpenAIEncoder) {
		e.client = client
	}
}

// WithRateLimit caps the request rate. Zero or negative means unlimited.
func WithRateLimit(requestsPerSecond float64) OpenAIOption {
	return func(e *OpenAIEncoder) {
		if requestsPerSecond > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// WithDimensions declares the expected vector length up front.
func WithDimensions(n int) OpenAIOption {
	return func(e *OpenAIEncoder) {
		e.dim = n
	}
}

// NewOpenAIEncoder creates an encoder for model served at baseURL.
func NewOpenAIEncoder(model, apiKey, baseURL string, opts ...OpenAIOption) *OpenAIEncoder {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	e := &OpenAIEncoder{
		model:   model,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultRequestTimeout},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelID returns "openai:<model>".
func (e *OpenAIEncoder) ModelID() string {
	return "openai:" + e.model
}

// Dimensions returns the vector length seen so far, or 0 before the first call.
func (e *OpenAIEncoder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Encode requests the embedding of text and returns it L2-normalised.
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if e.model == "" {
		return nil, fmt.Errorf("%w: embeddings model is not configured (set GIT_SEMANTIC_EMBEDDINGS_MODEL)", ErrModelNotReady)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("cannot read embeddings response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embeddings request failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("cannot parse embeddings response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings response missing embedding")
	}

	vector := make([]float32, len(parsed.Data[0].Embedding))
	for i, v := range parsed.Data[0].Embedding {
		vector[i] = float32(v)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim != 0 && e.dim != len(vector) {
		return nil, fmt.Errorf("embeddings response has %d dimensions, expected %d", len(vector), e.dim)
	}
	e.dim = len(vector)

	return normalize(vector), nil
}

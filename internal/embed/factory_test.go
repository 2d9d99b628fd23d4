package embed

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default is static", func(t *testing.T) {
		enc, err := New(Config{})
		require.NoError(t, err)
		assert.IsType(t, &StaticEncoder{}, enc)
	})

	t.Run("static", func(t *testing.T) {
		enc, err := New(Config{Provider: "Static"})
		require.NoError(t, err)
		assert.Equal(t, StaticModelID, enc.ModelID())
	})

	t.Run("openai", func(t *testing.T) {
		enc, err := New(Config{
			Provider:          ProviderOpenAI,
			Model:             "text-embedding-3-small",
			APIKey:            "sk",
			BaseURL:           "http://localhost:11434/v1",
			Timeout:           5 * time.Second,
			RequestsPerSecond: 10,
		})
		require.NoError(t, err)
		openai, ok := enc.(*OpenAIEncoder)
		require.True(t, ok)
		assert.Equal(t, "openai:text-embedding-3-small", openai.ModelID())
		assert.Equal(t, 5*time.Second, openai.client.Timeout)
		assert.Equal(t, "http://localhost:11434/v1", openai.baseURL)
	})

	t.Run("openai without model", func(t *testing.T) {
		_, err := New(Config{Provider: ProviderOpenAI})
		assert.True(t, errors.Is(err, ErrModelNotReady))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "word2vec"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported embeddings provider")
	})
}

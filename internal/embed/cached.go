package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached vectors.
const DefaultCacheSize = 1000

// CachedEncoder memoises the vectors of an inner encoder in an LRU cache.
// Repeated queries against a long-running server skip the round trip.
type CachedEncoder struct {
	inner Encoder
	cache *lru.Cache[string, []float32]
}

// NewCachedEncoder wraps inner with a cache holding up to size vectors.
func NewCachedEncoder(inner Encoder, size int) *CachedEncoder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEncoder{inner: inner, cache: cache}
}

func (c *CachedEncoder) key(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelID()))
	return hex.EncodeToString(sum[:])
}

// Encode returns the cached vector for text, computing it on a miss.
// Callers must not modify the returned slice.
func (c *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// ModelID returns the inner encoder's model id.
func (c *CachedEncoder) ModelID() string {
	return c.inner.ModelID()
}

// Dimensions returns the inner encoder's dimensions.
func (c *CachedEncoder) Dimensions() int {
	return c.inner.Dimensions()
}

// Len returns the number of cached vectors.
func (c *CachedEncoder) Len() int {
	return c.cache.Len()
}

package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEncoder_CachesByText(t *testing.T) {
	inner := newCountingEncoder(4)
	cached := NewCachedEncoder(inner, 10)
	ctx := context.Background()

	first, err := cached.Encode(ctx, "query")
	require.NoError(t, err)
	second, err := cached.Encode(ctx, "query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), inner.calls.Load())

	_, err = cached.Encode(ctx, "another query")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inner.calls.Load())
	assert.Equal(t, 2, cached.Len())
}

func TestCachedEncoder_EvictsLeastRecentlyUsed(t *testing.T) {
	inner := newCountingEncoder(2)
	cached := NewCachedEncoder(inner, 2)
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c", "a"} {
		_, err := cached.Encode(ctx, q)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(4), inner.calls.Load())
	assert.Equal(t, 2, cached.Len())
}

func TestCachedEncoder_DoesNotCacheErrors(t *testing.T) {
	inner := newCountingEncoder(2)
	inner.err = errors.New("backend down")
	cached := NewCachedEncoder(inner, 0)

	_, err := cached.Encode(context.Background(), "q")
	require.Error(t, err)
	_, err = cached.Encode(context.Background(), "q")
	require.Error(t, err)

	assert.Equal(t, int64(2), inner.calls.Load())
	assert.Equal(t, 0, cached.Len())
}

func TestCachedEncoder_Passthrough(t *testing.T) {
	cached := NewCachedEncoder(NewStaticEncoder(), 5)
	assert.Equal(t, StaticModelID, cached.ModelID())
	assert.Equal(t, StaticDimensions, cached.Dimensions())
}

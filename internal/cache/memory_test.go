package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesentry/internal/common"
)

func TestMemoryCache_GetBeforeExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, common.SourceVirusTotal, "https://example.com", []byte(`{"positives":3}`), time.Minute)

	data, ok := c.Get(ctx, common.SourceVirusTotal, "https://example.com")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"positives":3}`), data)
}

func TestMemoryCache_ExpiredEntryIsAbsent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set(ctx, common.SourcePhishTank, "k", []byte("v"), time.Hour)

	// Still inside the TTL.
	_, ok := c.Get(ctx, common.SourcePhishTank, "k")
	assert.True(t, ok)

	// Strictly after expiry the entry must be gone and lazily evicted.
	c.now = func() time.Time { return base.Add(time.Hour + time.Millisecond) }
	_, ok = c.Get(ctx, common.SourcePhishTank, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size(), "expired entry should be evicted on read")
}

func TestMemoryCache_MissOnUnknownKey(t *testing.T) {
	c := NewMemoryCache()
	_, ok := c.Get(context.Background(), common.SourceSafeBrowsing, "nope")
	assert.False(t, ok)
}

func TestMemoryCache_SourceNamespacing(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, common.SourcePhishTank, "https://a.example", []byte("pt"), time.Minute)
	c.Set(ctx, common.SourceVirusTotal, "https://a.example", []byte("vt"), time.Minute)

	data, ok := c.Get(ctx, common.SourcePhishTank, "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "pt", string(data))

	data, ok = c.Get(ctx, common.SourceVirusTotal, "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "vt", string(data))
}

func TestMemoryCache_ClearSingleSource(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, common.SourcePhishTank, "k", []byte("pt"), time.Minute)
	c.Set(ctx, common.SourceVirusTotal, "k", []byte("vt"), time.Minute)

	c.Clear(ctx, common.SourcePhishTank)

	_, ok := c.Get(ctx, common.SourcePhishTank, "k")
	assert.False(t, ok)
	_, ok = c.Get(ctx, common.SourceVirusTotal, "k")
	assert.True(t, ok)
}

func TestMemoryCache_ClearAll(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, common.SourcePhishTank, "k", []byte("pt"), time.Minute)
	c.Set(ctx, common.SourceVirusTotal, "k", []byte("vt"), time.Minute)

	c.Clear(ctx)
	assert.Equal(t, 0, c.Size())
}

func TestMemoryCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, common.SourceVirusTotal, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, common.SourceVirusTotal, "k")
	assert.False(t, ok)
}

// Package cache stores raw reputation payloads with a per-entry TTL,
// namespaced by source. External providers are rate-limited and slow, so
// assessments reuse cached payloads until they expire.
package cache

import (
	"context"
	"time"

	"pagesentry/internal/common"
)

// Cache is a TTL key-value cache keyed by (source, lookup key). An entry is
// never returned past its expiry; expired entries are evicted lazily on read.
type Cache interface {
	// Get returns the stored payload, or false both on miss and on expiry.
	Get(ctx context.Context, source common.SourceID, key string) ([]byte, bool)
	// Set stores data for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, source common.SourceID, key string, data []byte, ttl time.Duration)
	// Clear drops all entries for the given sources, or everything when
	// called with no sources.
	Clear(ctx context.Context, sources ...common.SourceID)
}

func entryKey(source common.SourceID, key string) string {
	return string(source) + "\x00" + key
}

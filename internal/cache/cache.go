package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the interface the transport uses to memoize remote responses
// within a single process. There is deliberately no persistent
// implementation: results must not survive a run.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// RequestKey derives a cache key from the full request URL, including the
// encoded query string, so calls with different id batches never collide.
func RequestKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "searchpubmed:v1:" + hex.EncodeToString(hash[:])
}

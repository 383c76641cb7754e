package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"signoff/internal/inference"
)

// ErrCacheMiss signals the requested result is not cached.
var ErrCacheMiss = errors.New("verify: result not cached")

// ResultCache stores classified results keyed by request digest. Sampling is
// deterministic, so an identical composed request always yields an identical
// reply and the whole attempt can be skipped on a hit.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, error)
	Set(ctx context.Context, key string, result Result) error
}

// requestDigest derives a stable cache key from the composed request: the
// system instruction plus every part, in order, with type tags so a text
// part can never collide with an image part.
func requestDigest(req inference.Request) string {
	h := sha256.New()
	h.Write([]byte(req.System))
	h.Write([]byte{0})
	for _, part := range req.Parts {
		if part.IsImage() {
			h.Write([]byte{'i'})
			h.Write(part.Image)
		} else {
			h.Write([]byte{'t'})
			h.Write([]byte(part.Text))
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache keeps results in process memory. Used by tests and by
// single-instance deployments without Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]Result{}}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.entries[key]
	if !ok {
		return Result{}, ErrCacheMiss
	}
	return result, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
	return nil
}

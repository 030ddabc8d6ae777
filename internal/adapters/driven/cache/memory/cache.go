// Package memory provides an in-memory key-value cache.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.KeyValueCache = (*Cache)(nil)

// Cache is an in-memory implementation of driven.KeyValueCache.
type Cache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{values: make(map[string][]byte)}
}

// Get returns the value for key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(v), nil
}

// Set stores value under key.
func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = slices.Clone(value)
	return nil
}

// Package file provides a directory-backed key-value cache.
//
// Each key is stored as one file under the cache directory. Writes go to a
// temporary file first and are renamed into place, so readers never observe
// a partial value.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.KeyValueCache = (*Cache)(nil)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Cache stores values as files in a directory.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating it if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: cache key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(c.dir, key+".json"), nil
}

// Get returns the value for key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	path, err := c.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading cache %s: %v", domain.ErrStorageIO, key, err)
	}
	return data, nil
}

// Set stores value under key.
func (c *Cache) Set(_ context.Context, key string, value []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: writing cache %s: %v", domain.ErrStorageIO, key, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("%w: writing cache %s: %v", domain.ErrStorageIO, key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing cache %s: %v", domain.ErrStorageIO, key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: writing cache %s: %v", domain.ErrStorageIO, key, err)
	}
	return nil
}

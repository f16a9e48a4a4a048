package store

import (
	"fmt"

	"github.com/go-pkgz/lcw/v2"
)

// Cached wraps a store Interface with a loading cache and satisfies the Interface itself.
// Cache is populated on reads via loader function, invalidated on writes.
type Cached struct {
	store Interface
	cache lcw.LoadingCache[string]
}

// NewCached creates a new cached store wrapper.
// maxKeys sets the maximum number of entries in the cache.
func NewCached(store Interface, maxKeys int) (*Cached, error) {
	cache, err := lcw.NewLruCache(lcw.NewOpts[string]().MaxKeys(maxKeys))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cached{store: store, cache: cache}, nil
}

// cacheKey combines profile and key into a single cache key.
// uuids and preference names contain no newline, making the separator safe.
func cacheKey(profile, key string) string { return profile + "\n" + key }

// Get retrieves a preference value, using cache with load-through.
func (c *Cached) Get(profile, key string) (string, error) {
	value, err := c.cache.Get(cacheKey(profile, key), func() (string, error) {
		val, loadErr := c.store.Get(profile, key)
		if loadErr != nil {
			// don't wrap - let caller check ErrNotFound directly
			return "", loadErr //nolint:wrapcheck // intentionally pass through for error type checks
		}
		return val, nil
	})
	if err != nil {
		return "", err //nolint:wrapcheck // loader error passed through
	}
	return value, nil
}

// Set stores a preference and invalidates the cache entry.
func (c *Cached) Set(profile, key, value string) error {
	if err := c.store.Set(profile, key, value); err != nil {
		return fmt.Errorf("store set: %w", err)
	}
	ck := cacheKey(profile, key)
	c.cache.Invalidate(func(k string) bool { return k == ck })
	return nil
}

// Delete removes a preference and invalidates the cache entry.
func (c *Cached) Delete(profile, key string) error {
	// invalidate regardless of error - entry might have been cached
	ck := cacheKey(profile, key)
	c.cache.Invalidate(func(k string) bool { return k == ck })
	if err := c.store.Delete(profile, key); err != nil {
		// don't wrap - let caller check ErrNotFound directly
		return err //nolint:wrapcheck // intentionally pass through for error type checks
	}
	return nil
}

// List returns all preferences for the profile from the underlying store (not cached).
func (c *Cached) List(profile string) ([]PrefInfo, error) {
	prefs, err := c.store.List(profile)
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	return prefs, nil
}

// Close closes the cache and underlying store.
func (c *Cached) Close() error {
	_ = c.cache.Close()
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("store close: %w", err)
	}
	return nil
}

// Stats returns cache statistics.
func (c *Cached) Stats() lcw.CacheStat {
	return c.cache.Stat()
}

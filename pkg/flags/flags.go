// Package flags resolves boolean feature flags: process-config defaults
// overridden by per-installation rows, with an optional short-lived Redis
// cache in front of the override source.
package flags

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Canonical flag keys.
const (
	EnableHTTPNode = "ENABLE_HTTP_NODE"
	EnableCodeNode = "ENABLE_CODE_NODE"
)

const cacheTTL = 30 * time.Second

// Source serves per-installation override rows.
type Source interface {
	// FlagOverride returns the stored override; found is false when no row
	// exists for the key.
	FlagOverride(ctx context.Context, key string) (value, found bool, err error)
	SetFlagOverride(ctx context.Context, key string, value bool) error
}

// Store answers flag lookups. Resolution order: cache, override source,
// config default. Source or cache trouble degrades to the default rather
// than failing the caller.
type Store struct {
	logger   *slog.Logger
	defaults map[string]bool
	source   Source
	cache    *redis.Client
}

// NewStore builds a resolver. Both source and cache may be nil.
func NewStore(logger *slog.Logger, defaults map[string]bool, source Source, cache *redis.Client) *Store {
	if defaults == nil {
		defaults = map[string]bool{}
	}

	return &Store{
		logger:   logger.With("module", "flags"),
		defaults: defaults,
		source:   source,
		cache:    cache,
	}
}

// Enabled resolves one flag.
func (s *Store) Enabled(ctx context.Context, key string) bool {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey(key)).Result()
		if err == nil {
			return cached == "1"
		}

		if err != redis.Nil {
			s.logger.Warn("flag cache read failed", "key", key, "error", err)
		}
	}

	value := s.defaults[key]

	if s.source != nil {
		override, ok, err := s.source.FlagOverride(ctx, key)
		if err != nil {
			s.logger.Warn("flag override lookup failed, using default", "key", key, "error", err)
		} else if ok {
			value = override
		}
	}

	s.fillCache(ctx, key, value)

	return value
}

// Set writes an override row and refreshes the cache.
func (s *Store) Set(ctx context.Context, key string, value bool) error {
	if s.source == nil {
		return fmt.Errorf("no flag override source is configured")
	}

	if err := s.source.SetFlagOverride(ctx, key, value); err != nil {
		return fmt.Errorf("failed to store flag override %q: %w", key, err)
	}

	s.fillCache(ctx, key, value)

	return nil
}

func (s *Store) fillCache(ctx context.Context, key string, value bool) {
	if s.cache == nil {
		return
	}

	stored := "0"
	if value {
		stored = "1"
	}

	if err := s.cache.Set(ctx, cacheKey(key), stored, cacheTTL).Err(); err != nil {
		s.logger.Warn("flag cache write failed", "key", key, "error", err)
	}
}

func cacheKey(key string) string {
	return "flag:" + key
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Joe-rq/agent-flow-lite/pkg/flags"
)

// NewFlagStore builds the feature-flag resolver. redisURL is optional; when
// set, resolved values are cached there.
func NewFlagStore(logger *slog.Logger, defaults map[string]bool, source flags.Source, redisURL string) *flags.Store {
	var cache *redis.Client

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			panic(fmt.Errorf("failed to parse redis url: %w", err))
		}

		cache = redis.NewClient(opts)
	}

	return flags.NewStore(logger, defaults, source, cache)
}

package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/cache"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
)

// newLimiterStorage shares rate limit counters between instances through
// Redis. Returns nil (in-memory counters) when Redis is disabled.
func newLimiterStorage() fiber.Storage {
	if !cache.IsRedisEnabled() {
		return nil
	}

	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// database 1 keeps limiter keys apart from the cache and job queue
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})
}

// Package rediscache backs execctx.Cache with a Redis (or Redis-protocol
// compatible, e.g. Dragonfly) connection.
//
// Grounded on oriys-nova's internal/cache.RedisCache (redis/go-redis/v9
// client, env-driven address/password, key prefixing) and
// internal/store.RedisStore's Ping-on-construct check, combined into a
// long-lived client with Ping-on-construct and an explicit Close in place
// of oriys-nova's two separate redis-backed types.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Cache wraps a *redis.Client to satisfy execctx.Cache.
type Cache struct {
	client *redis.Client
	prefix string
	log    *logrus.Entry
}

// Config holds connection parameters, defaulting from environment
// variables in the same style oriys-nova's internal/config reads its
// backend addresses from.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ConfigFromEnv reads REDIS_ADDR/REDIS_PASSWORD, the env-var names a
// deployment not wired through cli's cobra flags would set.
func ConfigFromEnv(prefix string) Config {
	return Config{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		Prefix:   prefix,
	}
}

// New opens a connection and verifies it with a Ping before returning.
func New(cfg Config) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediscache: connect to %s: %w", cfg.Addr, err)
	}

	return &Cache{
		client: client,
		prefix: cfg.Prefix,
		log:    logrus.WithField("component", "rediscache"),
	}, nil
}

func (c *Cache) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get implements execctx.Cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	v, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache get failed")
		return nil, false
	}
	return v, true
}

// Set implements execctx.Cache. A ttl of zero means no expiration.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

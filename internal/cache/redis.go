// Package cache is the replication client's download cache: fetched
// replication/changeset files are keyed by their URL path so a restarted
// or pooled set of clients does not re-download state it already holds.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/config"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// Cache stores downloaded replication payloads by the URL path they were
// fetched from (spec §4.5).
type Cache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// New dials Redis using the teacher's connection-setup pattern.
func New(cfg config.RedisConfig, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.SystemError, "failed to connect to download cache", err)
	}

	logger.Info("download cache connected", zap.String("host", cfg.Host), zap.Int("port", cfg.Port))

	return &Cache{client: client, logger: logger, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	c.logger.Info("closing download cache connection")
	return c.client.Close()
}

func (c *Cache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func key(urlPath string) string {
	return "underpass:replication:" + urlPath
}

// Get returns the cached payload for a URL path, or ok=false on a cache
// miss.
func (c *Cache) Get(ctx context.Context, urlPath string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key(urlPath)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.LocalError, "download cache read failed", err)
	}
	return val, true, nil
}

// Put stores a downloaded payload under its URL path.
func (c *Cache) Put(ctx context.Context, urlPath string, payload []byte) error {
	if err := c.client.Set(ctx, key(urlPath), payload, c.ttl).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.LocalError, "download cache write failed", err)
	}
	return nil
}

// Evict removes a cached payload, forcing the next read to refetch. Used
// when a cached payload turns out to be corrupt (spec §4.5).
func (c *Cache) Evict(ctx context.Context, urlPath string) error {
	if err := c.client.Del(ctx, key(urlPath)).Err(); err != nil {
		return pkgerrors.Wrap(pkgerrors.LocalError, "download cache evict failed", err)
	}
	return nil
}

// Package core provides the storefront's shared infrastructure: configuration,
// error taxonomy, logging contracts, session storage and the HTTP server.
//
// This file implements the Redis-backed Store used when sessions must be
// shared between storefront replicas.
//
// Namespacing:
// All keys are prefixed with the configured namespace, so one Redis database
// can host several deployments:
//
//	minimall:session:<session-id>:authToken
//
// Connection Management:
//   - The URL may be a redis:// URL or a bare host:port address
//   - Connectivity is verified with Ping when the store is opened
//   - Commands are traced through the redisotel hook
//
// Usage:
//
//	store, err := NewRedisStore(ctx, RedisStoreOptions{
//	    RedisURL:  "redis://localhost:6379/2",
//	    Namespace: "minimall:session",
//	})
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
)

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisStoreOptions configures the Redis store
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string // Key namespace for organization
	Logger    Logger // Optional logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		// Not a redis:// URL; treat it as host:port.
		redisOpt = &redis.Options{
			Addr:         opts.RedisURL,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}

	client := redis.NewClient(redisOpt)
	client.AddHook(redisotel.NewTracingHook())

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":      err.Error(),
			"error_type": fmt.Sprintf("%T", err),
			"addr":       redisOpt.Addr,
			"db":         redisOpt.DB,
		})
		_ = client.Close()
		return nil, &FrameworkError{
			Op:      "NewRedisStore",
			Kind:    "store",
			Message: fmt.Sprintf("redis at %s unreachable", redisOpt.Addr),
			Err:     fmt.Errorf("%v: %w", err, ErrConnectionFailed),
		}
	}

	logger.Info("Redis store connected", map[string]interface{}{
		"addr":      redisOpt.Addr,
		"db":        redisOpt.DB,
		"namespace": opts.Namespace,
	})

	return &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    logger,
	}, nil
}

// formatKey formats a key with the namespace
func (r *RedisStore) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

// Get retrieves a value; missing keys yield "" and no error.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", &FrameworkError{Op: "RedisStore.Get", Kind: "store", ID: key, Err: err}
	}
	return val, nil
}

// Set stores a value with optional TTL
func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.formatKey(key), value, ttl).Err(); err != nil {
		return &FrameworkError{Op: "RedisStore.Set", Kind: "store", ID: key, Err: err}
	}
	return nil
}

// Delete deletes keys
func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	formatted := make([]string, len(keys))
	for i, key := range keys {
		formatted[i] = r.formatKey(key)
	}
	if err := r.client.Del(ctx, formatted...).Err(); err != nil {
		return &FrameworkError{Op: "RedisStore.Delete", Kind: "store", Err: err}
	}
	return nil
}

// Exists reports whether a key is present
func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.formatKey(key)).Result()
	if err != nil {
		return false, &FrameworkError{Op: "RedisStore.Exists", Kind: "store", ID: key, Err: err}
	}
	return n > 0, nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	if err != nil {
		r.logger.ErrorWithContext(ctx, "Redis health check failed", map[string]interface{}{
			"error":     err.Error(),
			"namespace": r.namespace,
		})
	}
	return err
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	r.logger.Info("Closing Redis store", map[string]interface{}{
		"namespace": r.namespace,
	})
	return r.client.Close()
}

// OpenStore builds the Store selected by the session configuration.
func OpenStore(ctx context.Context, cfg SessionConfig, logger Logger) (Store, error) {
	switch cfg.Provider {
	case SessionProviderRedis:
		return NewRedisStore(ctx, RedisStoreOptions{
			RedisURL:  cfg.RedisURL,
			Namespace: cfg.Namespace,
			Logger:    logger,
		})
	case SessionProviderMemory, "":
		store := NewMemoryStore(DefaultCleanupInterval)
		store.SetLogger(logger)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session provider %q: %w", cfg.Provider, ErrInvalidConfiguration)
	}
}

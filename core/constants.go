package core

import "time"

// Environment variables read outside the STOREFRONT_ prefix scheme.
const (
	EnvBackendURL = "STOREFRONT_BACKEND_URL" // Base URL of the commerce API
	EnvRedisURL   = "REDIS_URL"              // Redis connection URL for sessions
	EnvPort       = "PORT"                   // HTTP server port
	EnvDevMode    = "STOREFRONT_DEV_MODE"    // Development mode flag
)

// DefaultBackendURL is the hosted MiniMall API.
const DefaultBackendURL = "https://minimallbackend.onrender.com"

// Session providers
const (
	SessionProviderMemory = "memory"
	SessionProviderRedis  = "redis"
)

// Store defaults
const (
	// DefaultCleanupInterval is how often the in-memory store sweeps expired entries.
	DefaultCleanupInterval = 10 * time.Minute

	// redisPingTimeout bounds the connectivity check made when a Redis store is opened.
	redisPingTimeout = 5 * time.Second
)

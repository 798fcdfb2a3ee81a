// Package config builds process configuration from the environment so main
// stays lean.
package config

import "os"

// Config captures everything the server process needs at startup.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// DatabaseURL enables the PostgreSQL store when set; the in-memory
	// store backs the service otherwise (dev mode).
	DatabaseURL string
	// RedisURL enables the Redis lookup cache when set; without it the
	// engine runs cache-less and resolves every BIN from the store.
	RedisURL string
	// OriginSecret is the shared secret the API gateway injects in the
	// x-origin-secret header.
	OriginSecret string
	// OriginSecretEnabled toggles enforcement of the origin filter.
	OriginSecretEnabled bool
}

// FromEnv reads configuration from environment variables.
func FromEnv() Config {
	addr := os.Getenv("DIRECTORY_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Addr:                addr,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		OriginSecret:        os.Getenv("ORIGIN_SECRET"),
		OriginSecretEnabled: os.Getenv("ORIGIN_SECRET_ENABLED") == "true",
	}
}

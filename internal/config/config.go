// Package config loads the few options spec §6 recognizes
// (frontendOrigin, authSecret), plus the operational knobs a deployable
// service needs that the spec leaves to the implementation: listen
// address, checkpoint database path, and metadata store location.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds every configuration value the service reads at startup.
type Config struct {
	ListenAddr     string
	FrontendOrigin string
	AuthSecret     string

	CheckpointDBPath string

	MetadataRedisAddr   string
	MetadataRedisPrefix string

	LogLevel string
}

// Load reads .env (if present) then environment variables, applying the
// given fallbacks for anything unset. Flags, parsed by the caller, take
// precedence over both — see cmd/unfairwheel/main.go.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ListenAddr:          getEnv("LISTEN_ADDR", ":8081"),
		FrontendOrigin:      getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		AuthSecret:          getEnv("AUTH_SECRET", ""),
		CheckpointDBPath:    getEnv("CHECKPOINT_DB_PATH", "unfairwheel.db"),
		MetadataRedisAddr:   getEnv("METADATA_REDIS_ADDR", "localhost:6379"),
		MetadataRedisPrefix: getEnv("METADATA_REDIS_PREFIX", "unfairwheel:"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

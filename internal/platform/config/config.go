package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr string

	// PostgresURL points at the remote audit sink and the persisted bucket
	// store. Empty means "not configured": audit flushes route straight to the
	// local fallback and persistent rate-limit profiles degrade to in-memory.
	PostgresURL string

	// RedisURL points at the local fallback sink. Empty disables it (tests use
	// the in-memory keyvalue store instead).
	RedisURL string

	Redis RedisConfig

	Audit AuditConfig
}

// RedisConfig tunes the go-redis client pool.
type RedisConfig struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig tunes the audit buffering and flush cycle.
type AuditConfig struct {
	FlushInterval  time.Duration
	BufferFlushAt  int
	FallbackCap    int
	RemoteTimeout  time.Duration
	ExportQueryCap int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:        envString("VERITRAIL_ADDR", ":8080"),
		PostgresURL: os.Getenv("VERITRAIL_POSTGRES_URL"),
		RedisURL:    os.Getenv("VERITRAIL_REDIS_URL"),
		Redis: RedisConfig{
			PoolSize:     envInt("VERITRAIL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VERITRAIL_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("VERITRAIL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VERITRAIL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VERITRAIL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: AuditConfig{
			FlushInterval:  envDuration("VERITRAIL_AUDIT_FLUSH_INTERVAL", 30*time.Second),
			BufferFlushAt:  envInt("VERITRAIL_AUDIT_BUFFER_FLUSH_AT", 50),
			FallbackCap:    envInt("VERITRAIL_AUDIT_FALLBACK_CAP", 500),
			RemoteTimeout:  envDuration("VERITRAIL_AUDIT_REMOTE_TIMEOUT", 10*time.Second),
			ExportQueryCap: envInt("VERITRAIL_AUDIT_EXPORT_CAP", 10000),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"time"
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// CacheConfig defines the layout cache of verified contracts.
type CacheConfig struct {
	Backend string `mapstructure:"backend"`

	RedisAddress  string `mapstructure:"redis-address"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`

	TTL       time.Duration `mapstructure:"ttl"`
	MaxSizeMB int           `mapstructure:"max-size-mb"`
}

// DefaultCacheConfig returns an in-memory cache keeping layouts for a day.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Backend:      CacheBackendMemory,
		RedisAddress: "localhost:6379",
		TTL:          24 * time.Hour,
	}
}

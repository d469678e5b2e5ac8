package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/xlab/suplog"
	"sigs.k8s.io/yaml"

	"github.com/InjectiveLabs/slotlens/cache"
	"github.com/InjectiveLabs/slotlens/cmd/slotlens/config"
	"github.com/InjectiveLabs/slotlens/layout/types"
)

// readEnv is a special utility that reads `.env` file into actual environment variables of the current app
func readEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warningln("failed to load .env file")
	}
}

// logLevel converts vague log level name into typed level.
func logLevel(s string) log.Level {
	switch s {
	case "1", "error":
		return log.ErrorLevel
	case "2", "warn":
		return log.WarnLevel
	case "3", "info":
		return log.InfoLevel
	case "4", "debug":
		return log.DebugLevel
	default:
		return log.FatalLevel
	}
}

// toBool is used to parse vague bool definition into typed bool.
func toBool(s string, defaults bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "t", "yes":
		return true
	case "false", "0", "f", "no":
		return false
	default:
		return defaults
	}
}

// orDefault returns s unless it is empty.
func orDefault(s, defaults string) string {
	if s == "" {
		return defaults
	}
	return s
}

// orShutdown fatals the app if there was an error.
func orShutdown(err error) {
	if err != nil {
		log.WithError(err).Fatalln("unable to start slotlens")
	}
}

// loadLayout reads a storage layout from a JSON or YAML file, "-" reads stdin.
func loadLayout(path string) (*types.StorageLayout, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML in %s", path)
		}
	}

	var layout types.StorageLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, errors.Wrapf(err, "failed to parse storage layout in %s", path)
	}

	if err := layout.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid storage layout in %s", path)
	}

	return &layout, nil
}

// newStore builds the layout cache selected by cfg, nil for the "none" backend.
func newStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case config.CacheBackendNone, "":
		return nil, nil
	case config.CacheBackendMemory:
		return cache.NewMemoryStore(ctx, &cache.MemoryConfig{
			LifeWindow:       cfg.TTL,
			HardMaxCacheSize: cfg.MaxSizeMB,
		})
	case config.CacheBackendRedis:
		return cache.NewRedisStore(ctx, &cache.RedisConfig{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

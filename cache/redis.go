package cache

import (
	"context"
	"time"

	"cosmossdk.io/errors"
	"github.com/InjectiveLabs/coretracer"
	"github.com/redis/go-redis/v9"
	pkgerrors "github.com/pkg/errors"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/layout/types"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int

	// TTL of cached layouts, zero keeps them forever.
	TTL time.Duration

	DialTimeout time.Duration
}

// RedisStore shares cached layouts between instances.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration

	logger  log.Logger
	svcTags coretracer.Tags
}

// NewRedisStore connects to Redis and checks the connection.
func NewRedisStore(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, pkgerrors.New("redis address cannot be empty")
	}

	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrapf(err, "failed to connect to Redis at %s", cfg.Addr)
	}

	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,

		logger:  log.WithFields(log.Fields{"svc": "cache", "backend": BackendRedis}),
		svcTags: coretracer.NewTag("cache", BackendRedis),
	}
}

func (s *RedisStore) Get(ctx context.Context, chainID uint64, address string) (entry *Entry, err error) {
	defer coretracer.Trace(&ctx, s.svcTags)()
	defer func() { observe(BackendRedis, err) }()

	key := Key(chainID, address)

	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, errors.Wrap(types.ErrLayoutNotCached, key)
	} else if err != nil {
		coretracer.TraceError(ctx, err)
		return nil, pkgerrors.Wrapf(err, "failed to get %s", key)
	}

	return decode(key, data)
}

func (s *RedisStore) Set(ctx context.Context, chainID uint64, address string, entry *Entry) error {
	defer coretracer.Trace(&ctx, s.svcTags)()

	data, err := encode(entry)
	if err != nil {
		return err
	}

	key := Key(chainID, address)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		coretracer.TraceError(ctx, err)
		return pkgerrors.Wrapf(err, "failed to set %s", key)
	}

	s.logger.WithField("key", key).Debugln("cached storage layout")
	return nil
}

func (s *RedisStore) Backend() string {
	return BackendRedis
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

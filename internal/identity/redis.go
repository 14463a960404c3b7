package identity

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// DefaultRegistryKey is the Redis set holding verified addresses.
const DefaultRegistryKey = "arborvote:verified"

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	Key        string
	TLSEnabled bool
}

// RedisRegistry checks personhood against a Redis set maintained by an
// external verification service. Addresses are stored as checksummed hex.
type RedisRegistry struct {
	rdb *redis.Client
	key string
}

// NewRedisRegistry connects and pings Redis before returning.
func NewRedisRegistry(ctx context.Context, cfg RedisConfig) (*RedisRegistry, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("identity: redis ping: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRegistryKey
	}
	return &RedisRegistry{rdb: rdb, key: key}, nil
}

func (r *RedisRegistry) IsVerified(ctx context.Context, participant common.Address) (bool, error) {
	ok, err := r.rdb.SIsMember(ctx, r.key, participant.Hex()).Result()
	if err != nil {
		return false, fmt.Errorf("identity: redis lookup %s: %w", participant.Hex(), err)
	}
	return ok, nil
}

// Register adds participant to the verified set.
func (r *RedisRegistry) Register(ctx context.Context, participant common.Address) error {
	if err := r.rdb.SAdd(ctx, r.key, participant.Hex()).Err(); err != nil {
		return fmt.Errorf("identity: redis register %s: %w", participant.Hex(), err)
	}
	return nil
}

func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisRegistry) Close() error {
	return r.rdb.Close()
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goRights/rights"
	"github.com/MrEthical07/goRights/role"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces rights keys when no prefix is given.
const DefaultRedisPrefix = "gr"

// Redis stores each tier as a raw byte string under <prefix>:rights:<tier>.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a store over client. An empty prefix selects
// [DefaultRedisPrefix].
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Key returns the Redis key holding tier.
func (r *Redis) Key(tier role.Tier) string {
	return r.prefix + ":rights:" + tier.String()
}

// DefaultRights implements [Store].
func (r *Redis) DefaultRights(ctx context.Context, tier role.Tier) (rights.Buffer, error) {
	if err := checkTier(tier); err != nil {
		return nil, err
	}
	raw, err := r.client.Get(ctx, r.Key(tier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get %s: %w", tier, err)
	}
	return rights.Buffer(raw), nil
}

// SetDefaultRights implements [Store].
func (r *Redis) SetDefaultRights(ctx context.Context, tier role.Tier, buf rights.Buffer) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.Key(tier), []byte(buf), 0).Err(); err != nil {
		return fmt.Errorf("store: redis set %s: %w", tier, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

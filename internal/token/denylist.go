package token

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Denylist records revoked tokens until their natural expiry. Wiring one is
// opt-in; the validator treats a nil Denylist as "nothing revoked".
type Denylist interface {
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// RedisDenylist stores revoked token hashes in Redis with a TTL matching the
// remaining token lifetime, so entries expire on their own.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist creates a denylist backed by the given Redis instance.
func NewRedisDenylist(addr, password string, db int) *RedisDenylist {
	return &RedisDenylist{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		prefix: "session:revoked:",
	}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to record.
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenHash, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenHash).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the underlying Redis connection.
func (d *RedisDenylist) Close() error { return d.client.Close() }

// Package redis keeps passivated bean state in Redis, so it survives a process
// restart and any replica sharing the server can activate it.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/beancache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

type Redis struct {
	rdb   goredis.UniversalClient
	ttl   time.Duration
	owned bool
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client goredis.UniversalClient
	// TTL used when Set gets ttl <= 0; 0 keeps records until removed.
	TTL time.Duration
	// CloseClient hands the client to the provider; Close then closes it.
	CloseClient bool
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, ttl: cfg.TTL, owned: cfg.CloseClient}, nil
}

// Get maps redis.Nil to a miss; any other failure is returned so the bean
// stays passivated and the activation can be retried.
func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis provider: get %s: %w", key, err)
	}
	return b, true, nil
}

// Set ignores cost; Redis never refuses a write, so ok is true on success.
func (p *Redis) Set(ctx context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = p.ttl
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, fmt.Errorf("redis provider: set %s: %w", key, err)
	}
	return true, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	if err := p.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis provider: del %s: %w", key, err)
	}
	return nil
}

// Close closes an owned client. Repeated calls are no-ops.
func (p *Redis) Close(context.Context) error {
	if !p.owned {
		return nil
	}
	if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
)

// RedisStore keeps each trust list in a Redis list under prefix+name.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to redis at %s: %v", ErrUnavailable, opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "phishguard:trust:"
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}, nil
}

func (s *RedisStore) key(k core.ListKey) string {
	return s.prefix + string(k)
}

// Get returns the requested lists
func (s *RedisStore) Get(ctx context.Context, keys ...core.ListKey) (core.TrustLists, error) {
	for _, k := range keys {
		if !validKey(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
	}

	cmds := make(map[core.ListKey]*redis.StringSliceCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			cmds[k] = p.LRange(ctx, s.key(k), 0, -1)
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out := make(core.TrustLists, len(keys))
	for k, cmd := range cmds {
		entries, err := cmd.Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrUnavailable, k, err)
		}
		if entries == nil {
			entries = []string{}
		}
		out[k] = entries
	}
	return out, nil
}

// Set replaces each list present in lists atomically
func (s *RedisStore) Set(ctx context.Context, lists core.TrustLists) error {
	for k := range lists {
		if !validKey(k) {
			return fmt.Errorf("%w: %s", ErrUnknownList, k)
		}
	}

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, entries := range lists {
			p.Del(ctx, s.key(k))
			if cleaned := clean(entries); len(cleaned) > 0 {
				values := make([]interface{}, len(cleaned))
				for i, e := range cleaned {
					values[i] = e
				}
				p.RPush(ctx, s.key(k), values...)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.logger.Debug("Trust lists updated", zap.String("backend", "redis"), zap.Int("lists", len(lists)))
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

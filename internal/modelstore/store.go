// Package modelstore persists encoded churn models. Every backend writes the
// new model aside, validates it and only then swaps it in, so a reader sees
// either the previous model or the complete new one.
package modelstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Validator decodes and checks an encoded model before it is published.
type Validator func(data []byte) error

// Store is implemented by FileStore and RedisStore.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string `mapstructure:"backend"` // "file" or "redis"
	Dir       string `mapstructure:"dir"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func check(v Validator, key string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("model %s is empty", key)
	}
	if v == nil {
		return nil
	}
	if err := v(data); err != nil {
		return fmt.Errorf("model %s failed validation: %w", key, err)
	}
	return nil
}

// New opens the backend cfg names. rdb is only used by the redis backend.
func New(cfg Config, rdb *redis.Client, v Validator) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		fs, err := NewFileStore(cfg.Dir, v)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis model store needs a redis client")
		}
		return NewRedisStore(rdb, cfg.KeyPrefix, v), nil
	}
	return nil, fmt.Errorf("unknown model store backend %q", cfg.Backend)
}

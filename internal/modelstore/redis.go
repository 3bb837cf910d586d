package modelstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

// RedisStore keeps models under {prefix}{key}. A save lands on a unique
// staging key first and is published with RENAME, which replaces atomically.
type RedisStore struct {
	rdb      *redis.Client
	prefix   string
	validate Validator
}

func NewRedisStore(rdb *redis.Client, prefix string, v Validator) *RedisStore {
	if prefix == "" {
		prefix = "crm:churn:model:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, validate: v}
}

func (s *RedisStore) key(key string) string { return s.prefix + key }

func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := check(s.validate, key, data); err != nil {
		return err
	}
	staging := s.key(key) + ":staging:" + util.NewVersion()
	if err := s.rdb.Set(ctx, staging, data, 0).Err(); err != nil {
		return fmt.Errorf("stage model %s: %w", key, err)
	}
	written, err := s.rdb.Get(ctx, staging).Bytes()
	if err == nil {
		err = check(s.validate, key, written)
	}
	if err != nil {
		_ = s.rdb.Del(ctx, staging).Err()
		return err
	}
	if err := s.rdb.Rename(ctx, staging, s.key(key)).Err(); err != nil {
		_ = s.rdb.Del(ctx, staging).Err()
		return fmt.Errorf("publish model %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ModelNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", key, err)
	}
	return data, nil
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentmemory/internal/cache"
)

// RedisStore 以 Redis Hash 存储集合：key = <prefix>:<collection>，field = 条目键
type RedisStore struct {
	manager *cache.Manager
	prefix  string
	logger  *zap.Logger
}

// NewRedisStore 基于已连接的管理器创建存储。prefix 为空时使用 "agentmemory"。
func NewRedisStore(manager *cache.Manager, prefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "agentmemory"
	}
	return &RedisStore{
		manager: manager,
		prefix:  prefix,
		logger:  logger.With(zap.String("component", "collection_store_redis")),
	}
}

func (s *RedisStore) hashKey(collection string) string {
	return s.prefix + ":" + collection
}

func (s *RedisStore) client() (*redis.Client, error) {
	c, err := s.manager.Client()
	if err != nil {
		return nil, ErrClosed
	}
	return c, nil
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, false, err
	}
	c, err := s.client()
	if err != nil {
		return nil, false, err
	}

	val, err := c.HGet(ctx, s.hashKey(collection), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Error("redis hget failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get %s/%s: %w", collection, key, err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}

	if err := c.HSet(ctx, s.hashKey(collection), key, value).Err(); err != nil {
		s.logger.Error("redis hset failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.client()
	if err != nil {
		return err
	}

	if err := c.HDel(ctx, s.hashKey(collection), key).Err(); err != nil {
		return fmt.Errorf("redis delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) GetAll(ctx context.Context, collection string) ([]Entry, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *RedisStore) GetWhere(ctx context.Context, collection string, pred Predicate) ([]Entry, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	c, err := s.client()
	if err != nil {
		return nil, err
	}

	all, err := c.HGetAll(ctx, s.hashKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", collection, err)
	}

	entries := make([]Entry, 0, len(all))
	for k, v := range all {
		entries = append(entries, Entry{Key: k, Value: []byte(v)})
	}
	entries = filterEntries(entries, pred)
	sortEntries(entries)
	return entries, nil
}

func (s *RedisStore) DeleteWhere(ctx context.Context, collection string, pred Predicate) (int, error) {
	matched, err := s.GetWhere(ctx, collection, pred)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	c, err := s.client()
	if err != nil {
		return 0, err
	}
	fields := make([]string, len(matched))
	for i, e := range matched {
		fields[i] = e.Key
	}
	n, err := c.HDel(ctx, s.hashKey(collection), fields...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete where %s: %w", collection, err)
	}
	return int(n), nil
}

// Close 关闭底层 Redis 连接
func (s *RedisStore) Close() error {
	return s.manager.Close()
}

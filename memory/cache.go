package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/BaSui01/agentmemory/types"
)

// cacheRecord 保留原始 value 以便按调用方类型解码
type cacheRecord struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
}

// CacheOption 缓存写入选项
type CacheOption func(*cacheSettings)

type cacheSettings struct {
	ttl       time.Duration
	expiresAt *time.Time
}

// WithTTL 条目在 ttl 之后过期
func WithTTL(ttl time.Duration) CacheOption {
	return func(s *cacheSettings) { s.ttl = ttl }
}

// WithExpiresAt 条目在 t 之后过期，优先于 WithTTL
func WithExpiresAt(t time.Time) CacheOption {
	return func(s *cacheSettings) { s.expiresAt = &t }
}

// SetCache 写入缓存。未传入过期选项时条目永不过期。
func (a *Adapter) SetCache(ctx context.Context, key string, value any, opts ...CacheOption) (err error) {
	ctx, done := a.begin(ctx, "set_cache")
	defer done(&err)

	if key == "" {
		return types.NewInvalidRequestError("cache key is required")
	}
	var settings cacheSettings
	for _, o := range opts {
		o(&settings)
	}

	entry := types.CacheEntry{Value: value}
	switch {
	case settings.expiresAt != nil:
		ms := settings.expiresAt.UnixMilli()
		entry.ExpiresAt = &ms
	case settings.ttl > 0:
		ms := a.now().Add(settings.ttl).UnixMilli()
		entry.ExpiresAt = &ms
	}

	if err := a.putRecord(ctx, types.CollectionCache, key, &entry); err != nil {
		return fmt.Errorf("memory: set cache: %w", err)
	}
	return nil
}

// GetCache 读取缓存值（JSON 解码为 any）。条目已过期时删除并返回不存在。
func (a *Adapter) GetCache(ctx context.Context, key string) (value any, ok bool, err error) {
	var raw json.RawMessage
	ok, err = a.GetCacheInto(ctx, key, &raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("memory: decode cache %s: %w", key, err)
	}
	return value, true, nil
}

// GetCacheInto 将缓存值解码进 dst，语义同 GetCache
func (a *Adapter) GetCacheInto(ctx context.Context, key string, dst any) (ok bool, err error) {
	ctx, done := a.begin(ctx, "get_cache")
	defer done(&err)

	var rec cacheRecord
	found, err := a.getRecord(ctx, types.CollectionCache, key, &rec)
	if err != nil {
		return false, fmt.Errorf("memory: get cache: %w", err)
	}
	if !found {
		a.metrics.RecordCacheMiss(false)
		return false, nil
	}

	entry := types.CacheEntry{ExpiresAt: rec.ExpiresAt}
	if entry.Expired(a.now()) {
		if err := a.store.Delete(ctx, types.CollectionCache, key); err != nil {
			return false, fmt.Errorf("memory: evict cache: %w", err)
		}
		a.metrics.RecordCacheMiss(true)
		return false, nil
	}

	if err := json.Unmarshal(rec.Value, dst); err != nil {
		return false, fmt.Errorf("memory: decode cache %s: %w", key, err)
	}
	a.metrics.RecordCacheHit()
	return true, nil
}

// DeleteCache 删除缓存条目，不存在时不报错
func (a *Adapter) DeleteCache(ctx context.Context, key string) (err error) {
	ctx, done := a.begin(ctx, "delete_cache")
	defer done(&err)

	if err := a.store.Delete(ctx, types.CollectionCache, key); err != nil {
		return fmt.Errorf("memory: delete cache: %w", err)
	}
	return nil
}

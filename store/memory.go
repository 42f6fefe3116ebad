package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type memoryCollection struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// MemoryStore 进程内集合存储，用于本地开发、测试和单进程部署
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	closed      bool
	logger      *zap.Logger
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
		logger:      logger.With(zap.String("component", "collection_store_memory")),
	}
}

// collection 返回集合，create 为 false 且集合不存在时返回 nil
func (s *MemoryStore) collection(name string, create bool) (*memoryCollection, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	c := s.collections[name]
	s.mu.RUnlock()
	if c != nil || !create {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if c = s.collections[name]; c == nil {
		c = &memoryCollection{entries: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := validateKey(collection, key); err != nil {
		return nil, false, err
	}
	c, err := s.collection(collection, false)
	if err != nil || c == nil {
		return nil, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.collection(collection, true)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cloneBytes(value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.collection(collection, false)
	if err != nil || c == nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]Entry, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *MemoryStore) GetWhere(ctx context.Context, collection string, pred Predicate) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	c, err := s.collection(collection, false)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return []Entry{}, nil
	}

	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for k, v := range c.entries {
		entries = append(entries, Entry{Key: k, Value: cloneBytes(v)})
	}
	c.mu.RUnlock()

	entries = filterEntries(entries, pred)
	sortEntries(entries)
	return entries, nil
}

func (s *MemoryStore) DeleteWhere(ctx context.Context, collection string, pred Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateCollection(collection); err != nil {
		return 0, err
	}
	c, err := s.collection(collection, false)
	if err != nil || c == nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for k, v := range c.entries {
		if pred == nil || pred(Entry{Key: k, Value: v}) {
			delete(c.entries, k)
			deleted++
		}
	}
	return deleted, nil
}

// Close 清空并关闭存储
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("memory store closed", zap.Int("collections", len(s.collections)))
	s.collections = nil
	return nil
}

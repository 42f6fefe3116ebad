// =============================================================================
// 🗄️ MockStore - 集合存储模拟实现
// =============================================================================
// 包装内存 CollectionStore，支持按方法注入错误并记录调用次数
//
// 使用方法:
//
//	s := mocks.NewMockStore().WithDeleteWhereError(errors.New("boom"))
//	adapter, _ := memory.NewAdapter(s, idx, memory.DefaultOptions())
// =============================================================================
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentmemory/store"
)

// MockStore 可注入错误的 CollectionStore
type MockStore struct {
	inner store.CollectionStore

	mu sync.RWMutex

	// 错误注入
	getErr         error
	setErr         error
	deleteErr      error
	getWhereErr    error
	deleteWhereErr error

	// 限定注入的集合，空表示全部
	failCollection string

	// 调用记录
	calls map[string]int
}

// NewMockStore 创建基于内存存储的 MockStore
func NewMockStore() *MockStore {
	return &MockStore{
		inner: store.NewMemoryStore(nil),
		calls: make(map[string]int),
	}
}

// WithGetError 设置 Get 的错误
func (m *MockStore) WithGetError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
	return m
}

// WithSetError 设置 Set 的错误
func (m *MockStore) WithSetError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
	return m
}

// WithDeleteError 设置 Delete 的错误
func (m *MockStore) WithDeleteError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
	return m
}

// WithGetWhereError 设置 GetAll / GetWhere 的错误
func (m *MockStore) WithGetWhereError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getWhereErr = err
	return m
}

// WithDeleteWhereError 设置 DeleteWhere 的错误
func (m *MockStore) WithDeleteWhereError(err error) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteWhereErr = err
	return m
}

// OnlyCollection 只对指定集合注入错误
func (m *MockStore) OnlyCollection(collection string) *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCollection = collection
	return m
}

// Reset 清除所有注入的错误
func (m *MockStore) Reset() *MockStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr, m.setErr, m.deleteErr, m.getWhereErr, m.deleteWhereErr = nil, nil, nil, nil, nil
	m.failCollection = ""
	return m
}

// Calls 返回某方法的调用次数
func (m *MockStore) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// Inner 返回被包装的存储，用于绕过错误注入直接检查数据
func (m *MockStore) Inner() store.CollectionStore {
	return m.inner
}

// record 记录调用并返回该集合上应注入的错误
func (m *MockStore) record(method, collection string, err *error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if m.failCollection != "" && m.failCollection != collection {
		return nil
	}
	return *err
}

func (m *MockStore) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := m.record("Get", collection, &m.getErr); err != nil {
		return nil, false, err
	}
	return m.inner.Get(ctx, collection, key)
}

func (m *MockStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := m.record("Set", collection, &m.setErr); err != nil {
		return err
	}
	return m.inner.Set(ctx, collection, key, value)
}

func (m *MockStore) Delete(ctx context.Context, collection, key string) error {
	if err := m.record("Delete", collection, &m.deleteErr); err != nil {
		return err
	}
	return m.inner.Delete(ctx, collection, key)
}

func (m *MockStore) GetAll(ctx context.Context, collection string) ([]store.Entry, error) {
	if err := m.record("GetAll", collection, &m.getWhereErr); err != nil {
		return nil, err
	}
	return m.inner.GetAll(ctx, collection)
}

func (m *MockStore) GetWhere(ctx context.Context, collection string, pred store.Predicate) ([]store.Entry, error) {
	if err := m.record("GetWhere", collection, &m.getWhereErr); err != nil {
		return nil, err
	}
	return m.inner.GetWhere(ctx, collection, pred)
}

func (m *MockStore) DeleteWhere(ctx context.Context, collection string, pred store.Predicate) (int, error) {
	if err := m.record("DeleteWhere", collection, &m.deleteWhereErr); err != nil {
		return 0, err
	}
	return m.inner.DeleteWhere(ctx, collection, pred)
}

func (m *MockStore) Close() error {
	return m.inner.Close()
}

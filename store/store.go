package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrClosed 存储已关闭
var ErrClosed = errors.New("store is closed")

// Entry 集合中的一个条目
type Entry struct {
	Key   string
	Value []byte
}

// Predicate 条目谓词
type Predicate func(Entry) bool

// CollectionStore 命名集合键值存储
type CollectionStore interface {
	// Get 读取单个键，不存在时 ok 为 false
	Get(ctx context.Context, collection, key string) (value []byte, ok bool, err error)

	// Set 写入（覆盖）单个键
	Set(ctx context.Context, collection, key string, value []byte) error

	// Delete 删除单个键，不存在时不报错
	Delete(ctx context.Context, collection, key string) error

	// GetAll 读取集合全部条目
	GetAll(ctx context.Context, collection string) ([]Entry, error)

	// GetWhere 读取满足谓词的条目
	GetWhere(ctx context.Context, collection string, pred Predicate) ([]Entry, error)

	// DeleteWhere 删除满足谓词的条目，返回删除数量
	DeleteWhere(ctx context.Context, collection string, pred Predicate) (int, error)

	// Close 释放资源
	Close() error
}

func validateCollection(collection string) error {
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	return nil
}

func validateKey(collection, key string) error {
	if err := validateCollection(collection); err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}

// filterEntries 按谓词筛选，pred 为 nil 时全部保留
func filterEntries(entries []Entry, pred Predicate) []Entry {
	if pred == nil {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

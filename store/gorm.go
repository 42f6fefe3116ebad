package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/agentmemory/internal/database"
)

// collectionEntry 所有集合共用一张表，主键为 (collection, key)
type collectionEntry struct {
	Collection string    `gorm:"primaryKey;size:128"`
	Key        string    `gorm:"column:entry_key;primaryKey;size:255"`
	Value      []byte    `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (collectionEntry) TableName() string { return "collection_entries" }

// deleteBatchSize 单条 DELETE 绑定的键数上限，避开各驱动的占位符限制
const deleteBatchSize = 500

// GormStore 基于 GORM 的集合存储，支持 postgres / mysql / sqlite
type GormStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
	closed atomic.Bool

	deleteBatch int
}

// NewGormStore 创建存储。migrate 为 true 时自动建表。
func NewGormStore(pool *database.PoolManager, migrate bool, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GormStore{
		pool:        pool,
		logger:      logger.With(zap.String("component", "collection_store_gorm")),
		deleteBatch: deleteBatchSize,
	}
	if migrate {
		if err := pool.DB().AutoMigrate(&collectionEntry{}); err != nil {
			return nil, fmt.Errorf("migrate collection_entries: %w", err)
		}
	}
	return s, nil
}

func (s *GormStore) db(ctx context.Context) (*gorm.DB, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.pool.DB().WithContext(ctx), nil
}

func (s *GormStore) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, false, err
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, false, err
	}
	var row collectionEntry
	err = db.
		Where("collection = ? AND entry_key = ?", collection, key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gorm get %s/%s: %w", collection, key, err)
	}
	return row.Value, true, nil
}

func (s *GormStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	row := collectionEntry{Collection: collection, Key: key, Value: value}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		s.logger.Error("gorm upsert failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("gorm set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	db, err := s.db(ctx)
	if err != nil {
		return err
	}
	err = db.
		Where("collection = ? AND entry_key = ?", collection, key).
		Delete(&collectionEntry{}).Error
	if err != nil {
		return fmt.Errorf("gorm delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *GormStore) GetAll(ctx context.Context, collection string) ([]Entry, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *GormStore) GetWhere(ctx context.Context, collection string, pred Predicate) ([]Entry, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	db, err := s.db(ctx)
	if err != nil {
		return nil, err
	}
	var rows []collectionEntry
	err = db.
		Where("collection = ?", collection).
		Order("entry_key").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm scan %s: %w", collection, err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{Key: r.Key, Value: r.Value})
	}
	entries = filterEntries(entries, pred)
	// 数据库排序规则可能与字节序不同
	sortEntries(entries)
	return entries, nil
}

// DeleteWhere 先筛选键，再在同一事务内分批按键删除
func (s *GormStore) DeleteWhere(ctx context.Context, collection string, pred Predicate) (int, error) {
	matched, err := s.GetWhere(ctx, collection, pred)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	keys := make([]string, len(matched))
	for i, e := range matched {
		keys[i] = e.Key
	}

	var deleted int64
	err = s.pool.WithTransactionRetry(ctx, 3, func(tx *gorm.DB) error {
		deleted = 0
		for start := 0; start < len(keys); start += s.deleteBatch {
			end := min(start+s.deleteBatch, len(keys))
			res := tx.Where("collection = ? AND entry_key IN ?", collection, keys[start:end]).Delete(&collectionEntry{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("gorm delete where %s: %w", collection, err)
	}
	return int(deleted), nil
}

// Close 关闭连接池
func (s *GormStore) Close() error {
	s.closed.Store(true)
	return s.pool.Close()
}

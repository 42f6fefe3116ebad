package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// mongoEntry 每个逻辑集合映射为一个 Mongo collection，条目键作为 _id
type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore 基于 MongoDB 的集合存储
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	prefix string
	logger *zap.Logger
	closed atomic.Bool
}

// MongoOptions MongoDB 连接参数
type MongoOptions struct {
	URI      string
	Database string
	// Prefix 为空时 collection 名与逻辑集合名一致
	Prefix  string
	Timeout time.Duration
}

// NewMongoStore 连接 MongoDB 并验证可达
func NewMongoStore(ctx context.Context, opts MongoOptions, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if opts.Database == "" {
		opts.Database = "agentmemory"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(opts.URI).
		SetTimeout(opts.Timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	s := &MongoStore{
		client: client,
		db:     client.Database(opts.Database),
		prefix: opts.Prefix,
		logger: logger.With(zap.String("component", "collection_store_mongo")),
	}
	s.logger.Info("mongo store connected", zap.String("database", opts.Database))
	return s, nil
}

func (s *MongoStore) coll(collection string) (*mongo.Collection, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	name := collection
	if s.prefix != "" {
		name = s.prefix + "_" + collection
	}
	return s.db.Collection(name), nil
}

func (s *MongoStore) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := validateKey(collection, key); err != nil {
		return nil, false, err
	}
	c, err := s.coll(collection)
	if err != nil {
		return nil, false, err
	}

	var doc mongoEntry
	err = c.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongo get %s/%s: %w", collection, key, err)
	}
	return doc.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, collection, key string, value []byte) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.coll(collection)
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	doc := mongoEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err = c.ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		s.logger.Error("mongo upsert failed", zap.String("collection", collection), zap.String("key", key), zap.Error(err))
		return fmt.Errorf("mongo set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, key string) error {
	if err := validateKey(collection, key); err != nil {
		return err
	}
	c, err := s.coll(collection)
	if err != nil {
		return err
	}
	if _, err := c.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("mongo delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *MongoStore) GetAll(ctx context.Context, collection string) ([]Entry, error) {
	return s.GetWhere(ctx, collection, nil)
}

func (s *MongoStore) GetWhere(ctx context.Context, collection string, pred Predicate) ([]Entry, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}
	c, err := s.coll(collection)
	if err != nil {
		return nil, err
	}

	cursor, err := c.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongo scan %s: %w", collection, err)
	}
	var docs []mongoEntry
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode %s: %w", collection, err)
	}

	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, Entry{Key: d.Key, Value: d.Value})
	}
	entries = filterEntries(entries, pred)
	sortEntries(entries)
	return entries, nil
}

func (s *MongoStore) DeleteWhere(ctx context.Context, collection string, pred Predicate) (int, error) {
	matched, err := s.GetWhere(ctx, collection, pred)
	if err != nil || len(matched) == 0 {
		return 0, err
	}
	c, err := s.coll(collection)
	if err != nil {
		return 0, err
	}

	keys := make(bson.A, len(matched))
	for i, e := range matched {
		keys[i] = e.Key
	}
	res, err := c.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: keys}}}})
	if err != nil {
		return 0, fmt.Errorf("mongo delete where %s: %w", collection, err)
	}
	return int(res.DeletedCount), nil
}

// Close 断开连接，可重复调用
func (s *MongoStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 状态标签取值
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 记忆存储指标。nil *Collector 的所有记录方法都是空操作。
type Collector struct {
	// 适配器指标
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// 索引指标
	indexSize       prometheus.Gauge
	indexOperations *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	searchResults   prometheus.Histogram

	// 缓存指标
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheExpired prometheus.Counter

	logger *zap.Logger
}

// NewCollector 在 reg 上注册指标。reg 为 nil 时使用默认注册表。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.operationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_operations_total",
			Help:      "Total number of memory adapter operations",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "memory_operation_duration_seconds",
			Help:      "Memory adapter operation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	c.indexSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "index_vectors",
		Help:      "Number of vectors held by the HNSW index",
	})

	c.indexOperations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_operations_total",
			Help:      "Total number of HNSW index mutations",
		},
		[]string{"operation"},
	)

	c.searchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "index_search_duration_seconds",
		Help:      "HNSW search duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	c.searchResults = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Number of memories returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	c.cacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	})
	c.cacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	})
	c.cacheExpired = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_expired_total",
		Help:      "Total number of cache entries evicted on read after expiry",
	})

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 适配器
// =============================================================================

// RecordOperation 记录一次适配器操作
func (c *Collector) RecordOperation(operation string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.operationsTotal.WithLabelValues(operation, status).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// =============================================================================
// 🧭 索引
// =============================================================================

// RecordIndexAdd 记录向量写入
func (c *Collector) RecordIndexAdd(size int) {
	if c == nil {
		return
	}
	c.indexOperations.WithLabelValues("add").Inc()
	c.indexSize.Set(float64(size))
}

// RecordIndexRemove 记录向量删除
func (c *Collector) RecordIndexRemove(size int) {
	if c == nil {
		return
	}
	c.indexOperations.WithLabelValues("remove").Inc()
	c.indexSize.Set(float64(size))
}

// SetIndexSize 直接设置索引大小（重建或恢复之后）
func (c *Collector) SetIndexSize(size int) {
	if c == nil {
		return
	}
	c.indexSize.Set(float64(size))
}

// RecordSearch 记录一次近邻搜索
func (c *Collector) RecordSearch(duration time.Duration, results int) {
	if c == nil {
		return
	}
	c.searchDuration.Observe(duration.Seconds())
	c.searchResults.Observe(float64(results))
}

// =============================================================================
// 💾 缓存
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// RecordCacheMiss 记录缓存未命中，expired 表示条目存在但已过期
func (c *Collector) RecordCacheMiss(expired bool) {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
	if expired {
		c.cacheExpired.Inc()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentmemory/config"
	"github.com/BaSui01/agentmemory/index"
	"github.com/BaSui01/agentmemory/internal/metrics"
	"github.com/BaSui01/agentmemory/internal/server"
	"github.com/BaSui01/agentmemory/internal/telemetry"
	"github.com/BaSui01/agentmemory/memory"
	"github.com/BaSui01/agentmemory/store"
	"github.com/BaSui01/agentmemory/types"
)

// healthProbeKey 健康检查读取的缓存键，不存在也视为健康
const healthProbeKey = "__health_probe"

// Host 装配好的宿主进程组件
type Host struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	registry  *prometheus.Registry
	store     store.CollectionStore
	index     *index.HNSWIndex
	adapter   *memory.Adapter
	http      *server.Manager
}

// NewHost 按配置创建存储、索引与适配器。持久化后端会在启动时把
// 已有嵌入重建进索引。
func NewHost(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{cfg: cfg, logger: logger}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
		providers = &telemetry.Providers{}
	}
	h.providers = providers

	h.registry = prometheus.NewRegistry()
	h.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("agentmemory", h.registry, logger)

	s, err := store.Open(ctx, cfg, logger)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, err
	}
	h.store = s

	indexOpts := []index.Option{index.WithDimension(cfg.Index.Dimension)}
	if cfg.Index.Seed != 0 {
		indexOpts = append(indexOpts, index.WithSeed(cfg.Index.Seed))
	}
	h.index = index.NewHNSWIndex(index.HNSWConfig{
		M:              cfg.Index.M,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
		MaxLevel:       cfg.Index.MaxLevel,
	}, logger, indexOpts...)

	h.adapter, err = memory.NewAdapter(s, h.index, memory.Options{
		AgentID:              cfg.Memory.AgentID,
		EmbeddingDimension:   cfg.Index.Dimension,
		MatchThreshold:       memory.Threshold(cfg.Memory.MatchThreshold),
		DefaultCount:         cfg.Memory.Count,
		StrictConsistency:    cfg.Memory.StrictConsistency,
		HydrationConcurrency: cfg.Memory.HydrationConcurrency,
	},
		memory.WithLogger(logger),
		memory.WithMetrics(collector),
		memory.WithTracer(providers.Tracer()),
	)
	if err != nil {
		_ = h.Close(ctx)
		return nil, err
	}

	if cfg.Store.Driver != "" && cfg.Store.Driver != config.DriverMemory {
		added, err := h.adapter.RebuildIndex(ctx)
		if err != nil {
			_ = h.Close(ctx)
			return nil, fmt.Errorf("rebuild index: %w", err)
		}
		logger.Info("index warmed from store", zap.Int("vectors", added))
	}

	h.http = server.NewManager(h.Handler(), server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)
	return h, nil
}

// Adapter 返回装配好的适配器
func (h *Host) Adapter() *memory.Adapter {
	return h.adapter
}

// =============================================================================
// 🌐 HTTP 端点
// =============================================================================

// Handler 返回健康检查与指标路由
func (h *Host) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/version", h.handleVersion)
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry}))

	return Chain(mux,
		Recovery(h.logger),
		RequestID(),
		Tracing(h.providers.Tracer()),
		RequestLogger(h.logger),
	)
}

type healthResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Dimension int    `json:"dimension"`
	Vectors   int    `json:"vectors"`
	Error     string `json:"error,omitempty"`
}

func (h *Host) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "healthy",
		Store:     h.cfg.Store.Driver,
		Dimension: h.index.Dimension(),
		Vectors:   h.index.Size(),
	}
	code := http.StatusOK
	if _, _, err := h.store.Get(ctx, types.CollectionCache, healthProbeKey); err != nil {
		h.logger.Warn("health probe failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (h *Host) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// 🛑 生命周期
// =============================================================================

// Run 服务 HTTP 直到 ctx 取消
func (h *Host) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.http.Run(gctx)
	})
	return g.Wait()
}

// Close 关闭 HTTP 服务、存储与遥测
func (h *Host) Close(ctx context.Context) error {
	var errs []error
	if h.http != nil {
		if err := h.http.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil && !errors.Is(err, store.ErrClosed) {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if h.providers != nil {
		if err := h.providers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}

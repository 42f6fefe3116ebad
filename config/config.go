package config

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 完整配置
type Config struct {
	// Server 宿主进程 HTTP 服务（健康检查与指标）
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Index HNSW 向量索引
	Index IndexConfig `yaml:"index" env:"INDEX"`

	// Memory 记忆适配器
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Store 集合存储后端选择
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Redis 后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database SQL 后端配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Mongo 后端配置
	Mongo MongoConfig `yaml:"mongo" env:"MONGO"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// IndexConfig HNSW 索引配置
type IndexConfig struct {
	// 嵌入维度
	Dimension int `yaml:"dimension" env:"DIMENSION"`
	// 每层最大邻居数
	M int `yaml:"m" env:"M"`
	// 构建时候选宽度
	EfConstruction int `yaml:"ef_construction" env:"EF_CONSTRUCTION"`
	// 搜索时候选宽度
	EfSearch int `yaml:"ef_search" env:"EF_SEARCH"`
	// 层数上限
	MaxLevel int `yaml:"max_level" env:"MAX_LEVEL"`
	// 层数随机种子，0 表示使用默认种子
	Seed int64 `yaml:"seed" env:"SEED"`
}

// MemoryConfig 记忆适配器配置
type MemoryConfig struct {
	// 默认 agentId
	AgentID string `yaml:"agent_id" env:"AGENT_ID"`
	// 相似度阈值
	MatchThreshold float64 `yaml:"match_threshold" env:"MATCH_THRESHOLD"`
	// 默认返回条数
	Count int `yaml:"count" env:"COUNT"`
	// 多步操作是否串行化
	StrictConsistency bool `yaml:"strict_consistency" env:"STRICT_CONSISTENCY"`
	// 搜索结果回填并发度
	HydrationConcurrency int `yaml:"hydration_concurrency" env:"HYDRATION_CONCURRENCY"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverGorm   = "gorm"
	DriverMongo  = "mongo"
)

// StoreConfig 集合存储配置
type StoreConfig struct {
	// 驱动: memory, redis, gorm, mongo
	Driver string `yaml:"driver" env:"DRIVER"`
	// Redis key / Mongo collection 前缀
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr                string        `yaml:"addr" env:"ADDR"`
	Password            string        `yaml:"password" env:"PASSWORD"`
	DB                  int           `yaml:"db" env:"DB"`
	PoolSize            int           `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns        int           `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver          string        `yaml:"driver" env:"DRIVER"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Name            string        `yaml:"name" env:"NAME"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI      string        `yaml:"uri" env:"URI"`
	Database string        `yaml:"database" env:"DATABASE"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Index.Dimension <= 0 {
		errs = append(errs, "index.dimension must be positive")
	}
	if c.Index.M != 0 && c.Index.M < 2 {
		errs = append(errs, "index.m must be at least 2")
	}
	if c.Memory.MatchThreshold < -1 || c.Memory.MatchThreshold > 1 {
		errs = append(errs, "memory.match_threshold must be between -1 and 1")
	}
	if c.Memory.Count <= 0 {
		errs = append(errs, "memory.count must be positive")
	}

	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverGorm:
		switch c.Database.Driver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, "mongo.uri is required for the mongo store")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported store driver %q", c.Store.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}

package index

import "math"

// HNSWConfig HNSW 配置
type HNSWConfig struct {
	M              int     `json:"m" yaml:"m"`                             // 每层最大连接数
	EfConstruction int     `json:"ef_construction" yaml:"ef_construction"` // 构建时搜索宽度
	EfSearch       int     `json:"ef_search" yaml:"ef_search"`             // 搜索时宽度
	MaxLevel       int     `json:"max_level" yaml:"max_level"`             // 层数上限
	Ml             float64 `json:"ml" yaml:"ml"`                           // 层数衰减因子，默认 1/ln(M)
}

// DefaultHNSWConfig 默认 HNSW 配置
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{
		M:              16,
		EfConstruction: 200,
		EfSearch:       50,
		MaxLevel:       16,
		Ml:             1.0 / math.Log(16),
	}
}

// normalize 用默认值补齐未设置的字段
func (c HNSWConfig) normalize() HNSWConfig {
	def := DefaultHNSWConfig()
	if c.M < 2 {
		c.M = def.M
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = def.EfConstruction
	}
	if c.EfSearch <= 0 {
		c.EfSearch = def.EfSearch
	}
	if c.MaxLevel <= 0 {
		c.MaxLevel = def.MaxLevel
	}
	if c.Ml <= 0 || math.IsInf(c.Ml, 0) || math.IsNaN(c.Ml) {
		c.Ml = 1.0 / math.Log(float64(c.M))
	}
	return c
}

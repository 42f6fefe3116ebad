package index

import (
	"math"
	"math/rand"
	"sync"
)

// LevelGenerator 为新插入节点抽取层数
type LevelGenerator interface {
	Level(ml float64, maxLevel int) int
}

// LevelFunc 函数适配器
type LevelFunc func(ml float64, maxLevel int) int

func (f LevelFunc) Level(ml float64, maxLevel int) int { return f(ml, maxLevel) }

// FixedLevels 依次返回给定层数，用尽后返回 0。仅用于测试。
func FixedLevels(levels ...int) LevelGenerator {
	var mu sync.Mutex
	i := 0
	return LevelFunc(func(_ float64, maxLevel int) int {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(levels) {
			return 0
		}
		l := levels[i]
		i++
		if l > maxLevel {
			l = maxLevel
		}
		return l
	})
}

// randLevelGenerator 几何分布层数：从 0 开始，u < exp(-level*ml) 时递增
type randLevelGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandLevelGenerator 创建带种子的层数生成器
func NewRandLevelGenerator(seed int64) LevelGenerator {
	return &randLevelGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *randLevelGenerator) Level(ml float64, maxLevel int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	level := 0
	for g.rnd.Float64() < math.Exp(-float64(level)*ml) && level < maxLevel {
		level++
	}
	return level
}

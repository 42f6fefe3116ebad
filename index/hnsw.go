package index

import (
	"container/heap"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// SearchResult 搜索结果
type SearchResult struct {
	ID         string  `json:"id"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"` // 1 - distance
}

// node 图节点，neighbors[l] 为第 l 层的邻居 ID 集合（l = 0..level）
type node struct {
	id        string
	vector    []float32
	level     int
	neighbors []map[string]struct{}
}

func newNode(id string, vector []float32, level int) *node {
	n := &node{
		id:        id,
		vector:    vector,
		level:     level,
		neighbors: make([]map[string]struct{}, level+1),
	}
	for l := range n.neighbors {
		n.neighbors[l] = make(map[string]struct{})
	}
	return n
}

func (n *node) neighborsAt(level int) map[string]struct{} {
	if level < 0 || level >= len(n.neighbors) {
		return nil
	}
	return n.neighbors[level]
}

// Option HNSWIndex 可选项
type Option func(*HNSWIndex)

// WithLevelGenerator 注入层数生成器
func WithLevelGenerator(g LevelGenerator) Option {
	return func(idx *HNSWIndex) {
		if g != nil {
			idx.levels = g
		}
	}
}

// WithSeed 使用固定种子的随机层数生成器
func WithSeed(seed int64) Option {
	return func(idx *HNSWIndex) {
		idx.levels = NewRandLevelGenerator(seed)
	}
}

// WithDimension 在创建时完成 Init
func WithDimension(dimension int) Option {
	return func(idx *HNSWIndex) {
		idx.dimension = dimension
	}
}

// HNSWIndex HNSW 索引（Hierarchical Navigable Small World）
type HNSWIndex struct {
	mu         sync.RWMutex
	config     HNSWConfig
	dimension  int
	nodes      map[string]*node
	entryPoint string
	maxLevel   int

	levels LevelGenerator
	logger *zap.Logger
}

// NewHNSWIndex 创建 HNSW 索引。使用前需调用 Init 或传入 WithDimension。
func NewHNSWIndex(config HNSWConfig, logger *zap.Logger, opts ...Option) *HNSWIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &HNSWIndex{
		config: config.normalize(),
		nodes:  make(map[string]*node),
		logger: logger.With(zap.String("component", "hnsw_index")),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.levels == nil {
		idx.levels = NewRandLevelGenerator(1)
	}
	return idx
}

// Init 设置工作维度。已有节点全部丢弃。
func (idx *HNSWIndex) Init(dimension int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	discarded := len(idx.nodes)
	idx.dimension = dimension
	idx.nodes = make(map[string]*node)
	idx.entryPoint = ""
	idx.maxLevel = 0

	if discarded > 0 {
		idx.logger.Warn("index re-initialized, vectors discarded",
			zap.Int("dimension", dimension),
			zap.Int("discarded", discarded))
	}
}

// Dimension 当前维度
func (idx *HNSWIndex) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimension
}

// Config 当前配置
func (idx *HNSWIndex) Config() HNSWConfig {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.config
}

// Size 索引大小
func (idx *HNSWIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

// Contains 是否包含 id
func (idx *HNSWIndex) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.nodes[id]
	return ok
}

// Add 添加向量。id 已存在时原地替换向量，不调整图结构。
func (idx *HNSWIndex) Add(id string, vector []float32) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(vector) != idx.dimension {
		return &DimensionMismatchError{Expected: idx.dimension, Actual: len(vector)}
	}

	vec := append([]float32(nil), vector...)

	if existing, ok := idx.nodes[id]; ok {
		existing.vector = vec
		return nil
	}

	level := idx.levels.Level(idx.config.Ml, idx.config.MaxLevel)
	n := newNode(id, vec, level)

	if idx.entryPoint == "" {
		idx.nodes[id] = n
		idx.entryPoint = id
		idx.maxLevel = level
		return nil
	}

	idx.insert(n)
	return nil
}

// insert 将节点接入图中，调用方持有写锁且索引非空
func (idx *HNSWIndex) insert(n *node) {
	// 从顶层贪心下降到 level+1
	cursor := idx.entryPoint
	for lc := idx.maxLevel; lc > n.level; lc-- {
		if res := idx.searchLayer(n.vector, cursor, 1, lc); len(res) > 0 {
			cursor = res[0].id
		}
	}

	idx.nodes[n.id] = n

	top := n.level
	if idx.maxLevel < top {
		top = idx.maxLevel
	}

	for lc := top; lc >= 0; lc-- {
		candidates := idx.searchLayer(n.vector, cursor, idx.config.EfConstruction, lc)

		linked := 0
		for _, c := range candidates {
			if linked >= idx.config.M {
				break
			}
			if c.id == n.id {
				continue
			}
			nb := idx.nodes[c.id]
			nbSet := nb.neighborsAt(lc)
			if nbSet == nil {
				continue
			}
			n.neighbors[lc][c.id] = struct{}{}
			nbSet[n.id] = struct{}{}
			if len(nbSet) > idx.config.M {
				idx.prune(nb, lc)
			}
			linked++
		}

		if len(candidates) > 0 {
			cursor = candidates[0].id
		}
	}

	if n.level > idx.maxLevel {
		idx.maxLevel = n.level
		idx.entryPoint = n.id
	}
}

// prune 按到 nb 的距离保留最近的 M 个邻居
func (idx *HNSWIndex) prune(nb *node, level int) {
	set := nb.neighbors[level]
	items := make([]heapItem, 0, len(set))
	for id := range set {
		other, ok := idx.nodes[id]
		if !ok {
			delete(set, id)
			continue
		}
		items = append(items, heapItem{id: id, dist: CosineDistance(nb.vector, other.vector)})
	}
	if len(items) <= idx.config.M {
		return
	}

	sort.Slice(items, func(i, j int) bool { return closer(items[i], items[j]) })
	for _, it := range items[idx.config.M:] {
		delete(set, it.id)
	}
}

// Remove 删除向量，不存在时返回 false
func (idx *HNSWIndex) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n, ok := idx.nodes[id]
	if !ok {
		return false
	}

	// 剪枝会留下单向边，需要扫描全部节点
	for _, other := range idx.nodes {
		top := n.level
		if other.level < top {
			top = other.level
		}
		for l := 0; l <= top; l++ {
			delete(other.neighbors[l], id)
		}
	}
	delete(idx.nodes, id)

	if idx.entryPoint == id {
		idx.reassignEntryPoint()
	}
	return true
}

// reassignEntryPoint 选择层数最高的剩余节点作为入口点
func (idx *HNSWIndex) reassignEntryPoint() {
	idx.entryPoint = ""
	idx.maxLevel = 0
	for id, n := range idx.nodes {
		if idx.entryPoint == "" || n.level > idx.maxLevel || (n.level == idx.maxLevel && id < idx.entryPoint) {
			idx.entryPoint = id
			idx.maxLevel = n.level
		}
	}
}

// Search 搜索最近邻，返回按距离升序、相似度 >= threshold 的至多 k 个结果。
// 查询维度不符时返回 *DimensionMismatchError。
func (idx *HNSWIndex) Search(query []float32, k int, threshold float64) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(query) != idx.dimension {
		return nil, &DimensionMismatchError{Expected: idx.dimension, Actual: len(query)}
	}
	if len(idx.nodes) == 0 || k <= 0 {
		return []SearchResult{}, nil
	}

	cursor := idx.entryPoint
	for lc := idx.maxLevel; lc > 0; lc-- {
		if res := idx.searchLayer(query, cursor, 1, lc); len(res) > 0 {
			cursor = res[0].id
		}
	}

	ef := idx.config.EfSearch
	if k > ef {
		ef = k
	}
	candidates := idx.searchLayer(query, cursor, ef, 0)

	results := make([]SearchResult, 0, k)
	for _, c := range candidates {
		if len(results) >= k {
			break
		}
		similarity := 1.0 - c.dist
		if similarity < threshold {
			continue
		}
		results = append(results, SearchResult{
			ID:         c.id,
			Distance:   c.dist,
			Similarity: similarity,
		})
	}
	return results, nil
}

// searchLayer 在指定层做最优优先扩展，返回按距离升序的至多 ef 个节点
func (idx *HNSWIndex) searchLayer(query []float32, entryID string, ef, level int) []heapItem {
	entry, ok := idx.nodes[entryID]
	if !ok {
		return nil
	}
	if ef < 1 {
		ef = 1
	}

	visited := map[string]struct{}{entryID: {}}
	first := heapItem{id: entryID, dist: CosineDistance(query, entry.vector)}
	candidates := &minHeap{first}
	results := &maxHeap{first}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(heapItem)

		// 局部最优：最近候选已差于结果集中最差者
		if results.Len() >= ef && c.dist > (*results)[0].dist {
			break
		}

		cn, ok := idx.nodes[c.id]
		if !ok {
			continue
		}
		for nid := range cn.neighborsAt(level) {
			if _, seen := visited[nid]; seen {
				continue
			}
			visited[nid] = struct{}{}

			nb, ok := idx.nodes[nid]
			if !ok {
				continue
			}
			item := heapItem{id: nid, dist: CosineDistance(query, nb.vector)}
			if results.Len() < ef || closer(item, (*results)[0]) {
				heap.Push(candidates, item)
				heap.Push(results, item)
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]heapItem, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(heapItem)
	}
	return out
}

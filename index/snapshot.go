package index

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// NodeSnapshot 单个节点的快照，Neighbors[l] 为第 l 层邻居（已排序）
type NodeSnapshot struct {
	ID        string     `json:"id"`
	Vector    []float32  `json:"vector"`
	Level     int        `json:"level"`
	Neighbors [][]string `json:"neighbors"`
}

// Snapshot 索引完整状态
type Snapshot struct {
	Dimension  int            `json:"dimension"`
	Config     HNSWConfig     `json:"config"`
	EntryPoint string         `json:"entry_point,omitempty"`
	MaxLevel   int            `json:"max_level"`
	Nodes      []NodeSnapshot `json:"nodes"`
}

// Snapshot 导出当前状态的深拷贝
func (idx *HNSWIndex) Snapshot() *Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snap := &Snapshot{
		Dimension:  idx.dimension,
		Config:     idx.config,
		EntryPoint: idx.entryPoint,
		MaxLevel:   idx.maxLevel,
		Nodes:      make([]NodeSnapshot, 0, len(idx.nodes)),
	}
	for _, n := range idx.nodes {
		ns := NodeSnapshot{
			ID:        n.id,
			Vector:    append([]float32(nil), n.vector...),
			Level:     n.level,
			Neighbors: make([][]string, len(n.neighbors)),
		}
		for l, set := range n.neighbors {
			ids := make([]string, 0, len(set))
			for id := range set {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			ns.Neighbors[l] = ids
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
	return snap
}

// validate 检查快照是否满足索引不变量
func (s *Snapshot) validate() error {
	if s.Dimension < 0 {
		return fmt.Errorf("%w: negative dimension %d", ErrInvalidSnapshot, s.Dimension)
	}
	maxNeighbors := s.Config.normalize().M
	levels := make(map[string]int, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node with empty id", ErrInvalidSnapshot)
		}
		if _, dup := levels[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidSnapshot, n.ID)
		}
		if len(n.Vector) != s.Dimension {
			return fmt.Errorf("%w: node %q: %v", ErrInvalidSnapshot, n.ID,
				&DimensionMismatchError{Expected: s.Dimension, Actual: len(n.Vector)})
		}
		if n.Level < 0 || len(n.Neighbors) != n.Level+1 {
			return fmt.Errorf("%w: node %q has %d neighbor levels for level %d",
				ErrInvalidSnapshot, n.ID, len(n.Neighbors), n.Level)
		}
		if n.Level > s.MaxLevel {
			return fmt.Errorf("%w: node %q level %d exceeds max level %d",
				ErrInvalidSnapshot, n.ID, n.Level, s.MaxLevel)
		}
		for l, ids := range n.Neighbors {
			if len(ids) > maxNeighbors {
				return fmt.Errorf("%w: node %q has %d neighbors at level %d, limit %d",
					ErrInvalidSnapshot, n.ID, len(ids), l, maxNeighbors)
			}
		}
		levels[n.ID] = n.Level
	}
	for _, n := range s.Nodes {
		for l, ids := range n.Neighbors {
			for _, id := range ids {
				lvl, ok := levels[id]
				if !ok {
					return fmt.Errorf("%w: node %q links unknown node %q", ErrInvalidSnapshot, n.ID, id)
				}
				if lvl < l {
					return fmt.Errorf("%w: node %q links %q above its level", ErrInvalidSnapshot, n.ID, id)
				}
			}
		}
	}

	if len(s.Nodes) == 0 {
		if s.EntryPoint != "" {
			return fmt.Errorf("%w: entry point set on empty index", ErrInvalidSnapshot)
		}
		return nil
	}
	lvl, ok := levels[s.EntryPoint]
	if !ok {
		return fmt.Errorf("%w: entry point %q not found", ErrInvalidSnapshot, s.EntryPoint)
	}
	if lvl != s.MaxLevel {
		return fmt.Errorf("%w: max level %d differs from entry point level %d", ErrInvalidSnapshot, s.MaxLevel, lvl)
	}
	return nil
}

// Restore 用快照替换当前状态
func (idx *HNSWIndex) Restore(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if err := snap.validate(); err != nil {
		return err
	}

	nodes := make(map[string]*node, len(snap.Nodes))
	for _, ns := range snap.Nodes {
		n := newNode(ns.ID, append([]float32(nil), ns.Vector...), ns.Level)
		for l, ids := range ns.Neighbors {
			for _, id := range ids {
				n.neighbors[l][id] = struct{}{}
			}
		}
		nodes[ns.ID] = n
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.config = snap.Config.normalize()
	idx.dimension = snap.Dimension
	idx.nodes = nodes
	idx.entryPoint = snap.EntryPoint
	idx.maxLevel = snap.MaxLevel
	if len(nodes) == 0 {
		idx.maxLevel = 0
	}

	idx.logger.Info("index restored from snapshot",
		zap.Int("size", len(nodes)),
		zap.Int("dimension", snap.Dimension),
		zap.Int("max_level", idx.maxLevel))
	return nil
}

// WriteTo 以 JSON 写出快照，实现 io.WriterTo
func (idx *HNSWIndex) WriteTo(w io.Writer) (int64, error) {
	data, err := json.Marshal(idx.Snapshot())
	if err != nil {
		return 0, fmt.Errorf("marshal snapshot: %w", err)
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("write snapshot: %w", err)
	}
	return int64(n), nil
}

// ReadFrom 读取 JSON 快照并恢复，实现 io.ReaderFrom
func (idx *HNSWIndex) ReadFrom(r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		return n, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return n, idx.Restore(&snap)
}

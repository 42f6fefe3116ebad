package index

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T, dim int, opts ...Option) *HNSWIndex {
	t.Helper()
	idx := NewHNSWIndex(DefaultHNSWConfig(), zap.NewNop(), opts...)
	idx.Init(dim)
	return idx
}

func neighborsOf(snap *Snapshot, id string, level int) []string {
	for _, n := range snap.Nodes {
		if n.ID == id {
			if level < len(n.Neighbors) {
				return n.Neighbors[level]
			}
			return nil
		}
	}
	return nil
}

func TestHNSWIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx := newTestIndex(t, 3, WithSeed(42))

	require.NoError(t, idx.Add("v1", []float32{1, 0, 0}))
	require.NoError(t, idx.Add("v2", []float32{0, 1, 0}))
	require.NoError(t, idx.Add("v3", []float32{0.9, 0.1, 0}))

	results, err := idx.Search([]float32{1, 0, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "v1", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "v3", results[1].ID)
	assert.InDelta(t, 0.9939, results[1].Similarity, 1e-3)
	assert.InDelta(t, 1-results[1].Similarity, results[1].Distance, 1e-12)
}

func TestHNSWIndex_RemoveThenSearch(t *testing.T) {
	idx := newTestIndex(t, 3)

	require.NoError(t, idx.Add("a", []float32{1, 0, 0}))
	assert.True(t, idx.Remove("a"))

	results, err := idx.Search([]float32{1, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, idx.Size())

	snap := idx.Snapshot()
	assert.Equal(t, "", snap.EntryPoint)
	assert.Equal(t, 0, snap.MaxLevel)
}

func TestHNSWIndex_RemoveAbsentIsNoop(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("a", []float32{1, 0}))

	assert.False(t, idx.Remove("missing"))
	assert.Equal(t, 1, idx.Size())
}

func TestHNSWIndex_EmptySearch(t *testing.T) {
	idx := newTestIndex(t, 4)

	results, err := idx.Search([]float32{1, 2, 3, 4}, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := newTestIndex(t, 3)
	require.NoError(t, idx.Add("a", []float32{1, 0, 0}))
	before := idx.Snapshot()

	err := idx.Add("b", []float32{1, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	var dm *DimensionMismatchError
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, 3, dm.Expected)
	assert.Equal(t, 2, dm.Actual)

	_, err = idx.Search([]float32{1, 0, 0, 0}, 1, 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	assert.Equal(t, before, idx.Snapshot())
}

func TestHNSWIndex_AddBeforeInit(t *testing.T) {
	idx := NewHNSWIndex(DefaultHNSWConfig(), nil)

	err := idx.Add("a", []float32{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestHNSWIndex_ReplaceExistingVector(t *testing.T) {
	idx := newTestIndex(t, 2, WithLevelGenerator(FixedLevels(0, 0)))

	require.NoError(t, idx.Add("a", []float32{1, 0}))
	require.NoError(t, idx.Add("b", []float32{0, 1}))
	shapeBefore := neighborsOf(idx.Snapshot(), "a", 0)

	require.NoError(t, idx.Add("a", []float32{0, 1}))
	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, shapeBefore, neighborsOf(idx.Snapshot(), "a", 0))

	results, err := idx.Search([]float32{0, 1}, 2, 0.99)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 1.0, results[1].Similarity, 1e-9)
}

func TestHNSWIndex_DeterministicShapeWithPruning(t *testing.T) {
	cfg := DefaultHNSWConfig()
	cfg.M = 2
	idx := NewHNSWIndex(cfg, zap.NewNop(), WithLevelGenerator(FixedLevels(0, 0, 0, 0)))
	idx.Init(2)

	require.NoError(t, idx.Add("a", []float32{1, 0}))
	require.NoError(t, idx.Add("b", []float32{0, 1}))
	require.NoError(t, idx.Add("c", []float32{1, 0.1}))
	require.NoError(t, idx.Add("d", []float32{1, 0.2}))

	snap := idx.Snapshot()
	assert.Equal(t, "a", snap.EntryPoint)
	assert.Equal(t, []string{"c", "d"}, neighborsOf(snap, "a", 0))
	assert.Equal(t, []string{"a", "c"}, neighborsOf(snap, "b", 0))
	assert.Equal(t, []string{"a", "d"}, neighborsOf(snap, "c", 0))
	assert.Equal(t, []string{"a", "c"}, neighborsOf(snap, "d", 0))
}

func TestHNSWIndex_EntryPointPromotionAndReassignment(t *testing.T) {
	idx := newTestIndex(t, 2, WithLevelGenerator(FixedLevels(0, 2, 1)))

	require.NoError(t, idx.Add("low", []float32{1, 0}))
	require.NoError(t, idx.Add("top", []float32{0, 1}))
	require.NoError(t, idx.Add("mid", []float32{1, 1}))

	snap := idx.Snapshot()
	assert.Equal(t, "top", snap.EntryPoint)
	assert.Equal(t, 2, snap.MaxLevel)
	assert.Equal(t, []string{"mid"}, neighborsOf(snap, "top", 1))

	require.True(t, idx.Remove("top"))
	snap = idx.Snapshot()
	assert.Equal(t, "mid", snap.EntryPoint)
	assert.Equal(t, 1, snap.MaxLevel)
	assert.Empty(t, neighborsOf(snap, "mid", 1))
	assert.NotContains(t, neighborsOf(snap, "low", 0), "top")
	require.NoError(t, snap.validate())

	results, err := idx.Search([]float32{0, 1}, 5, 0)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "top", r.ID)
	}
}

func TestHNSWIndex_ThresholdAndK(t *testing.T) {
	idx := newTestIndex(t, 2, WithSeed(7))
	require.NoError(t, idx.Add("x", []float32{1, 0}))
	require.NoError(t, idx.Add("y", []float32{0, 1}))
	require.NoError(t, idx.Add("z", []float32{-1, 0}))

	results, err := idx.Search([]float32{1, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].ID)

	results, err = idx.Search([]float32{1, 0}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search([]float32{1, 0}, 10, -1)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, "z", results[2].ID)
}

func TestHNSWIndex_InitDiscardsNodes(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Add("a", []float32{1, 0}))

	idx.Init(3)
	assert.Equal(t, 3, idx.Dimension())
	assert.Equal(t, 0, idx.Size())
	assert.False(t, idx.Contains("a"))
	require.NoError(t, idx.Add("a", []float32{1, 0, 0}))
}

func TestHNSWIndex_NeighborSetsBoundedByM(t *testing.T) {
	cfg := DefaultHNSWConfig()
	cfg.M = 4
	cfg.EfConstruction = 20
	idx := NewHNSWIndex(cfg, zap.NewNop(), WithSeed(3))
	idx.Init(8)

	for i := 0; i < 200; i++ {
		require.NoError(t, idx.Add(fmt.Sprintf("n%d", i), testVector(i, 8)))
	}

	snap := idx.Snapshot()
	require.NoError(t, snap.validate())
	for _, n := range snap.Nodes {
		for l, ids := range n.Neighbors {
			assert.LessOrEqual(t, len(ids), cfg.M, "node %s level %d", n.ID, l)
		}
	}
}

func TestHNSWIndex_ConcurrentAccess(t *testing.T) {
	idx := newTestIndex(t, 8, WithSeed(11))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				assert.NoError(t, idx.Add(id, testVector(w*100+i, 8)))
				if i%5 == 0 {
					idx.Remove(id)
				}
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := idx.Search(testVector(r+i, 8), 5, 0)
				assert.NoError(t, err)
			}
		}(r)
	}
	wg.Wait()

	assert.Equal(t, 4*40, idx.Size())
	require.NoError(t, idx.Snapshot().validate())
}

// testVector 生成确定的非零向量
func testVector(seed, dim int) []float32 {
	v := make([]float32, dim)
	x := uint32(seed*2654435761 + 1)
	for i := range v {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		v[i] = float32(x%2000)/1000 - 1
	}
	v[seed%dim] += 2
	return v
}

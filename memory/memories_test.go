package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentmemory/index"
	"github.com/BaSui01/agentmemory/testutil/fixtures"
	"github.com/BaSui01/agentmemory/testutil/mocks"
	"github.com/BaSui01/agentmemory/types"
)

func TestCreateMemory_GeneratesIDAndTagsTable(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	id, err := env.adapter.CreateMemory(ctx, fixtures.TextMemory("hello"), types.TableMessages, false)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	memories, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages})
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, id, memories[0].ID)
	assert.Equal(t, types.TableMessages, memories[0].TableName())
	assert.Equal(t, map[string]any{"text": "hello"}, memories[0].Content)
	assert.Nil(t, memories[0].Similarity)
}

func TestCreateMemory_NonObjectContentRoundTrips(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		content any
		want    any
	}{
		{name: "string", content: "plain text", want: "plain text"},
		{name: "number", content: 42, want: float64(42)},
		{name: "array", content: []any{"a", 1.5, true}, want: []any{"a", 1.5, true}},
		{name: "null", content: nil, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := env.adapter.CreateMemory(ctx, &types.Memory{Content: tt.content}, types.TableFacts, false)
			require.NoError(t, err)

			got, err := env.adapter.GetMemoryByID(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestCreateMemory_Defaults(t *testing.T) {
	env := newTestEnv(t, nil, Options{AgentID: fixtures.AgentID})
	ctx := context.Background()

	input := &types.Memory{
		ID:       "m-1",
		Content:  map[string]any{"text": "x"},
		Unique:   true,
		Metadata: map[string]any{"source": "chat", "type": "ignored"},
	}
	id, err := env.adapter.CreateMemory(ctx, input, types.TableFacts, false)
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	// 调用方的 metadata 不被修改
	assert.Equal(t, "ignored", input.Metadata["type"])
	assert.Empty(t, input.AgentID)

	got, err := env.adapter.GetMemoryByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, fixtures.AgentID, got.AgentID)
	assert.Equal(t, env.clock.Now().UnixMilli(), got.CreatedAt)
	assert.True(t, got.Unique)
	assert.Equal(t, types.TableFacts, got.Metadata["type"])
	assert.Equal(t, "chat", got.Metadata["source"])

	id2, err := env.adapter.CreateMemory(ctx, &types.Memory{AgentID: "other", CreatedAt: 7}, types.TableFacts, true)
	require.NoError(t, err)
	got, err = env.adapter.GetMemoryByID(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, "other", got.AgentID)
	assert.Equal(t, int64(7), got.CreatedAt)
	assert.True(t, got.Unique)
}

func TestCreateMemory_Validation(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	_, err := env.adapter.CreateMemory(ctx, nil, types.TableFacts, false)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))

	_, err = env.adapter.CreateMemory(ctx, fixtures.TextMemory("x"), "", false)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestCreateMemory_DimensionMismatchWritesNothing(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: "bad", Embedding: []float32{1, 0}}, types.TableFacts, false)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDimensionMismatch))
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	got, err := env.adapter.GetMemoryByID(ctx, "bad")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, env.index.Size())
}

func TestCreateMemory_IndexesOnlyNonEmptyEmbeddings(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: "plain"}, types.TableFacts, false)
	require.NoError(t, err)
	_, err = env.adapter.CreateMemory(ctx, &types.Memory{ID: "empty", Embedding: []float32{}}, types.TableFacts, false)
	require.NoError(t, err)
	_, err = env.adapter.CreateMemory(ctx, &types.Memory{ID: "vec", Embedding: []float32{0, 1, 0, 0}}, types.TableFacts, false)
	require.NoError(t, err)

	assert.Equal(t, 1, env.index.Size())
	assert.True(t, env.index.Contains("vec"))
}

func TestGetMemories_FiltersSortsAndPages(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		room := "r1"
		if i%2 == 1 {
			room = "r2"
		}
		_, err := env.adapter.CreateMemory(ctx, &types.Memory{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    room,
			EntityID:  "e1",
			CreatedAt: int64(100 + i),
		}, types.TableMessages, i == 4)
		require.NoError(t, err)
	}
	_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: "fact", RoomID: "r1", CreatedAt: 999}, types.TableFacts, false)
	require.NoError(t, err)

	all, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m3", "m2", "m1", "m0"}, memoryIDs(all))

	r1, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, RoomID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m2", "m0"}, memoryIDs(r1))

	page, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, Offset: 1, Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2"}, memoryIDs(page))

	beyond, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	unique := true
	onlyUnique, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, Unique: &unique})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4"}, memoryIDs(onlyUnique))

	none, err := env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, EntityID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = env.adapter.GetMemories(ctx, GetMemoriesParams{TableName: types.TableMessages, Count: -1})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestGetMemoriesByIDs_PreservesOrderAndSkipsMissing(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: id}, types.TableFacts, false)
		require.NoError(t, err)
	}

	got, err := env.adapter.GetMemoriesByIDs(ctx, []string{"c", "missing", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, memoryIDs(got))

	absent, err := env.adapter.GetMemoryByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestCountMemories(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	create := func(id, room, table string, unique bool) {
		_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: id, RoomID: room}, table, unique)
		require.NoError(t, err)
	}
	create("1", "r1", types.TableMessages, false)
	create("2", "r1", types.TableMessages, true)
	create("3", "r1", types.TableFacts, true)
	create("4", "r2", types.TableMessages, false)

	n, err := env.adapter.CountMemories(ctx, "r1", types.TableMessages, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.adapter.CountMemories(ctx, "r1", "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.adapter.CountMemories(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDeleteMemory_RemovesRecordAndVector(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	id, err := env.adapter.CreateMemory(ctx, fixtures.EmbeddedMemory("x", []float32{1, 0, 0, 0}), types.TableFacts, false)
	require.NoError(t, err)
	require.True(t, env.index.Contains(id))

	require.NoError(t, env.adapter.DeleteMemory(ctx, id))
	got, err := env.adapter.GetMemoryByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, env.index.Contains(id))

	require.NoError(t, env.adapter.DeleteMemory(ctx, id))
}

func TestDeleteMemory_VectorRemovedEvenWhenStoreFails(t *testing.T) {
	ms := mocks.NewMockStore()
	env := newTestEnv(t, ms, Options{})
	ctx := context.Background()

	id, err := env.adapter.CreateMemory(ctx, fixtures.EmbeddedMemory("x", []float32{1, 0, 0, 0}), types.TableFacts, false)
	require.NoError(t, err)

	boom := errors.New("delete failed")
	ms.WithDeleteError(boom)
	err = env.adapter.DeleteMemory(ctx, id)
	assert.ErrorIs(t, err, boom)
	assert.False(t, env.index.Contains(id))

	results, err := env.adapter.SearchMemories(ctx, SearchMemoriesParams{TableName: types.TableFacts, Embedding: []float32{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDeleteAllMemories(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		table := types.TableMessages
		if i == 3 {
			table = types.TableFacts
		}
		_, err := env.adapter.CreateMemory(ctx, &types.Memory{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    "r1",
			Embedding: []float32{1, float32(i), 0, 0},
		}, table, false)
		require.NoError(t, err)
	}
	_, err := env.adapter.CreateMemory(ctx, &types.Memory{ID: "other", RoomID: "r2", Embedding: []float32{0, 0, 1, 0}}, types.TableMessages, false)
	require.NoError(t, err)

	n, err := env.adapter.DeleteAllMemories(ctx, "r1", types.TableMessages)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, env.index.Size())
	assert.True(t, env.index.Contains("m3"))
	assert.True(t, env.index.Contains("other"))

	_, err = env.adapter.DeleteAllMemories(ctx, "", types.TableMessages)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestStrictConsistency_IndexMirrorsStore(t *testing.T) {
	env := newTestEnv(t, nil, Options{StrictConsistency: true})
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				_, err := env.adapter.CreateMemory(ctx, &types.Memory{
					ID:        id,
					RoomID:    fmt.Sprintf("room-%d", w%2),
					Embedding: []float32{float32(w + 1), float32(i + 1), 1, 0},
				}, types.TableMessages, false)
				assert.NoError(t, err)
				if i%3 == 0 {
					assert.NoError(t, env.adapter.DeleteMemory(ctx, id))
				}
			}
		}(w)
	}
	wg.Wait()

	n, err := env.adapter.CountMemories(ctx, "", "", false)
	require.NoError(t, err)
	assert.Equal(t, n, env.index.Size())
	assert.Equal(t, 8*(25-9), n)
}

func memoryIDs(memories []*types.Memory) []string {
	ids := make([]string, len(memories))
	for i, m := range memories {
		ids[i] = m.ID
	}
	return ids
}

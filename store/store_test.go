package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) CollectionStore

// runStoreContract 所有后端共用的行为约束
func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		s := newStore(t)
		v, ok, err := s.Get(ctx, "memories", "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "memories", "a", []byte(`{"v":1}`)))
		v, ok, err := s.Get(ctx, "memories", "a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"v":1}`, string(v))

		require.NoError(t, s.Set(ctx, "memories", "a", []byte(`{"v":2}`)))
		v, _, err = s.Get(ctx, "memories", "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(v))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "rooms", "r1", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "rooms", "r1"))
		require.NoError(t, s.Delete(ctx, "rooms", "r1"))
		require.NoError(t, s.Delete(ctx, "never", "x"))

		_, ok, err := s.Get(ctx, "rooms", "r1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get all is sorted and isolated per collection", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"c", "a", "b"} {
			require.NoError(t, s.Set(ctx, "entities", k, []byte(`"`+k+`"`)))
		}
		require.NoError(t, s.Set(ctx, "worlds", "w", []byte(`"w"`)))

		all, err := s.GetAll(ctx, "entities")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"a", "b", "c"}, entryKeys(all))

		empty, err := s.GetAll(ctx, "agents")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("where", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 6; i++ {
			room := "r1"
			if i%2 == 1 {
				room = "r2"
			}
			require.NoError(t, s.Set(ctx, "memories", fmt.Sprintf("m%d", i), []byte(`{"roomId":"`+room+`"}`)))
		}
		inR2 := func(e Entry) bool { return strings.Contains(string(e.Value), `"r2"`) }

		matched, err := s.GetWhere(ctx, "memories", inR2)
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m3", "m5"}, entryKeys(matched))

		n, err := s.DeleteWhere(ctx, "memories", inR2)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		rest, err := s.GetAll(ctx, "memories")
		require.NoError(t, err)
		assert.Equal(t, []string{"m0", "m2", "m4"}, entryKeys(rest))

		n, err = s.DeleteWhere(ctx, "memories", inR2)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("validation", func(t *testing.T) {
		s := newStore(t)
		_, _, err := s.Get(ctx, "", "k")
		assert.Error(t, err)
		assert.Error(t, s.Set(ctx, "memories", "", []byte(`{}`)))
		_, err = s.GetAll(ctx, "")
		assert.Error(t, err)
	})

	t.Run("closed", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, _, err := s.Get(ctx, "memories", "a")
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, s.Set(ctx, "memories", "a", []byte(`{}`)), ErrClosed)
		_, err = s.GetAll(ctx, "memories")
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func entryKeys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

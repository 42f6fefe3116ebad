package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) CollectionStore {
		return NewMemoryStore(zap.NewNop())
	})
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	value := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "c", "k", value))
	value[2] = 'X'

	got, ok, err := s.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(got))

	got[2] = 'Y'
	again, _, _ := s.Get(ctx, "c", "k")
	assert.Equal(t, `{"a":1}`, string(again))
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "c", "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := string(rune('a'+w)) + string(rune('0'+i%10))
				assert.NoError(t, s.Set(ctx, "c", key, []byte(`1`)))
				_, _, err := s.Get(ctx, "c", key)
				assert.NoError(t, err)
				_, err = s.GetAll(ctx, "c")
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	all, err := s.GetAll(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, all, 80)
}

package counter

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_IncrementAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("first allocation yields 1 and then counts up", func(t *testing.T) {
		s := NewMemoryStore()
		key := Key{ModuleType: "COST", Year: 2024}
		for want := int64(1); want <= 5; want++ {
			got, err := s.IncrementAndGet(ctx, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := NewMemoryStore()
		cost := Key{ModuleType: "COST", Year: 2024}
		task := Key{ModuleType: "TASK", Year: 2024}
		nextYear := Key{ModuleType: "COST", Year: 2025}

		for i := 0; i < 3; i++ {
			_, err := s.IncrementAndGet(ctx, cost)
			require.NoError(t, err)
		}
		n, err := s.IncrementAndGet(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.IncrementAndGet(ctx, nextYear)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("cancelled context does not mutate", func(t *testing.T) {
		s := NewMemoryStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.IncrementAndGet(cctx, Key{ModuleType: "SEC", Year: 2025})
		require.ErrorIs(t, err, context.Canceled)

		_, err = s.Get(ctx, Key{ModuleType: "SEC", Year: 2025})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore_ConcurrentUnique(t *testing.T) {
	s := NewMemoryStore()
	key := Key{ModuleType: "TASK", Year: 2025}
	const n = 500

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.IncrementAndGet(context.Background(), key)
			if err != nil {
				t.Errorf("increment: %v", err)
				return
			}
			if _, loaded := seen.LoadOrStore(v, struct{}{}); loaded {
				t.Errorf("duplicate value %d", v)
			}
		}()
	}
	wg.Wait()

	for v := int64(1); v <= n; v++ {
		_, ok := seen.Load(v)
		assert.True(t, ok, "missing value %d", v)
	}
	rec, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, int64(n), rec.Value)
}

func TestMemoryStore_Inspect(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, k := range []Key{{"TASK", 2025}, {"COST", 2025}, {"COST", 2024}, {"COST", 2025}} {
		_, err := s.IncrementAndGet(ctx, k)
		require.NoError(t, err)
	}

	rec, err := s.Get(ctx, Key{ModuleType: "COST", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Value)
	assert.False(t, rec.CreatedAt.IsZero())

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, Key{"COST", 2024}, all[0].Key())
	assert.Equal(t, Key{"COST", 2025}, all[1].Key())
	assert.Equal(t, Key{"TASK", 2025}, all[2].Key())

	only2024, err := s.List(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, only2024, 1)
	assert.Equal(t, "COST", only2024[0].ModuleType)
}

package kv

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKVS(t *testing.T, store KVS[int64, orb.Point]) {
	t.Helper()

	_, ok := store.Get(1)
	assert.False(t, ok)

	store.Set(1, orb.Point{13.4, 52.5})
	store.Set(2, orb.Point{-0.94, 38.08})
	store.Set(1, orb.Point{13.5, 52.6})

	p, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, orb.Point{13.5, 52.6}, p)

	seen := map[int64]orb.Point{}
	store.Range(func(k int64, v orb.Point) bool {
		seen[k] = v
		return true
	})
	assert.Equal(t, map[int64]orb.Point{1: {13.5, 52.6}, 2: {-0.94, 38.08}}, seen)

	calls := 0
	store.Range(func(int64, orb.Point) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)

	require.NoError(t, store.Flush())
	require.NoError(t, store.Close())
}

func TestMutexMap(t *testing.T) {
	testKVS(t, NewMutexMap[int64, orb.Point]())
}

func TestXMap(t *testing.T) {
	testKVS(t, NewXMap[int64, orb.Point]())
}

func TestLRU(t *testing.T) {
	l, err := NewLRU[int64, orb.Point](16)
	require.NoError(t, err)
	testKVS(t, l)
}

func TestLevelPoints(t *testing.T) {
	store, err := OpenLevelPoints[int64](t.TempDir())
	require.NoError(t, err)
	testKVS(t, store)
}

func TestLevelPointsBatches(t *testing.T) {
	store, err := OpenLevelPoints[int64](t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	store.limit = 10

	for i := int64(0); i < 105; i++ {
		store.Set(i, orb.Point{float64(i), -float64(i)})
	}
	p, ok := store.Get(104)
	require.True(t, ok)
	assert.Equal(t, orb.Point{104, -104}, p)

	var keys []int64
	store.Range(func(k int64, _ orb.Point) bool {
		keys = append(keys, k)
		return true
	})
	require.Len(t, keys, 105)
	assert.IsIncreasing(t, keys)
}

func TestLRUEvicts(t *testing.T) {
	l, err := NewLRU[string, int](2)
	require.NoError(t, err)

	l.Set("a", 1)
	l.Set("b", 2)
	_, _ = l.Get("a")
	l.Set("c", 3)

	_, ok := l.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = l.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestXMapLoadOrComputeOnce(t *testing.T) {
	m := NewXMap[string, int]()
	var computed atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := m.LoadOrCompute("k", func() int {
				computed.Add(1)
				return 42
			})
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), computed.Load())
	assert.Equal(t, 1, m.Len())
}

func BenchmarkPointStores(b *testing.B) {
	b.Run("mutex", func(b *testing.B) {
		benchmarkStore(b, NewMutexMap[int64, orb.Point]())
	})
	b.Run("xmap", func(b *testing.B) {
		benchmarkStore(b, NewXMap[int64, orb.Point]())
	})
	b.Run("leveldb", func(b *testing.B) {
		store, err := OpenLevelPoints[int64](b.TempDir())
		if err != nil {
			b.Fatal(err)
		}
		benchmarkStore(b, store)
	})
}

func benchmarkStore(b *testing.B, store KVS[int64, orb.Point]) {
	defer store.Close()
	for i := 0; i < b.N; i++ {
		store.Set(int64(i), orb.Point{float64(i), float64(i)})
	}
	if err := store.Flush(); err != nil {
		b.Fatal(err)
	}
}

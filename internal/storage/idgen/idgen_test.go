package idgen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStartsAboveBaseline(t *testing.T) {
	g := New()
	assert.Equal(t, 1001, g.Next())
	assert.Equal(t, 1002, g.Next())
}

func TestSeedRaisesFloor(t *testing.T) {
	g := New()
	g.Seed(2500)
	assert.Equal(t, 2501, g.Next())
}

func TestSeedNeverLowersFloor(t *testing.T) {
	g := New()
	g.Seed(5000)
	g.Seed(10) // stale maximum must not roll ids back
	assert.Equal(t, 5001, g.Next())
}

func TestConcurrentNextIsUnique(t *testing.T) {
	const goroutines = 50
	const perGoroutine = 200

	g := New()
	var mu sync.Mutex
	seen := make(map[int]bool, goroutines*perGoroutine)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int, 0, perGoroutine)
			for j := 0; j < perGoroutine; j++ {
				ids = append(ids, g.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				require.False(t, seen[id], "id %d handed out twice", id)
				seen[id] = true
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
}

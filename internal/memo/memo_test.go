package memo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	hits, misses []string
	flushed      []int
}

func (o *recordingObserver) CacheHit(key string)          { o.hits = append(o.hits, key) }
func (o *recordingObserver) CacheMiss(key string)         { o.misses = append(o.misses, key) }
func (o *recordingObserver) CacheInvalidated(entries int) { o.flushed = append(o.flushed, entries) }

// TestGetComputesOnce verifies that two consecutive lookups return the same
// value and run the compute function exactly once.
func TestGetComputesOnce(t *testing.T) {
	c := New()
	calls := 0
	compute := func() []int {
		calls++
		return []int{1, 2, 3}
	}

	first := Load(c, "records", compute)
	second := Load(c, "records", compute)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	// Same backing array: the cached object itself is returned.
	assert.Same(t, &first[0], &second[0])
}

// TestKeysAreIndependent verifies that parameterized keys are cached
// separately.
func TestKeysAreIndependent(t *testing.T) {
	c := New()
	calls := map[string]int{}
	for _, key := range []string{"calendar:2024:3", "calendar:2024:4", "calendar:2024:3"} {
		Load(c, key, func() string {
			calls[key]++
			return key
		})
	}
	assert.Equal(t, map[string]int{"calendar:2024:3": 1, "calendar:2024:4": 1}, calls)
}

// TestInvalidateAllForcesRecompute verifies that a value is recomputed after
// invalidation and observes the new state.
func TestInvalidateAllForcesRecompute(t *testing.T) {
	c := New()
	volume := 1000.0
	compute := func() float64 { return volume }

	require.Equal(t, 1000.0, Load(c, "totals", compute))

	volume += 500
	assert.Equal(t, 1000.0, Load(c, "totals", compute), "stale until invalidated")

	c.InvalidateAll()
	assert.Equal(t, 1500.0, Load(c, "totals", compute))
}

// TestNilValueIsCached verifies that a computed nil is remembered rather than
// recomputed on every lookup.
func TestNilValueIsCached(t *testing.T) {
	c := New()
	calls := 0
	for range 3 {
		c.Get("last", func() any {
			calls++
			return nil
		})
	}
	assert.Equal(t, 1, calls)
}

// TestStatsAndObserver verifies counters and observer callbacks.
func TestStatsAndObserver(t *testing.T) {
	obs := &recordingObserver{}
	c := New(WithObserver(obs))

	Load(c, "a", func() int { return 1 })
	Load(c, "a", func() int { return 1 })
	Load(c, "b", func() int { return 2 })
	c.InvalidateAll()

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(2), st.Misses)
	assert.Equal(t, uint64(1), st.Invalidations)
	assert.Equal(t, 0, st.Entries)

	assert.Equal(t, []string{"a"}, obs.hits)
	assert.Equal(t, []string{"a", "b"}, obs.misses)
	assert.Equal(t, []int{2}, obs.flushed)
}

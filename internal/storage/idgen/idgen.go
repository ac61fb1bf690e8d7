// Package idgen provides the process-wide monotonic identifier source
// used by every store.
//
// Identifiers must survive restarts without colliding: each store seeds
// its generator at load time with the maximum id found in its snapshot
// file, so freshly generated ids are always greater than anything already
// persisted.
package idgen

import "sync/atomic"

// baseline is the floor a never-seeded generator counts up from; the
// first Next() on a fresh generator returns baseline+1.
const baseline = 1000

// Generator hands out strictly increasing integer ids. Safe for
// concurrent use: two concurrent Next calls never return the same value.
type Generator struct {
	last atomic.Int64
}

// New returns a generator starting from the fixed baseline.
func New() *Generator {
	g := &Generator{}
	g.last.Store(baseline)
	return g
}

// Next returns a value strictly greater than any previously returned
// value and any value supplied to Seed.
func (g *Generator) Next() int {
	return int(g.last.Add(1))
}

// Seed raises the generator's floor to maxObserved. It never lowers it,
// so seeding with a stale maximum cannot cause id reuse. Called once per
// store at load time.
func (g *Generator) Seed(maxObserved int) {
	for {
		cur := g.last.Load()
		if int64(maxObserved) <= cur {
			return
		}
		if g.last.CompareAndSwap(cur, int64(maxObserved)) {
			return
		}
	}
}

// Package priority implements the priority coordinator: the upkeep
// thread's lock-ordered barrier, its stale-reap and stats-rollover
// scheduling, and jitter supervision. It is the only caller allowed
// to perform structural mutation on an *engine.Table (reap,
// quick-cache resize) or finish a pending registry swap.
package priority

import "sync"

// Barrier holds one mutex per designated thread: misc, apiUpdate,
// globeJson, globeBin, json, decode. Each of those threads
// locks its own mutex while doing its normal publish/ingest work; the
// upkeep thread acquires all six, always in this fixed order, before
// any destructive table mutation, and releases them in reverse order.
// Acquiring them in a fixed order is what prevents deadlock against a
// thread that might (in a future extension) need more than one.
type Barrier struct {
	Misc      sync.Mutex
	APIUpdate sync.Mutex
	GlobeJSON sync.Mutex
	GlobeBin  sync.Mutex
	JSON      sync.Mutex
	Decode    sync.Mutex
}

// locksInOrder returns the six mutexes in the fixed acquisition order.
func (b *Barrier) locksInOrder() [6]sync.Locker {
	return [6]sync.Locker{&b.Misc, &b.APIUpdate, &b.GlobeJSON, &b.GlobeBin, &b.JSON, &b.Decode}
}

// Acquire locks all six in fixed order. Callers must call Release when
// done; held only for the duration of one upkeep tick's destructive
// work.
func (b *Barrier) Acquire() {
	for _, l := range b.locksInOrder() {
		l.Lock()
	}
}

// Release unlocks all six in reverse order.
func (b *Barrier) Release() {
	locks := b.locksInOrder()
	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].Unlock()
	}
}

// WithBarrier runs fn with the barrier held, always releasing even if
// fn panics.
func (b *Barrier) WithBarrier(fn func()) {
	b.Acquire()
	defer b.Release()
	fn()
}

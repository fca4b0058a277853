package engine

import (
	"sync"
	"time"
)

// Table is the process-wide aircraft table, a single engine value
// owned by the top-level run loop. It composes the hash index, quick
// cache and active set; the table exclusively owns every Aircraft,
// the quick cache and active set hold only weak references.
//
// Insertion (GetOrCreate) is lock-free with respect to readers and to
// insertions of other addresses. Structural mutation (removal, quick
// cache resize) is only ever performed by the caller while holding
// the priority barrier (internal/priority); Table itself does not
// acquire that barrier, it only exposes the operations that require
// it.
type Table struct {
	idx   *index
	cache *quickCache
	cfg   ReliabilityConfig

	// cacheMu guards quick cache structural changes (resize) and the
	// active set, both of which are barrier-only operations. It is not
	// held on the GetOrCreate/get fast paths.
	cacheMu sync.Mutex
	active  *activeSet
}

// NewTable creates a table sized for 1<<hashBits buckets and a quick
// cache sized for 1<<quickBits (+stride) slots.
func NewTable(hashBits, quickBits int, cfg ReliabilityConfig) *Table {
	return &Table{
		idx:    newIndex(hashBits),
		cache:  newQuickCache(quickBits),
		cfg:    cfg.Clamped(),
		active: newActiveSet(),
	}
}

// Get performs the two-tier lookup: quick cache first, main chain on
// a miss. Lock-free; never creates and never writes, so it is safe
// from any reader thread (cache population is the decoder path's
// job, in GetOrCreate).
func (t *Table) Get(addr Address) *Aircraft {
	if a := t.cache.get(addr); a != nil {
		return a
	}
	return t.idx.get(addr)
}

// GetOrCreate must be called only from decoder threads. Races between
// two decoders for the same address are resolved by a CAS retry loop
// on the bucket head so the operation is linearisable per address:
// exactly one record is ever visible for a given address.
func (t *Table) GetOrCreate(addr Address, now time.Time) *Aircraft {
	if a := t.cache.get(addr); a != nil {
		return a
	}
	if a := t.idx.get(addr); a != nil {
		t.cache.add(addr, a)
		return a
	}

	candidate := newAircraft(addr, now)
	for {
		head := t.idx.loadHead(addr)
		for p := head; p != nil; p = p.bucketNext {
			if p.Address == addr {
				t.cache.add(addr, p)
				return p
			}
		}
		if t.idx.casInsertHead(candidate, head) {
			t.cache.add(addr, candidate)
			return candidate
		}
		// lost the race: another thread changed the head, retry.
	}
}

// Reap removes a from the table: active set, globe grid, quick cache,
// bucket chain. Caller must hold the priority barrier.
func (t *Table) Reap(a *Aircraft) {
	t.cacheMu.Lock()
	t.active.remove(a)
	a.globeIndex = globeIndexSentinel
	t.cache.remove(a.Address)
	t.cacheMu.Unlock()

	t.idx.remove(a)
	a.trace = nil
}

// Activate ensures a is on the active set. Safe from any thread; the
// set itself is guarded by cacheMu, though removal ordering against
// publishers is still the barrier's job (Reap is barrier-only).
func (t *Table) Activate(a *Aircraft) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.active.add(a)
}

func (t *Table) Deactivate(a *Aircraft) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	t.active.remove(a)
}

// ActiveSnapshot returns a stable copy of the currently active
// aircraft, safe to iterate without racing barrier-only mutation.
func (t *Table) ActiveSnapshot() []*Aircraft {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	return t.active.snapshot()
}

// ActiveLen reports the number of active aircraft, used by the quick
// cache auto-resize policy.
func (t *Table) ActiveLen() int {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	return t.active.len()
}

// ForEach walks every bucket without locking; only safe for read-only
// traversal that tolerates concurrent insertion (new aircraft may or
// may not be observed) and must not be called concurrently with
// Reap/ResizeQuickCache (those require the barrier).
func (t *Table) ForEach(fn func(*Aircraft)) {
	t.idx.forEach(fn)
}

// ForEachRange walks buckets [from, to), the trace writer's
// partitioning primitive. fn returns false to stop early.
func (t *Table) ForEachRange(from, to int, fn func(*Aircraft) bool) {
	t.idx.forEachRange(from, to, fn)
}

// BucketCount returns 1 << acHashBits.
func (t *Table) BucketCount() int {
	return t.idx.bucketCount()
}

// MaybeResizeQuickCache grows or shrinks the quick cache based on
// active-set occupancy. Caller must hold the priority barrier; called
// once per upkeep tick.
func (t *Table) MaybeResizeQuickCache() {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()

	activeLen := t.active.len()
	switch {
	case t.cache.shouldGrow(activeLen):
		t.rebuildQuickCacheLocked(t.cache.bits + 1)
	case t.cache.shouldShrink(activeLen):
		t.rebuildQuickCacheLocked(t.cache.bits - 1)
	}
}

func (t *Table) rebuildQuickCacheLocked(newBits int) {
	fresh := newQuickCache(newBits)
	for i := range t.active.items {
		a := t.active.items[i]
		fresh.add(a.Address, a)
	}
	t.cache = fresh
}

// Reliability exposes the table's position-reliability configuration
// to callers applying position updates.
func (t *Table) Reliability() ReliabilityConfig {
	return t.cfg
}

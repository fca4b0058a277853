package priority

import (
	"fmt"
	"sync"
	"time"

	"readsb-core/internal/debug"
	"readsb-core/internal/engine"
	"readsb-core/internal/registry"
)

// statsInterval and removeStaleInterval are the coordinator's two
// scheduled deadlines. 5s keeps reap latency well under any
// category's expiry.
const (
	statsInterval        = 10 * time.Second
	removeStaleInterval  = 5 * time.Second
	jitterFatalThreshold = 60 * time.Second
	jitterWarnThreshold  = 150 * time.Millisecond
	jitterWarnRateLimit  = 30 * time.Second
)

// StateLoader is the optional hook for a pending replace-state blob
// load. internal/state implements it; the coordinator only needs to
// know whether a load is pending and how to perform it.
type StateLoader interface {
	Pending() bool
	Load(now time.Time) error
}

// Fatal is invoked when jitter supervision detects a tick delayed
// beyond jitterFatalThreshold; the caller is expected to begin orderly
// shutdown.
type Fatal func(reason string)

// Coordinator drives the upkeep thread: its scheduling loop, the
// barrier protocol, stale reap and stats rollover.
type Coordinator struct {
	Table    *engine.Table
	Registry *registry.Database
	Barrier  *Barrier
	Stats    *Stats
	State    StateLoader // nil if no state persistence is wired
	OnFatal  Fatal

	// OnStateLoaded fires after a successful replace-state blob load,
	// while the barrier is still held. The trace writer uses it to
	// inhibit persists briefly so the freshly loaded history isn't
	// clobbered.
	OnStateLoaded func(now time.Time)

	nextStatsUpdate time.Time
	nextRemoveStale time.Time

	lastWarn   sync.Mutex
	lastWarnAt time.Time

	reapedThisTick uint64
}

// NewCoordinator wires a coordinator against its table, registry and
// barrier. now seeds the first scheduled deadlines.
func NewCoordinator(table *engine.Table, db *registry.Database, barrier *Barrier, stats *Stats, now time.Time) *Coordinator {
	return &Coordinator{
		Table:           table,
		Registry:        db,
		Barrier:         barrier,
		Stats:           stats,
		nextStatsUpdate: now.Add(statsInterval),
		nextRemoveStale: now.Add(removeStaleInterval),
	}
}

// NextWait computes the time until the nearer of the two scheduled
// deadlines, or 0 if a state-blob load is pending.
func (c *Coordinator) NextWait(now time.Time) time.Duration {
	if c.State != nil && c.State.Pending() {
		return 0
	}
	wait := c.nextStatsUpdate.Sub(now)
	if d := c.nextRemoveStale.Sub(now); d < wait {
		wait = d
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Tick runs one upkeep cycle under the barrier. scheduledAt is when
// this tick was meant to fire (used for jitter supervision); now is
// the actual fire time.
func (c *Coordinator) Tick(scheduledAt, now time.Time) {
	c.superviseJitter(scheduledAt, now)

	c.Barrier.WithBarrier(func() {
		c.runUnderBarrier(now)
	})
}

func (c *Coordinator) runUnderBarrier(now time.Time) {
	// A pending replace-state blob load takes precedence over all
	// other destructive work this tick.
	if c.State != nil && c.State.Pending() {
		if err := c.State.Load(now); err != nil {
			debug.Log("priority: state blob load failed: %v", err)
		} else if c.OnStateLoaded != nil {
			c.OnStateLoaded(now)
		}
		return
	}

	// Finish a pending registry swap, then re-resolve every aircraft's
	// registry fields from the newly installed generation.
	if c.Registry != nil {
		if c.Registry.FinishSwap() {
			c.Table.ForEach(func(a *engine.Aircraft) {
				registry.ApplyToAircraft(c.Registry, a)
			})
		}
	}

	// Stale reap and stats rollover each fire on their own deadline;
	// when both land on the same tick, both run.
	if !now.Before(c.nextRemoveStale) {
		c.reapStale(now)
		c.nextRemoveStale = now.Add(removeStaleInterval)
		c.Table.MaybeResizeQuickCache()
	}

	if !now.Before(c.nextStatsUpdate) {
		c.Stats.Rollover()
		c.nextStatsUpdate = now.Add(statsInterval)
	}
}

// expiryForCategory is the category-specific expiry used by the stale
// sweep.
func expiryForCategory(a *engine.Aircraft) time.Duration {
	switch a.AirGround {
	case engine.AirGroundAirborne:
		return engine.AirborneExpireMS
	case engine.AirGroundGround:
		return engine.SurfaceExpireMS
	default:
		return engine.DefaultExpireMS
	}
}

// reapStale walks every bucket, collects records past their category
// expiry, then reaps them. The candidates are collected before any
// mutation because forEach's chain walk follows bucketNext pointers
// that Reap clears; mutating mid-walk would truncate the chain.
func (c *Coordinator) reapStale(now time.Time) {
	cfg := c.Table.Reliability()
	var stale []*engine.Aircraft
	c.Table.ForEach(func(a *engine.Aircraft) {
		if now.Sub(a.Seen) > expiryForCategory(a) {
			stale = append(stale, a)
			return
		}
		// Surviving records still have their position reliability
		// withdrawn once the persistence window has elapsed.
		a.DecayReliability(now, cfg)
	})

	for _, a := range stale {
		c.Table.Reap(a)
	}
	c.reapedThisTick = uint64(len(stale))
	c.Stats.Add(Counters{Reaped: c.reapedThisTick, TrackedAircraft: c.Table.ActiveLen()})
}

// superviseJitter: a tick delayed beyond jitterFatalThreshold is
// fatal; one beyond jitterWarnThreshold is logged, rate-limited to
// once per jitterWarnRateLimit.
func (c *Coordinator) superviseJitter(scheduledAt, now time.Time) {
	delay := now.Sub(scheduledAt)
	if delay < 0 {
		delay = 0
	}

	if delay > jitterFatalThreshold {
		if c.OnFatal != nil {
			c.OnFatal(fmt.Sprintf("priority: upkeep tick delayed %s, exceeding fatal threshold %s", delay, jitterFatalThreshold))
		}
		return
	}

	if delay <= jitterWarnThreshold {
		return
	}

	c.lastWarn.Lock()
	defer c.lastWarn.Unlock()
	if now.Sub(c.lastWarnAt) < jitterWarnRateLimit {
		return
	}
	c.lastWarnAt = now
	debug.Log("priority: upkeep tick delayed %s (> %s)", delay, jitterWarnThreshold)
}

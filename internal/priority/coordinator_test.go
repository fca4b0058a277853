package priority

import (
	"testing"
	"time"

	"readsb-core/internal/engine"
	"readsb-core/internal/registry"
)

func newTestCoordinator(now time.Time) (*Coordinator, *engine.Table) {
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	db := registry.NewDatabase("")
	barrier := &Barrier{}
	stats := &Stats{}
	return NewCoordinator(table, db, barrier, stats, now), table
}

func TestStaleReapRemovesExpiredRecords(t *testing.T) {
	now := time.Unix(100000, 0)
	c, table := newTestCoordinator(now)

	stale := table.GetOrCreate(engine.Address(1), now.Add(-400*time.Second))
	stale.AirGround = engine.AirGroundAirborne
	stale.Seen = now.Add(-400 * time.Second)

	fresh := table.GetOrCreate(engine.Address(2), now)
	fresh.Seen = now

	c.reapStale(now)

	if got := table.Get(engine.Address(1)); got != nil {
		t.Fatalf("expected the stale airborne record to be reaped")
	}
	if got := table.Get(engine.Address(2)); got == nil {
		t.Fatalf("expected the fresh record to survive the sweep")
	}
}

func TestStaleReapRespectsCategoryExpiry(t *testing.T) {
	now := time.Unix(100000, 0)
	c, table := newTestCoordinator(now)

	// Surface expiry is 60s; 90s past seen should be reaped.
	surface := table.GetOrCreate(engine.Address(3), now)
	surface.AirGround = engine.AirGroundGround
	surface.Seen = now.Add(-90 * time.Second)

	c.reapStale(now)

	if got := table.Get(engine.Address(3)); got != nil {
		t.Fatalf("expected the surface record past its 60s expiry to be reaped")
	}
}

func TestStaleSweepWithdrawsPositionReliability(t *testing.T) {
	now := time.Unix(100000, 0)
	c, table := newTestCoordinator(now)

	a := table.GetOrCreate(engine.Address(5), now.Add(-250*time.Second))
	a.UpdatePosition(50, 8, now.Add(-250*time.Second), table.Reliability())
	a.Seen = now // fresh enough to survive the sweep itself

	if !a.PosReliable {
		t.Fatalf("expected position reliable after one fix with the default config")
	}

	c.reapStale(now)

	if table.Get(engine.Address(5)) == nil {
		t.Fatalf("expected the fresh record to survive the sweep")
	}
	if a.PosReliable {
		t.Fatalf("expected reliability withdrawn once the fix aged past persistence*stale")
	}
}

func TestNextWaitIsZeroWhenStateLoadPending(t *testing.T) {
	now := time.Unix(0, 0)
	c, _ := newTestCoordinator(now)
	c.State = fakeStateLoader{pending: true}

	if got := c.NextWait(now); got != 0 {
		t.Fatalf("expected zero wait with a pending state load, got %s", got)
	}
}

type fakeStateLoader struct{ pending bool }

func (f fakeStateLoader) Pending() bool            { return f.pending }
func (f fakeStateLoader) Load(now time.Time) error { return nil }

func TestJitterFatalOnLongDelay(t *testing.T) {
	now := time.Unix(0, 0)
	c, _ := newTestCoordinator(now)

	var reason string
	c.OnFatal = func(r string) { reason = r }

	c.superviseJitter(now, now.Add(90*time.Second))
	if reason == "" {
		t.Fatalf("expected OnFatal to fire for a 90s delayed tick")
	}
}

func TestStatsRolloverAccumulatesWindows(t *testing.T) {
	s := &Stats{}
	s.Add(Counters{Messages: 10})
	s.Rollover()
	s.Add(Counters{Messages: 5})
	s.Rollover()

	snap := s.Snapshot()
	if snap.AllTime.Messages != 15 {
		t.Fatalf("expected all-time messages 15, got %d", snap.AllTime.Messages)
	}
	if snap.Min1.Messages != 15 {
		t.Fatalf("expected 1 min window to include both rollovers, got %d", snap.Min1.Messages)
	}
}

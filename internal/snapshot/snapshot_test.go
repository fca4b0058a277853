package snapshot

import (
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func TestProjectHidesStaleCallsign(t *testing.T) {
	now := time.Unix(1000, 0)
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	a := table.GetOrCreate(engine.Address(0x1), now)

	a.Callsign = "DLH123"
	a.CallsignValidity = engine.Validity{Timestamp: now.Add(-300 * time.Second), StaleMS: 60 * time.Second}

	row := Project(a, now, table.Reliability())
	if row.Flight != "" {
		t.Fatalf("expected stale callsign hidden from the JSON row, got %q", row.Flight)
	}
}

func TestProjectIncludesPositionWhenReliable(t *testing.T) {
	now := time.Unix(2000, 0)
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	a := table.GetOrCreate(engine.Address(0x2), now)
	cfg := table.Reliability()

	a.UpdatePosition(50.0, 8.0, now, cfg)
	a.UpdatePosition(50.0001, 8.0001, now.Add(time.Second), cfg)

	row := Project(a, now.Add(time.Second), cfg)
	if row.Lat == 0 && row.Lon == 0 {
		t.Fatalf("expected a nonzero published position once the fix is reliable")
	}
}

func TestProjectAllOnlyIncludesActiveAircraft(t *testing.T) {
	now := time.Unix(3000, 0)
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	a := table.GetOrCreate(engine.Address(0x3), now)
	table.Activate(a)
	table.GetOrCreate(engine.Address(0x4), now) // never activated

	scan := ProjectAll(table, 42, now)
	if len(scan.Aircraft) != 1 {
		t.Fatalf("expected only the active aircraft in the scan, got %d", len(scan.Aircraft))
	}
	if scan.Messages != 42 {
		t.Fatalf("expected the total message count preserved, got %d", scan.Messages)
	}
}

func TestCategoryStringFormat(t *testing.T) {
	if got := categoryString(engine.Category(0x03)); got != "A3" {
		t.Fatalf("expected category 0x03 to format as A3, got %q", got)
	}
}

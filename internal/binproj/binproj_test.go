package binproj

import (
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func newTestAircraft(addr engine.Address, now time.Time) *engine.Aircraft {
	// engine.Aircraft has no exported constructor for test packages
	// outside the engine package; build one through a table instead,
	// mirroring how every other package in this repo obtains records.
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	return table.GetOrCreate(addr, now)
}

func TestBinaryProjectionScaledPosition(t *testing.T) {
	now := time.Unix(1000, 0)
	a := newTestAircraft(engine.Address(0xAC82EC), now)
	cfg := engine.ReliabilityConfig{JSONReliable: 2, PositionPersistence: 4, MaxImpliedSpeedKt: 1200}.Clamped()

	a.UpdatePosition(52.3, 13.4, now, cfg)
	a.UpdatePosition(52.3001, 13.4001, now.Add(2*time.Second), cfg)

	row := Project(a, now.Add(2*time.Second), Config{Reliability: cfg})
	if !row.PositionValid {
		t.Fatalf("expected position_valid=1")
	}
	if row.Lat != 52300100 { // second fix's reliable value, in microdegrees
		t.Fatalf("expected lat scaled from the reliable fix, got %d", row.Lat)
	}
}

func TestCallsignStaleZeroed(t *testing.T) {
	now := time.Unix(10000, 0)
	a := newTestAircraft(engine.Address(0x1), now)

	arrived := now.Add(-300 * time.Second)
	a.Callsign = "DLH123  "
	a.CallsignValidity = engine.Validity{Timestamp: arrived, StaleMS: 60 * time.Second}

	row := Project(a, now, Config{})
	if row.CallsignValid {
		t.Fatalf("expected callsign_valid=0 for a callsign stale by 300s against a 60s stale interval")
	}
	for _, b := range row.Callsign {
		if b != 0 {
			t.Fatalf("expected the callsign bytes zeroed when invalid, got %v", row.Callsign)
		}
	}
	if a.Callsign != "DLH123  " {
		t.Fatalf("projection must not mutate the stored callsign, got %q", a.Callsign)
	}
}

// A position past its stale interval clears the valid bit but keeps
// reporting how long ago the last reliable fix was seen.
func TestStalePositionStillReportsSeenPos(t *testing.T) {
	now := time.Unix(30000, 0)
	a := newTestAircraft(engine.Address(0x5), now)
	cfg := engine.DefaultReliabilityConfig()

	fixAt := now.Add(-180 * time.Second)
	a.UpdatePosition(52.3, 13.4, fixAt, cfg)

	row := Project(a, now, Config{Reliability: cfg})
	if row.PositionValid {
		t.Fatalf("expected position invalid once past the stale interval")
	}
	if row.SeenPosCentiS != 18000 {
		t.Fatalf("expected seen_pos of 18000 centiseconds, got %d", row.SeenPosCentiS)
	}
}

func TestVersionSentinelRewrite(t *testing.T) {
	now := time.Now()
	a := newTestAircraft(engine.Address(0x2), now)
	// newAircraft defaults ADSBVersion etc. to -1.
	row := Project(a, now, Config{})
	if row.ADSBVersion != versionSentinel {
		t.Fatalf("expected unknown version (-1) rewritten to %d, got %d", versionSentinel, row.ADSBVersion)
	}
}

// TestStaleTrackZeroesTrackRateAndRoll guards against a nonzero
// "invalid" leak: once TrackValidity goes stale, TrackRate and Roll
// must zero along with TrackValid, not just clear their valid bits
// while keeping a stale scaled value.
func TestStaleTrackZeroesTrackRateAndRoll(t *testing.T) {
	now := time.Unix(20000, 0)
	a := newTestAircraft(engine.Address(0x4), now)

	arrived := now.Add(-300 * time.Second)
	a.TrackRate = 5.0
	a.Roll = -12.0
	a.TrackValidity = engine.Validity{Timestamp: arrived, StaleMS: 60 * time.Second}

	row := Project(a, now, Config{})
	if row.TrackValid || row.TrackRateValid || row.RollValid {
		t.Fatalf("expected track/track_rate/roll all invalid once stale")
	}
	if row.TrackRate != 0 {
		t.Fatalf("expected track_rate zeroed when invalid, got %d", row.TrackRate)
	}
	if row.Roll != 0 {
		t.Fatalf("expected roll zeroed when invalid, got %d", row.Roll)
	}
}

func TestSignalScaling(t *testing.T) {
	if got := scaleSignal(-50); got != 0 {
		t.Fatalf("expected floor dBFS to scale to 0, got %d", got)
	}
	if got := scaleSignal(0); got != 255 {
		t.Fatalf("expected 0 dBFS (the ceiling) to scale to 255, got %d", got)
	}
}

func TestProjectionIsDeterministicForAQuiescentRecord(t *testing.T) {
	now := time.Unix(5000, 0)
	a := newTestAircraft(engine.Address(0x3), now)
	a.BaroAlt = 35000
	a.BaroAltValidity = engine.Validity{Timestamp: now, StaleMS: 60 * time.Second}

	r1 := Project(a, now, Config{})
	r2 := Project(a, now, Config{})
	if r1 != r2 {
		t.Fatalf("expected deterministic projection for the same (record, now)")
	}
}

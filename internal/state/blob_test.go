package state

import (
	"path/filepath"
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func TestDumpAndLoadRoundTrip(t *testing.T) {
	now := time.Unix(50000, 0)
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())

	a := table.GetOrCreate(engine.Address(0x4241F1), now)
	a.Callsign = "DLH9LW"
	a.CallsignValidity = engine.Validity{Timestamp: now, StaleMS: 60 * time.Second}
	a.BaroAlt = 37000
	a.BaroAltValidity = engine.Validity{Timestamp: now, StaleMS: 60 * time.Second}
	a.Signal.Add(-20)
	a.Signal.Add(-22)
	a.RecordTracePoint(engine.TracePoint{Timestamp: now, Lat: 50, Lon: 8})

	dir := t.TempDir()
	if err := Dump(table, dir, nil); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	idx := blobIndex(a.Address)
	name := blobName(idx)
	matches, err := filepathGlob(dir, name)
	if err != nil || len(matches) == 0 {
		t.Fatalf("expected blob file %s to exist: matches=%v err=%v", name, matches, err)
	}

	table2 := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	if err := LoadOne(table2, dir, name, now); err != nil {
		t.Fatalf("LoadOne: %v", err)
	}

	got := table2.Get(a.Address)
	if got == nil {
		t.Fatalf("expected the loaded record to be present")
	}
	if got.Callsign != "DLH9LW" {
		t.Fatalf("expected callsign restored, got %q", got.Callsign)
	}
	if got.BaroAlt != 37000 {
		t.Fatalf("expected baro alt restored, got %d", got.BaroAlt)
	}
	if got.Signal.Count() != 2 {
		t.Fatalf("expected signal ring restored with 2 samples, got %d", got.Signal.Count())
	}
}

func TestDumpOnlySelectedBlob(t *testing.T) {
	now := time.Unix(1, 0)
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	table.GetOrCreate(engine.Address(0x000001), now)
	table.GetOrCreate(engine.Address(0x000002), now)

	dir := t.TempDir()
	only := blobIndex(engine.Address(0x000001))
	if err := Dump(table, dir, &only); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	matches, err := filepathGlob(dir, blobName(only))
	if err != nil || len(matches) == 0 {
		t.Fatalf("expected selected blob present: matches=%v err=%v", matches, err)
	}
}

func filepathGlob(dir, name string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, name))
}

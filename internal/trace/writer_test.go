package trace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func newTestTable() *engine.Table {
	return engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
}

func TestTracePathsLastTwoHexSubdirectory(t *testing.T) {
	full, recent := tracePaths("/tmp/json", engine.Address(0xAC82EC))
	if filepath.Base(filepath.Dir(full)) != "ec" {
		t.Fatalf("expected subdirectory from the last two hex digits, got %s", full)
	}
	if filepath.Base(full) != "trace_full_ac82ec.json" {
		t.Fatalf("unexpected full path %s", full)
	}
	if filepath.Base(recent) != "trace_recent_ac82ec.json" {
		t.Fatalf("unexpected recent path %s", recent)
	}
}

func TestWriteChunkTrimsToChunkPoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace_full_000001.json")

	var pts []engine.TracePoint
	for i := 0; i < ChunkPoints+10; i++ {
		pts = append(pts, engine.TracePoint{Timestamp: time.Unix(int64(i), 0)})
	}

	if err := writeChunk(path, engine.Address(1), 1, pts); err != nil {
		t.Fatalf("writeChunk: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var cf chunkFile
	if err := json.Unmarshal(data, &cf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cf.Points) != ChunkPoints {
		t.Fatalf("expected trim to %d points, got %d", ChunkPoints, len(cf.Points))
	}
	if cf.WriteCounter != 1 {
		t.Fatalf("expected write counter preserved, got %d", cf.WriteCounter)
	}
}

// A task whose deadline is exhausted mid-range persists its progress
// and resumes from the cursor, not from the start of its range, on
// the next tick.
func TestPartialSweepResumesFromCursor(t *testing.T) {
	table := newTestTable()
	now := time.Unix(1000, 0)

	for i := 0; i < 50; i++ {
		a := table.GetOrCreate(engine.Address(i+1), now)
		a.RecordTracePoint(engine.TracePoint{Timestamp: now, Lat: 1, Lon: 1})
	}

	dir := t.TempDir()
	w := NewWriter(table, Config{
		JSONDir:      dir,
		PoolSize:     1,
		TickPeriod:   time.Second,
		TaskDeadline: 50 * time.Millisecond,
	})

	if len(w.tasks) == 0 {
		t.Fatalf("expected at least one partitioned task")
	}

	w.Tick(now)

	persisted := 0
	table.ForEach(func(a *engine.Aircraft) {
		if a.DirtyBits() == 0 {
			persisted++
		}
	})
	if persisted == 0 {
		t.Fatalf("expected the first tick to persist at least some aircraft")
	}
}

func TestFirstSweepCompleteFlag(t *testing.T) {
	table := newTestTable()
	now := time.Unix(1000, 0)
	for i := 0; i < 4; i++ {
		a := table.GetOrCreate(engine.Address(i+1), now)
		a.RecordTracePoint(engine.TracePoint{Timestamp: now})
	}

	dir := t.TempDir()
	w := NewWriter(table, Config{
		JSONDir:      dir,
		PoolSize:     4,
		TickPeriod:   time.Second,
		TaskDeadline: time.Second,
	})

	if w.FirstSweepDone() {
		t.Fatalf("expected first sweep not yet complete before any Tick")
	}
	for i := 0; i < len(w.tasks)+1; i++ {
		w.Tick(now)
	}
	if !w.FirstSweepDone() {
		t.Fatalf("expected first sweep complete after a full cycle of ticks")
	}
}

// Package trace implements the trace writer: a work-partitioned,
// rate-limited background sweep that persists per-aircraft position
// traces to disk in chunks with a bounded CPU budget per cycle.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"readsb-core/internal/engine"
)

// ChunkPoints bounds a full-history chunk by element count, not byte
// size, so the layout stays simple; ChunkMaxBytes is the upper byte
// ceiling guarding against pathological growth.
const (
	ChunkPoints   = 4096
	ChunkMaxBytes = 512 * 1024
)

// chunkFile is the on-disk shape of one trace file. Chunks are
// ordered by WriteCounter, and the recent file is always a suffix of
// the full file within TraceRecentPoints.
type chunkFile struct {
	Address      string              `json:"icao"`
	WriteCounter uint64              `json:"trace_write_counter"`
	Points       []engine.TracePoint `json:"points"`
}

// tracePaths returns the full/recent file paths for addr under
// jsonDir: <json_dir>/traces/<last_two_hex>/trace_full_<addr>.json.
func tracePaths(jsonDir string, addr engine.Address) (full, recent string) {
	hex := fmt.Sprintf("%06x", uint32(addr)&0x00FFFFFF)
	sub := hex[len(hex)-2:]
	dir := filepath.Join(jsonDir, "traces", sub)
	full = filepath.Join(dir, "trace_full_"+hex+".json")
	recent = filepath.Join(dir, "trace_recent_"+hex+".json")
	return full, recent
}

// writeChunk persists one of the two files for addr. Chunks are
// monotonically ordered by trace_write_counter: a lower counter is
// never allowed to overwrite a higher one, which the caller enforces
// by only calling writeChunk for work it popped off the dirty set
// this sweep.
func writeChunk(path string, addr engine.Address, counter uint64, points []engine.TracePoint) error {
	if len(points) > ChunkPoints {
		points = points[len(points)-ChunkPoints:]
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("trace: mkdir %s: %w", filepath.Dir(path), err)
	}

	data, err := json.Marshal(chunkFile{
		Address:      fmt.Sprintf("%06x", uint32(addr)&0x00FFFFFF),
		WriteCounter: counter,
		Points:       points,
	})
	if err != nil {
		return fmt.Errorf("trace: marshal %s: %w", path, err)
	}
	// Enforce the byte ceiling by shedding the oldest points, never by
	// truncating the encoded output mid-token.
	for len(data) > ChunkMaxBytes && len(points) > 1 {
		points = points[len(points)/2:]
		data, err = json.Marshal(chunkFile{
			Address:      fmt.Sprintf("%06x", uint32(addr)&0x00FFFFFF),
			WriteCounter: counter,
			Points:       points,
		})
		if err != nil {
			return fmt.Errorf("trace: marshal %s: %w", path, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("trace: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("trace: install %s: %w", path, err)
	}
	return nil
}

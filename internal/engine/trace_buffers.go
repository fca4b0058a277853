package engine

import "time"

// TracePoint is one position-history sample. The trace writer
// (internal/trace) is responsible for chunking and serialising these;
// the engine only buffers them.
type TracePoint struct {
	Timestamp time.Time `json:"ts"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	BaroAlt   int       `json:"alt_baro"`
	GS        float64   `json:"gs"`
	Track     float64   `json:"track"`
}

// TraceRecentPoints bounds the "recent" tail buffer; the recent tail
// is always a suffix of the full history within this many points.
const TraceRecentPoints = 256

// traceBuffers holds the two position-history buffers: "recent" (a
// bounded suffix) and "full" (the complete history since the aircraft
// was first seen today). Only ever touched by the decoder thread that
// owns this aircraft's updates and by the trace writer under its own
// dirty-bit protocol; never mutated under the priority barrier.
type traceBuffers struct {
	recent []TracePoint
	full   []TracePoint
}

// RecordTracePoint appends a new sample to both the full history and
// the bounded recent tail, and marks the record dirty so the trace
// writer picks it up on its next sweep.
func (a *Aircraft) RecordTracePoint(tp TracePoint) {
	if a.trace == nil {
		a.trace = &traceBuffers{}
	}
	a.trace.full = append(a.trace.full, tp)
	a.trace.recent = append(a.trace.recent, tp)
	if len(a.trace.recent) > TraceRecentPoints {
		a.trace.recent = a.trace.recent[len(a.trace.recent)-TraceRecentPoints:]
	}
	a.TraceDirty |= WRECENT | WMEM
	a.TraceWriteCounter++
}

// TracePoints returns the current recent and full buffers. The
// returned slices are owned by the aircraft and must be treated as
// read-only by callers (they may be reallocated on the next
// RecordTracePoint).
func (a *Aircraft) TracePoints() (recent, full []TracePoint) {
	if a.trace == nil {
		return nil, nil
	}
	return a.trace.recent, a.trace.full
}

// DirtyBits returns the current write-dirty bitmap (WRECENT | WMEM).
func (a *Aircraft) DirtyBits() uint8 {
	return a.TraceDirty
}

// ClearDirty clears the given dirty bits and, if this is the
// aircraft's first successful persist, sets InitialTraceWriteDone.
func (a *Aircraft) ClearDirty(bits uint8) {
	a.TraceDirty &^= bits
	a.InitialTraceWriteDone = true
}

// WriteCounter returns the monotonically increasing trace write
// counter: a chunk persisted with counter k supersedes any earlier
// one with the same (address, chunk_index, k' < k).
func (a *Aircraft) WriteCounter() uint64 {
	return a.TraceWriteCounter
}

// ReleaseTraceScratch drops the full-history backing array down to
// its live length, releasing any spare capacity. Called by the trace
// writer's periodic buffer reset.
func (a *Aircraft) ReleaseTraceScratch() {
	if a.trace == nil {
		return
	}
	full := make([]TracePoint, len(a.trace.full))
	copy(full, a.trace.full)
	a.trace.full = full

	recent := make([]TracePoint, len(a.trace.recent))
	copy(recent, a.trace.recent)
	a.trace.recent = recent
}

package engine

import "math"

// signalRingSize is the per-aircraft RSSI history depth: 8 recent
// messages.
const signalRingSize = 8

// SignalRing is a small fixed-size ring of recent per-message signal
// levels (dBFS). Average reports the power-mean, not the arithmetic
// mean of dBFS values, matching aircraft.c's `10*log10(mean(10^(dbfs/10)))`.
//
// Updated only under the owning record's decode path; the ring is
// written at message rate, not lookup rate, so it shares the record's
// single-writer discipline rather than carrying its own atomics.
type SignalRing struct {
	samples [signalRingSize]float64
	count   int
	next    int
}

// Add records a new signal sample in dBFS.
func (r *SignalRing) Add(dbfs float64) {
	r.samples[r.next] = dbfs
	r.next = (r.next + 1) % signalRingSize
	if r.count < signalRingSize {
		r.count++
	}
}

// Average returns the power-mean of recorded samples in dBFS, or
// -50 (a quiet floor) if no samples have been recorded.
func (r *SignalRing) Average() float64 {
	if r.count == 0 {
		return -50
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += math.Pow(10, r.samples[i]/10)
	}
	mean := sum / float64(r.count)
	if mean <= 0 {
		return -50
	}
	return 10 * math.Log10(mean)
}

// Count returns the number of samples currently held.
func (r *SignalRing) Count() int {
	return r.count
}

// Samples exposes the raw ring contents for state-blob persistence,
// which dumps the in-memory record verbatim rather than just its
// derived average.
func (r *SignalRing) Samples() (samples [signalRingSize]float64, count, next int) {
	return r.samples, r.count, r.next
}

// Restore installs a previously captured ring state, used when
// loading a state blob.
func (r *SignalRing) Restore(samples [signalRingSize]float64, count, next int) {
	r.samples = samples
	r.count = count
	r.next = next
}

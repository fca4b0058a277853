package priority

import (
	"sync"
	"time"
)

// Counters is one rollup period's worth of activity. All fields are
// cumulative sums for the period they describe.
type Counters struct {
	Messages          uint64
	ModeSMessages     uint64
	PositionsAirborne uint64
	PositionsSurface  uint64
	Reaped            uint64
	TrackedAircraft   int // instantaneous, not summed across the period
}

func (c *Counters) add(o Counters) {
	c.Messages += o.Messages
	c.ModeSMessages += o.ModeSMessages
	c.PositionsAirborne += o.PositionsAirborne
	c.PositionsSurface += o.PositionsSurface
	c.Reaped += o.Reaped
	c.TrackedAircraft = o.TrackedAircraft
}

// ringBuckets holds enough 10s buckets to derive a 15 min window by
// summing the most recent N of them.
const (
	bucketPeriod  = 10 * time.Second
	ringBuckets   = 90 // 15 min / 10s
	bucketsPerMin = int(time.Minute / bucketPeriod)
)

// Stats is the statistics rollup. current accumulates between
// rollovers; Rollover flattens it into the ring and the all-time
// total.
type Stats struct {
	mu sync.Mutex

	current Counters
	ring    [ringBuckets]Counters
	ringPos int
	filled  int // number of ring entries populated so far, capped at ringBuckets

	allTime Counters
}

// Add merges o into the in-flight accumulation period. Called by
// decoder/ingest threads as messages arrive; safe for concurrent use.
func (s *Stats) Add(o Counters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.add(o)
}

// Rollover flattens the current accumulation period into the ring and
// all-time counters, and resets current. Must be called under the
// priority barrier, every 10s.
func (s *Stats) Rollover() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.ringPos] = s.current
	s.ringPos = (s.ringPos + 1) % ringBuckets
	if s.filled < ringBuckets {
		s.filled++
	}
	s.allTime.add(s.current)
	s.current = Counters{}
}

// sumLast sums the most recent n buckets (n capped to what has been
// filled so far).
func (s *Stats) sumLast(n int) Counters {
	if n > s.filled {
		n = s.filled
	}
	var out Counters
	for i := 0; i < n; i++ {
		idx := (s.ringPos - 1 - i + ringBuckets) % ringBuckets
		out.add(s.ring[idx])
	}
	return out
}

// Window is a snapshot over one of the four rolling windows.
type Window struct {
	Current Counters
	Min1    Counters
	Min5    Counters
	Min15   Counters
	AllTime Counters
}

// Snapshot returns the current values of all four windows.
func (s *Stats) Snapshot() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Window{
		Current: s.current,
		Min1:    s.sumLast(bucketsPerMin),
		Min5:    s.sumLast(5 * bucketsPerMin),
		Min15:   s.sumLast(15 * bucketsPerMin),
		AllTime: s.allTime,
	}
}

package trace

import (
	"sync"
	"time"

	"readsb-core/internal/debug"
	"readsb-core/internal/engine"
)

// Config bundles the trace writer's tunables.
type Config struct {
	JSONDir          string
	PoolSize         int           // number of trace workers
	TickPeriod       time.Duration // upkeep tick cadence driving invocations
	TaskDeadline     time.Duration // per-task CPU budget
	BufferResetEvery time.Duration // release scratch memory cadence (default 5 min)
}

func (c Config) taskCount() int {
	n := c.PoolSize * 8
	if n < 8 {
		n = 8
	}
	return n
}

func (c Config) invocations() int {
	if c.TickPeriod <= 0 {
		return 1
	}
	n := int((4 * time.Second) / c.TickPeriod)
	if n < 1 {
		n = 1
	}
	return n
}

// task is one worker's claimed contiguous bucket range, and its
// progress through it across potentially several ticks.
type task struct {
	from, to int
	cursor   int
}

func (t *task) done() bool { return t.cursor >= t.to }

// Writer is the partitioned background sweep. The bucket space
// [0, BucketCount) is split into taskCount()*invocations() equal
// parts; each upkeep tick claims one contiguous range per worker and
// advances a global cursor. A full sweep is expected to complete
// within ~4s.
type Writer struct {
	table  *engine.Table
	cfg    Config
	tasks  []task
	cursor int // index into tasks, the next one to hand out

	mu sync.Mutex

	firstSweepDone  bool
	lastBufferReset time.Time
	pastDayTrigger  bool
	inhibitUntil    time.Time
	sweepStart      time.Time
}

// fullSweepTarget is how long a complete pass over every bucket is
// expected to take; exceeding it is logged with a remediation hint.
const fullSweepTarget = 4 * time.Second

// Inhibit suppresses all persists until the given time. Used after a
// replace-state load so freshly restored trace history isn't
// overwritten by a sweep that races the restore.
func (w *Writer) Inhibit(until time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if until.After(w.inhibitUntil) {
		w.inhibitUntil = until
	}
}

// NewWriter partitions table's bucket space into
// taskCount * invocations equal ranges.
func NewWriter(table *engine.Table, cfg Config) *Writer {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	if cfg.TaskDeadline <= 0 {
		cfg.TaskDeadline = 200 * time.Millisecond
	}
	if cfg.BufferResetEvery <= 0 {
		cfg.BufferResetEvery = 5 * time.Minute
	}

	buckets := table.BucketCount()
	parts := cfg.taskCount() * cfg.invocations()
	if parts < 1 {
		parts = 1
	}
	size := buckets / parts
	if size < 1 {
		size = 1
	}

	var tasks []task
	for from := 0; from < buckets; from += size {
		to := from + size
		if to > buckets {
			to = buckets
		}
		tasks = append(tasks, task{from: from, to: to, cursor: from})
	}

	return &Writer{table: table, cfg: cfg, tasks: tasks}
}

// Tick runs one upkeep-tick's worth of work: it claims
// min(cfg.PoolSize, remaining) tasks starting at the writer's cursor,
// runs each (in its own goroutine) against cfg.TaskDeadline, and
// advances the global cursor. When the cursor wraps back to 0 a full
// sweep has completed and the end-of-sweep bookkeeping runs.
func (w *Writer) Tick(now time.Time) {
	w.mu.Lock()
	if len(w.tasks) == 0 || now.Before(w.inhibitUntil) {
		w.mu.Unlock()
		return
	}

	if w.cursor == 0 {
		w.sweepStart = now
	}
	claimed := make([]int, 0, w.cfg.PoolSize)
	for i := 0; i < w.cfg.PoolSize && i < len(w.tasks); i++ {
		idx := (w.cursor + i) % len(w.tasks)
		claimed = append(claimed, idx)
	}
	w.mu.Unlock()

	var wg sync.WaitGroup
	wrappedToZero := false
	for _, idx := range claimed {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w.runTask(idx, now)
		}(idx)
	}
	wg.Wait()

	w.mu.Lock()
	allDone := true
	for i := range w.tasks {
		if !w.tasks[i].done() {
			allDone = false
			break
		}
	}
	w.cursor = (w.cursor + len(claimed)) % len(w.tasks)
	if w.cursor == 0 {
		wrappedToZero = true
	}
	w.mu.Unlock()

	if allDone || wrappedToZero {
		w.onFullSweepComplete(now)
	}

	if now.Sub(w.lastBufferReset) > w.cfg.BufferResetEvery {
		w.resetScratchBuffers()
		w.lastBufferReset = now
	}
}

// runTask persists dirty aircraft in tasks[idx]'s claimed range,
// stopping at cfg.TaskDeadline; the unfinished remainder resumes on a
// later tick because the task's cursor, not `from`, is where the next
// claim starts. The cursor only ever advances past a fully visited
// bucket, so a deadline cut mid-range never skips an aircraft across
// a full sweep.
func (w *Writer) runTask(idx int, now time.Time) {
	w.mu.Lock()
	t := w.tasks[idx]
	w.mu.Unlock()

	if t.done() {
		t.cursor = t.from // a finished task restarts its range next sweep
	}

	deadline := time.Now().Add(w.cfg.TaskDeadline)
	next := t.cursor

	for b := t.cursor; b < t.to; b++ {
		if time.Now().After(deadline) {
			break
		}
		w.table.ForEachRange(b, b+1, func(a *engine.Aircraft) bool {
			w.persistIfDirty(a)
			return true
		})
		next = b + 1
	}

	w.mu.Lock()
	w.tasks[idx].cursor = next
	w.mu.Unlock()
}

// persistIfDirty writes the recent/full trace files for a if its
// dirty bits are set.
func (w *Writer) persistIfDirty(a *engine.Aircraft) {
	dirty := a.DirtyBits()
	if dirty == 0 {
		return
	}

	recent, full := a.TracePoints()
	fullPath, recentPath := tracePaths(w.cfg.JSONDir, a.Address)
	counter := a.WriteCounter()

	var firstErr error
	if dirty&engine.WMEM != 0 {
		if err := writeChunk(fullPath, a.Address, counter, full); err != nil {
			firstErr = err
		}
	}
	if dirty&engine.WRECENT != 0 {
		if err := writeChunk(recentPath, a.Address, counter, recent); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		// Persist failures are logged, dirty bits retained for retry
		// on the next sweep; one aircraft's failure never stops the
		// sweep.
		debug.Log("trace: persist %s failed, will retry next sweep: %v", a.HexString(), firstErr)
		return
	}
	a.ClearDirty(dirty)
}

func (w *Writer) onFullSweepComplete(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.firstSweepDone {
		debug.Log("trace: first full sweep complete")
		w.firstSweepDone = true
	}
	if w.pastDayTrigger {
		w.pastDayTrigger = false
	}
	if elapsed := now.Sub(w.sweepStart); !w.sweepStart.IsZero() && elapsed > fullSweepTarget {
		debug.Log("trace: full sweep took %s (target %s); consider more CPU or a larger trace interval",
			elapsed.Round(time.Millisecond), fullSweepTarget)
	}
}

func (w *Writer) resetScratchBuffers() {
	w.table.ForEach(func(a *engine.Aircraft) {
		a.ReleaseTraceScratch()
	})
}

// FirstSweepDone reports whether at least one full sweep has
// completed.
func (w *Writer) FirstSweepDone() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstSweepDone
}

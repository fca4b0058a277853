package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func TestPollWriteStateDumpsAndConsumesTrigger(t *testing.T) {
	dir := t.TempDir()
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	now := time.Unix(1000, 0)
	table.GetOrCreate(engine.Address(1), now)

	triggerPath := filepath.Join(dir, "writeState")
	if err := os.WriteFile(triggerPath, nil, 0o644); err != nil {
		t.Fatalf("write trigger: %v", err)
	}

	w := NewWatcher(table, Dirs{WriteState: []string{dir}}, nil)
	w.PollWriteState()

	if _, err := os.Stat(triggerPath); !os.IsNotExist(err) {
		t.Fatalf("expected the trigger file consumed, stat err=%v", err)
	}
}

func TestPollSetGainDispatchesAndConsumes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "setGain")
	if err := os.WriteFile(path, []byte("resetRangeOutline\n"), 0o644); err != nil {
		t.Fatalf("write control file: %v", err)
	}

	var got string
	w := NewWatcher(nil, Dirs{SetGain: dir}, func(line string) { got = line })
	w.PollSetGain()

	if got != "resetRangeOutline" {
		t.Fatalf("expected dispatched line %q, got %q", "resetRangeOutline", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected the control file consumed")
	}
}

type fakeLoader struct {
	pending bool
	loaded  bool
}

func (f *fakeLoader) Pending() bool { return f.pending }
func (f *fakeLoader) Load(now time.Time) error {
	f.loaded = true
	return nil
}

func TestPollReplaceStateOnlyLoadsWhenPending(t *testing.T) {
	now := time.Unix(1, 0)

	idle := &fakeLoader{pending: false}
	if err := PollReplaceState(idle, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idle.loaded {
		t.Fatalf("expected no load when nothing is pending")
	}

	ready := &fakeLoader{pending: true}
	if err := PollReplaceState(ready, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ready.loaded {
		t.Fatalf("expected a load when a blob is pending")
	}
}

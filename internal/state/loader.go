package state

import (
	"os"
	"strings"
	"time"

	"readsb-core/internal/engine"
)

// Loader implements priority.StateLoader: it watches
// <state_dir>/replaceState for a blob_XX.zstl sentinel and, when
// asked, loads the companion blob and deletes both.
type Loader struct {
	Table *engine.Table
	Dir   string // <state_dir>/replaceState

	pending string // blob file name (without .zstl) found by the last Pending() scan
}

// NewLoader constructs a Loader watching dir for replace-state blobs.
func NewLoader(table *engine.Table, dir string) *Loader {
	return &Loader{Table: table, Dir: dir}
}

// Pending scans Dir for a blob_XX.zstl sentinel. It caches the match
// so a subsequent Load doesn't need to rescan.
func (l *Loader) Pending() bool {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".zstl") {
			l.pending = strings.TrimSuffix(name, ".zstl")
			return true
		}
	}
	l.pending = ""
	return false
}

// Load installs the most recently detected pending blob at now. Must
// be called with the priority barrier held; the caller is responsible
// for inhibiting trace writes for InhibitDuration afterward, since
// that inhibition is the trace writer's concern, not the loader's.
func (l *Loader) Load(now time.Time) error {
	if l.pending == "" && !l.Pending() {
		return nil
	}
	name := l.pending
	l.pending = ""
	return LoadOne(l.Table, l.Dir, name, now)
}

// InhibitDuration is how long the trace writer should skip persisting
// freshly loaded records after a state load, so the load's trace
// history isn't clobbered by a half-populated sweep.
const InhibitDuration = 10 * time.Second

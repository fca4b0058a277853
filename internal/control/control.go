// Package control implements the control-file protocol: presence of a
// file under a watched directory triggers an action; the file is
// consumed (unlinked) once processed.
package control

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"readsb-core/internal/debug"
	"readsb-core/internal/engine"
	"readsb-core/internal/state"
)

// Dirs bundles the watched directories. WriteState directories are
// scanned for trigger files named "writeState" (optionally suffixed
// ".XX" with a 2-hex blob selector); the SetGain directory is scanned
// for a file named exactly "setGain".
type Dirs struct {
	WriteState   []string // e.g. <json_dir>/getState and <state_dir>
	ReplaceState string   // <state_dir>/replaceState
	SetGain      string   // directory holding the setGain control file
	StateOut     string   // where writeState dumps land; the directory holding the trigger file if empty
}

// GainHandler receives a parsed setGain control line.
type GainHandler func(line string)

// Watcher polls Dirs on each Poll call and drives the corresponding
// action, consuming each control file it acts on.
type Watcher struct {
	Dirs   Dirs
	Table  *engine.Table
	OnGain GainHandler
}

// NewWatcher constructs a Watcher over dirs.
func NewWatcher(table *engine.Table, dirs Dirs, onGain GainHandler) *Watcher {
	return &Watcher{Dirs: dirs, Table: table, OnGain: onGain}
}

// PollWriteState checks WriteState for a trigger file (optionally
// named with a 2-hex blob suffix, e.g. "writeState.3F") and, if
// present, dumps the selected blob (or all blobs) and consumes the
// trigger file.
func (w *Watcher) PollWriteState() {
	for _, dir := range w.Dirs.WriteState {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasPrefix(name, "writeState") {
				continue
			}

			var only *int
			if dot := strings.LastIndex(name, "."); dot != -1 {
				if v, err := strconv.ParseUint(name[dot+1:], 16, 8); err == nil {
					idx := int(v)
					only = &idx
				}
			}

			out := w.Dirs.StateOut
			if out == "" {
				out = dir
			}
			if err := state.Dump(w.Table, out, only); err != nil {
				debug.Log("control: writeState dump failed: %v", err)
			}
			os.Remove(filepath.Join(dir, name))
		}
	}
}

// PollSetGain checks SetGain for a control line file and dispatches
// it to OnGain, then consumes it. Recognised lines: a gain argument,
// "setLatLon,lat,lon", or "resetRangeOutline".
func (w *Watcher) PollSetGain() {
	if w.Dirs.SetGain == "" || w.OnGain == nil {
		return
	}
	path := filepath.Join(w.Dirs.SetGain, "setGain")
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	line := strings.TrimSpace(string(data))
	if line != "" {
		w.OnGain(line)
	}
	os.Remove(path)
}

// replaceStateLoader is the minimal surface PollReplaceState needs
// from *state.Loader, accepted as an interface so tests can substitute
// a fake without constructing a real Loader.
type replaceStateLoader interface {
	Pending() bool
	Load(now time.Time) error
}

// PollReplaceState delegates the pending-sentinel check to loader
// (typically a *state.Loader over <state_dir>/replaceState) and, if a
// blob is pending, loads it at now. The caller is expected to invoke
// this only while holding the priority barrier; this function
// performs no locking of its own.
func PollReplaceState(loader replaceStateLoader, now time.Time) error {
	if loader == nil || !loader.Pending() {
		return nil
	}
	return loader.Load(now)
}

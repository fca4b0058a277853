// Package registry implements the aircraft-registration database: a
// two-generation index over an immutable CSV text blob, atomic
// hot-reload, and the sweep that re-resolves every aircraft's
// registration fields after a swap.
package registry

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Entry is a registry entry: just the address and an offset into the
// owning generation's immutable text blob.
type Entry struct {
	Address uint32
	Offset  int32
}

// Fields is the set of string/int columns re-parsed on demand from a
// generation's blob at an entry's offset.
type Fields struct {
	Registration  string
	TypeCode      string
	Flags         uint32
	TypeLong      string
	Year          string
	OwnerOperator string
}

// generation owns one immutable CSV blob and its address index. A
// record caches parsed strings extracted from the blob, so a
// generation must stay readable for as long as any record references
// it.
type generation struct {
	blob    []byte
	index   map[uint32]int32 // address -> offset
	modTime time.Time
}

// Database is the two-generation registry: `current` is what
// resolution reads from; `pending` is built by the parse phase and
// installed by the finish phase inside the barrier.
type Database struct {
	current *generation
	pending *generation

	path        string
	lastModTime time.Time
}

// NewDatabase returns an empty registry (no rows resolve to anything
// until the first successful Load).
func NewDatabase(path string) *Database {
	return &Database{path: path, current: &generation{index: map[uint32]int32{}}}
}

// minRegistrySize guards against installing a truncated or empty
// file.
const minRegistrySize = 1000

// CheckAndParse is the parse phase: no barrier held. It stats the
// file, compares mtime against the last
// successfully loaded generation, and if changed, reads + decompresses
// + indexes it into d.pending. Returns (changed, error); changed=false
// with err=nil means "nothing to do" (unchanged mtime), which the
// caller should treat as a no-op, not a failure.
func (d *Database) CheckAndParse() (changed bool, err error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return false, fmt.Errorf("registry: stat %s: %w", d.path, err)
	}
	if !info.ModTime().After(d.lastModTime) {
		return false, nil
	}

	raw, err := os.ReadFile(d.path)
	if err != nil {
		return false, fmt.Errorf("registry: read %s: %w", d.path, err)
	}

	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gr, gzErr := gzip.NewReader(bytes.NewReader(raw))
		if gzErr != nil {
			return false, fmt.Errorf("registry: gzip open %s: %w", d.path, gzErr)
		}
		decompressed, readErr := io.ReadAll(gr)
		gr.Close()
		if readErr != nil {
			return false, fmt.Errorf("registry: gzip read %s: %w", d.path, readErr)
		}
		raw = decompressed
	}

	if len(raw) < minRegistrySize {
		return false, fmt.Errorf("registry: %s is only %d bytes, want at least %d", d.path, len(raw), minRegistrySize)
	}

	gen, parseErr := parseGeneration(raw, info.ModTime())
	if parseErr != nil {
		return false, parseErr
	}
	if len(gen.index) == 0 {
		return false, fmt.Errorf("registry: %s contained zero valid rows", d.path)
	}

	d.pending = gen
	return true, nil
}

// FinishSwap is the finish phase: must be called while the caller
// holds the priority barrier. Installs d.pending as
// d.current and returns true, so the caller knows to run the
// re-resolution sweep over every aircraft; returns false when nothing
// was pending.
func (d *Database) FinishSwap() bool {
	if d.pending == nil {
		return false
	}
	d.current = d.pending
	d.pending = nil
	d.lastModTime = d.current.modTime
	return true
}

// Resolve looks up addr in the current generation and parses its
// fields from the blob. ok=false means no registry row for addr.
func (d *Database) Resolve(addr uint32) (Fields, bool) {
	gen := d.current
	off, ok := gen.index[addr]
	if !ok {
		return Fields{}, false
	}
	return parseRowAt(gen.blob, off), true
}

// parseGeneration scans raw for newlines to size the index, then fills
// it with {address -> offset} pairs. Partial rows are skipped
// silently.
func parseGeneration(raw []byte, modTime time.Time) (*generation, error) {
	gen := &generation{
		blob:    raw,
		index:   make(map[uint32]int32, bytes.Count(raw, []byte{'\n'})+1),
		modTime: modTime,
	}

	offset := 0
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		lineOffset := offset
		offset += len(line) + 1 // account for the newline consumed by Scan

		addr, ok := parseAddressColumn(line)
		if !ok {
			continue
		}
		gen.index[addr] = int32(lineOffset)
	}
	return gen, scanner.Err()
}

// parseAddressColumn extracts just the first (address) column from a
// raw registry line, without allocating, for the fast indexing pass.
func parseAddressColumn(line []byte) (uint32, bool) {
	semi := bytes.IndexByte(line, ';')
	if semi <= 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(string(line[:semi]), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// parseRowAt re-parses the full row starting at off within blob,
// sanitising string columns on the way out. The blob itself is never
// mutated.
func parseRowAt(blob []byte, off int32) Fields {
	end := bytes.IndexByte(blob[off:], '\n')
	var line []byte
	if end < 0 {
		line = blob[off:]
	} else {
		line = blob[off : int(off)+end]
	}

	cols := strings.SplitN(string(line), ";", 7)
	get := func(i int) string {
		if i < len(cols) {
			return cols[i]
		}
		return ""
	}

	return Fields{
		Registration:  Sanitize(get(1)),
		TypeCode:      Sanitize(get(2)),
		Flags:         parseFlagsBits(get(3)),
		TypeLong:      Sanitize(get(4)),
		Year:          Sanitize(get(5)),
		OwnerOperator: Sanitize(get(6)),
	}
}

// parseFlagsBits reads a flags column whose characters are '0'/'1'
// LSB-first into a bit field.
func parseFlagsBits(s string) uint32 {
	var v uint32
	for i := 0; i < len(s) && i < 32; i++ {
		if s[i] == '1' {
			v |= 1 << uint(i)
		}
	}
	return v
}

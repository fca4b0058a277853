package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readsb-core/internal/engine"
)

func writeRegistry(t *testing.T, rows []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "basestation.csv")
	content := strings.Join(rows, "\n") + "\n" + strings.Repeat(";padding-to-exceed-min-size-of-this-file;;;;;\n", 40)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write registry fixture: %v", err)
	}
	return path
}

func TestRegistryLoadAndMilitaryRange(t *testing.T) {
	path := writeRegistry(t, []string{
		"AC82EC;D-ABCD;A320;10000000;Airbus A320;2015;Lufthansa",
	})

	db := NewDatabase(path)
	changed, err := db.CheckAndParse()
	if err != nil {
		t.Fatalf("CheckAndParse: %v", err)
	}
	if !changed {
		t.Fatalf("expected a change on first parse")
	}
	if !db.FinishSwap() {
		t.Fatalf("expected FinishSwap to install the pending generation")
	}

	a := &engine.Aircraft{Address: engine.Address(0xAC82EC)}
	ApplyToAircraft(db, a)

	if a.Registration != "D-ABCD" {
		t.Fatalf("expected registration D-ABCD, got %q", a.Registration)
	}
	if a.TypeCode != "A320" {
		t.Fatalf("expected type A320, got %q", a.TypeCode)
	}
	if a.DBFlags&DBFlagMilitary == 0 {
		t.Fatalf("expected military bit set from the row's own flags column")
	}
	// 0xAC82EC is not within any static military range.
	flags, _ := ApplyStaticFlags(0xAC82EC, 0)
	if flags&DBFlagMilitary != 0 {
		t.Fatalf("0xAC82EC should not match a static military range")
	}
}

func TestStaticMilitaryRangeWithoutRegistryRow(t *testing.T) {
	path := writeRegistry(t, []string{
		"AC82EC;D-ABCD;A320;00000000;Airbus A320;2015;Lufthansa",
	})
	db := NewDatabase(path)
	if _, err := db.CheckAndParse(); err != nil {
		t.Fatalf("CheckAndParse: %v", err)
	}
	db.FinishSwap()

	a := &engine.Aircraft{Address: engine.Address(0x7CF900)} // within 7CF800-7CFAFF
	ApplyToAircraft(db, a)

	if a.DBFlags&DBFlagMilitary == 0 {
		t.Fatalf("expected static military range to set the flag")
	}
	if a.Registration != "" {
		t.Fatalf("expected no registration for an address with no registry row, got %q", a.Registration)
	}
}

func TestRegistryResolutionIsDeterministic(t *testing.T) {
	path := writeRegistry(t, []string{
		"AC82EC;D-ABCD;A320;10000000;Airbus A320;2015;Lufthansa",
	})
	db := NewDatabase(path)
	db.CheckAndParse()
	db.FinishSwap()

	f1, ok1 := db.Resolve(0xAC82EC)
	f2, ok2 := db.Resolve(0xAC82EC)
	if !ok1 || !ok2 {
		t.Fatalf("expected both resolutions to find the row")
	}
	if f1 != f2 {
		t.Fatalf("expected byte-identical resolution across repeated lookups: %+v != %+v", f1, f2)
	}
}

func TestUnchangedMTimeIsNoOp(t *testing.T) {
	path := writeRegistry(t, []string{"AC82EC;D-ABCD;A320;10000000;Airbus A320;2015;Lufthansa"})
	db := NewDatabase(path)
	if _, err := db.CheckAndParse(); err != nil {
		t.Fatalf("initial parse: %v", err)
	}
	db.FinishSwap()

	changed, err := db.CheckAndParse()
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if changed {
		t.Fatalf("expected no change when the file's mtime hasn't advanced")
	}
}

func TestUndersizedFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.csv")
	os.WriteFile(path, []byte("AC82EC;D-ABCD;A320;1;A;2015;LH\n"), 0644)

	db := NewDatabase(path)
	_, err := db.CheckAndParse()
	if err == nil {
		t.Fatalf("expected an error for a file under the minimum size")
	}
}

func TestPartialRowsSkippedSilently(t *testing.T) {
	path := writeRegistry(t, []string{
		"AC82EC;D-ABCD;A320;10000000;Airbus A320;2015;Lufthansa",
		"not-a-valid-row-at-all",
		"",
	})
	db := NewDatabase(path)
	if _, err := db.CheckAndParse(); err != nil {
		t.Fatalf("CheckAndParse should tolerate partial rows: %v", err)
	}
	db.FinishSwap()
	if _, ok := db.Resolve(0xAC82EC); !ok {
		t.Fatalf("expected the valid row to still resolve")
	}
}

func TestSanitizeReplacesQuotesAndControlChars(t *testing.T) {
	got := Sanitize(`He said "hi"` + "\x01\x02")
	if strings.Contains(got, `"`) {
		t.Fatalf("expected quotes replaced, got %q", got)
	}
	if strings.ContainsAny(got, "\x01\x02") {
		t.Fatalf("expected control chars replaced, got %q", got)
	}
}

func TestSourcePollInterval(t *testing.T) {
	if PollInterval() != 30*time.Second {
		t.Fatalf("expected a 30s poll interval, got %v", PollInterval())
	}
}

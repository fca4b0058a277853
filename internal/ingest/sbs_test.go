package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"readsb-core/internal/engine"
	"readsb-core/internal/registry"
)

const sampleMSG = "MSG,3,1,1,A12345,1,2026/07/31,12:34:56.789,2026/07/31,12:34:56.789,DLH9LW ,37000,450,270,50.0379,8.5622,0,,0,0,0,0"

func TestParseSBSExtractsCoreFields(t *testing.T) {
	msg, err := parseSBS(sampleMSG)
	if err != nil {
		t.Fatalf("parseSBS: %v", err)
	}
	if msg == nil {
		t.Fatalf("expected a non-nil message for a MSG line")
	}
	if msg.addr != engine.Address(0xA12345) {
		t.Fatalf("expected address 0xA12345, got %06X", uint32(msg.addr))
	}
	if !msg.hasCallsign || msg.callsign != "DLH9LW" {
		t.Fatalf("expected callsign DLH9LW, got %q hasCallsign=%v", msg.callsign, msg.hasCallsign)
	}
	if !msg.hasAltitude || msg.altitude != 37000 {
		t.Fatalf("expected altitude 37000, got %d", msg.altitude)
	}
	if !msg.hasPosition || msg.lat != 50.0379 || msg.lon != 8.5622 {
		t.Fatalf("expected position (50.0379, 8.5622), got (%v, %v)", msg.lat, msg.lon)
	}
}

func TestParseSBSSkipsNonMSGLines(t *testing.T) {
	msg, err := parseSBS("SEL,1,1,1,A12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil for a non-MSG line")
	}
}

func TestParseSBSRejectsShortLines(t *testing.T) {
	if _, err := parseSBS("MSG,3,1,1,A12345"); err == nil {
		t.Fatalf("expected an error for a line with too few fields")
	}
}

func TestApplyCreatesAndUpdatesRecord(t *testing.T) {
	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	now := time.Unix(1000, 0)

	msg, err := parseSBS(sampleMSG)
	if err != nil {
		t.Fatalf("parseSBS: %v", err)
	}

	a := Apply(table, nil, msg, now)
	if a.Address != engine.Address(0xA12345) {
		t.Fatalf("unexpected address on the created record")
	}
	if a.Callsign != "DLH9LW" {
		t.Fatalf("expected callsign applied, got %q", a.Callsign)
	}
	if a.BaroAlt != 37000 {
		t.Fatalf("expected altitude applied, got %d", a.BaroAlt)
	}
	if !a.CallsignValidity.Valid(now) {
		t.Fatalf("expected callsign validity touched at now")
	}
	if table.Get(engine.Address(0xA12345)) != a {
		t.Fatalf("expected the same record retrievable from the table")
	}
}

func TestApplyResolvesRegistryFieldsOnFirstSight(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basestation.csv")
	content := "A12345;D-ABCD;A320;00000000;Airbus A320;2015;Lufthansa\n" +
		strings.Repeat(";padding-to-exceed-min-size-of-this-file;;;;;\n", 40)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write registry fixture: %v", err)
	}

	db := registry.NewDatabase(path)
	if _, err := db.CheckAndParse(); err != nil {
		t.Fatalf("CheckAndParse: %v", err)
	}
	if !db.FinishSwap() {
		t.Fatalf("expected FinishSwap to install the pending generation")
	}

	table := engine.NewTable(8, 8, engine.DefaultReliabilityConfig())
	now := time.Unix(1000, 0)

	msg, err := parseSBS(sampleMSG)
	if err != nil {
		t.Fatalf("parseSBS: %v", err)
	}

	a := Apply(table, db, msg, now)
	if a.Registration != "D-ABCD" {
		t.Fatalf("expected registration resolved on first sight, got %q", a.Registration)
	}
	if a.TypeCode != "A320" {
		t.Fatalf("expected type code resolved on first sight, got %q", a.TypeCode)
	}

	// A second message for the same address lands on the same record
	// (Apply resolves registry fields only on a record's first message).
	a2 := Apply(table, db, msg, now.Add(time.Second))
	if a2 != a {
		t.Fatalf("expected the same record on a second message")
	}
}

package engine

import (
	"testing"
	"time"
)

func TestPositionBecomesReliableAfterConfirmingFix(t *testing.T) {
	cfg := ReliabilityConfig{JSONReliable: 2, PositionPersistence: 4, MaxImpliedSpeedKt: 1200}.Clamped()
	a := newAircraft(Address(0xAC82EC), time.Unix(0, 0))

	t0 := time.Unix(1000, 0)
	a.UpdatePosition(52.3, 13.4, t0, cfg)
	if a.PosReliable {
		t.Fatalf("position should not be reliable after a single fix with json_reliable=2")
	}

	t1 := t0.Add(2 * time.Second)
	a.UpdatePosition(52.3001, 13.4001, t1, cfg)
	if !a.PosReliable {
		t.Fatalf("expected position to become reliable after a second consistent fix")
	}
}

func TestPositionPersistenceDecay(t *testing.T) {
	cfg := ReliabilityConfig{JSONReliable: 1, PositionPersistence: 4, MaxImpliedSpeedKt: 1200}.Clamped()
	a := newAircraft(Address(0x1), time.Unix(0, 0))

	t0 := time.Unix(0, 0)
	a.UpdatePosition(40, -70, t0, cfg)
	if !a.PosReliable {
		t.Fatalf("expected position reliable after one fix with json_reliable=1")
	}

	at180 := t0.Add(180 * time.Second)
	_, _, valid := a.PublishedPosition(at180, cfg)
	if valid {
		t.Fatalf("expected position_valid=0 at t0+180s: ordinary field staleness (60s) has long since elapsed")
	}
	if a.ReliabilityWithdrawn(at180, cfg) {
		t.Fatalf("reliability itself should not withdraw until persistence*stale=240s has elapsed")
	}

	at300 := t0.Add(300 * time.Second)
	if !a.ReliabilityWithdrawn(at300, cfg) {
		t.Fatalf("expected reliability withdrawn by t0+300s")
	}
}

func TestReliabilityConfigClamped(t *testing.T) {
	cfg := ReliabilityConfig{JSONReliable: 99, PositionPersistence: -5}.Clamped()
	if cfg.JSONReliable != 4 {
		t.Fatalf("expected JSONReliable clamped to 4, got %d", cfg.JSONReliable)
	}
	if cfg.PositionPersistence < cfg.JSONReliable {
		t.Fatalf("expected PositionPersistence >= JSONReliable, got %d < %d", cfg.PositionPersistence, cfg.JSONReliable)
	}

	cfg2 := ReliabilityConfig{JSONReliable: -10}.Clamped()
	if cfg2.JSONReliable != -1 {
		t.Fatalf("expected JSONReliable clamped to -1, got %d", cfg2.JSONReliable)
	}
}

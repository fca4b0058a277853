package engine

import (
	"time"

	"readsb-core/internal/geo"
)

// ReliabilityConfig bundles the position-reliability tunables:
// JSONReliable is clamped to [-1, 4], and PositionPersistence must be
// at least JSONReliable.
type ReliabilityConfig struct {
	JSONReliable        int
	PositionPersistence int
	MaxImpliedSpeedKt   float64 // reject fixes implying a faster-than-physical jump
}

// DefaultReliabilityConfig mirrors readsb's defaults.
func DefaultReliabilityConfig() ReliabilityConfig {
	return ReliabilityConfig{
		JSONReliable:        1,
		PositionPersistence: 4,
		MaxImpliedSpeedKt:   1200,
	}
}

// Clamped returns a copy with JSONReliable clamped to [-1, 4] and
// PositionPersistence raised to at least JSONReliable.
func (c ReliabilityConfig) Clamped() ReliabilityConfig {
	if c.JSONReliable < -1 {
		c.JSONReliable = -1
	}
	if c.JSONReliable > 4 {
		c.JSONReliable = 4
	}
	if c.PositionPersistence < c.JSONReliable {
		c.PositionPersistence = c.JSONReliable
	}
	return c
}

// UpdatePosition feeds a freshly decoded global-CPR position into the
// hysteresis counter. A position becomes reliable only once the
// counter reaches cfg.JSONReliable; it decrements on a fix that is
// geographically inconsistent with the previous reliable fix (implied
// speed too high). The age of the previous fix does not by itself
// lower the counter.
func (a *Aircraft) UpdatePosition(lat, lon float64, now time.Time, cfg ReliabilityConfig) {
	consistent := true
	if a.PosReliable {
		elapsed := now.Sub(a.SeenPosReliable).Seconds()
		speed := geo.ImpliedSpeedKt(a.LatReliable, a.LonReliable, lat, lon, elapsed)
		if speed > cfg.MaxImpliedSpeedKt {
			consistent = false
		}
	}

	if consistent {
		if a.reliabilityCounter < cfg.JSONReliable {
			a.reliabilityCounter++
		}
	} else {
		a.reliabilityCounter--
		if a.reliabilityCounter < 0 {
			a.reliabilityCounter = 0
		}
	}

	a.Lat, a.Lon = lat, lon
	if a.PosValidity.StaleMS == 0 {
		a.PosValidity.StaleMS = PositionStaleMS
		a.PosValidity.ExpireMS = DefaultExpireMS
	}
	a.PosValidity.Touch(now)

	if a.reliabilityCounter >= cfg.JSONReliable {
		if a.PosReliable && a.PosValidity.Valid(now) {
			// derive a computed track from consecutive reliable fixes
			// when the reported track has gone stale.
			if !a.TrackValidity.Valid(now) {
				a.TrackComputed = geo.BearingDeg(a.LatReliable, a.LonReliable, lat, lon)
			}
		}
		a.LatReliable, a.LonReliable = lat, lon
		a.PosReliable = true
		a.SeenPosReliable = now
	}
}

// ReliabilityWithdrawn reports whether a previously reliable position
// has decayed outright: the last reliable fix is older than
// PositionPersistence * PositionStaleMS. Before this threshold,
// PosReliable stays set even though ordinary field staleness
// (PosValidity) may already have hidden the value from publishers.
func (a *Aircraft) ReliabilityWithdrawn(now time.Time, cfg ReliabilityConfig) bool {
	if !a.PosReliable {
		return true
	}
	threshold := time.Duration(cfg.PositionPersistence) * PositionStaleMS
	return now.Sub(a.SeenPosReliable) > threshold
}

// DecayReliability clears PosReliable once it has withdrawn per
// ReliabilityWithdrawn. Called by the stale sweep; never by a
// publisher, which must only read.
func (a *Aircraft) DecayReliability(now time.Time, cfg ReliabilityConfig) {
	if a.ReliabilityWithdrawn(now, cfg) {
		a.PosReliable = false
	}
}

// PublishedPosition returns the lat/lon that should be published at
// now along with whether the position is "valid" for projection
// purposes. valid follows ordinary field staleness: a reliable
// position already goes invalid at PositionStaleMS even though the underlying
// reliable fix is retained (and may still be reported with a nogps
// flag by the caller) until ReliabilityWithdrawn.
func (a *Aircraft) PublishedPosition(now time.Time, cfg ReliabilityConfig) (lat, lon float64, valid bool) {
	if !a.PosReliable {
		return 0, 0, false
	}
	return a.LatReliable, a.LonReliable, a.PosValidity.Valid(now)
}

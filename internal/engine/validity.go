package engine

import "time"

// Validity is the uniform {timestamp, stale, expire} descriptor
// attached to every reported field. A field is hidden from fresh
// snapshots once it goes stale, but the record keeps the underlying
// value until it expires and the aircraft becomes reapable.
type Validity struct {
	Timestamp time.Time     // when the field was last written
	StaleMS   time.Duration // age at which publishers must hide the field
	ExpireMS  time.Duration // age at which the field no longer counts toward keeping the aircraft alive
}

// Valid reports whether the field should still be published at now:
// now < timestamp + stale.
func (v Validity) Valid(now time.Time) bool {
	if v.Timestamp.IsZero() {
		return false
	}
	return now.Sub(v.Timestamp) < v.StaleMS
}

// Expired reports whether the field has aged past its expiry and no
// longer counts toward keeping the record alive.
func (v Validity) Expired(now time.Time) bool {
	if v.Timestamp.IsZero() {
		return true
	}
	return now.Sub(v.Timestamp) >= v.ExpireMS
}

// Touch records a fresh observation of the field at t. Callers must
// write the field value before calling Touch so that a reader
// observing a fresh validity also observes the field.
func (v *Validity) Touch(t time.Time) {
	v.Timestamp = t
}

// Age returns how long ago the field was last touched, relative to now.
func (v Validity) Age(now time.Time) time.Duration {
	if v.Timestamp.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	return now.Sub(v.Timestamp)
}

// Common stale/expire pairings used across the record, taken from the
// original implementation's constants (aircraft.c).
const (
	PositionStaleMS  = 60 * time.Second
	TrackExpireMS    = 60 * time.Second
	DefaultStaleMS   = 60 * time.Second
	DefaultExpireMS  = 300 * time.Second
	SurfaceExpireMS  = 60 * time.Second
	AirborneExpireMS = 300 * time.Second
)

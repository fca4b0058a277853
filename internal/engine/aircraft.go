package engine

import (
	"fmt"
	"time"
)

// Category is the ADS-B emitter category, A0-D7 packed as a single
// byte (high nibble = set, low nibble = category within the set).
type Category byte

// NavModes is a bitset of active autopilot/FMS modes.
type NavModes uint8

const (
	NavModeAutopilot NavModes = 1 << iota
	NavModeVNAV
	NavModeAltHold
	NavModeApproach
	NavModeLNAV
	NavModeTCAS
)

// AirGround is the surface/airborne state reported by the transponder.
type AirGround int

const (
	AirGroundUnknown AirGround = iota
	AirGroundAirborne
	AirGroundGround
)

// Trace dirty bits: WRECENT marks the recent ring, WMEM the full
// in-memory history, as needing a flush to disk.
const (
	WRECENT uint8 = 1 << iota
	WMEM
)

// Aircraft is one per observed address; the Table exclusively owns it.
// Fields are independently mutated by decoder threads with no
// cross-field invariant requiring atomicity beyond natural word
// writes, except where a Validity accompanies the field: the value
// must be written before its Validity.Touch so a reader that observes
// a fresh validity observes the paired value.
type Aircraft struct {
	// Identity
	Address         Address
	AddrType        AddressType
	Registration    string
	TypeCode        string
	TypeLong        string
	OwnerOperator   string
	Year            string
	DBFlags         uint32 // bit 0 = military, bit 1 = interesting
	IsDF18Exception bool

	// Position
	Lat, Lon                 float64
	LatReliable, LonReliable float64
	PosReliable              bool
	NIC, Rc                  int
	SeenPosReliable          time.Time
	PosValidity              Validity
	reliabilityCounter       int // position-reliability hysteresis

	// Kinematics
	BaroAlt, GeomAlt           int
	BaroAltValidity            Validity
	GeomAltValidity            Validity
	BaroRate, GeomRate         int
	RateValidity               Validity
	IAS, TAS                   int
	Mach                       float64
	SpeedValidity              Validity
	GS                         float64
	Track                      float64
	TrackComputed              float64 // fallback when reported track is stale
	TrackValidity              Validity
	MagHeading, TrueHeading    float64
	HeadingValidity            Validity
	TrackRate                  float64
	Roll                       float64

	// Intent / modes
	Squawk         string
	Emergency      string
	Category       Category
	NavAltitudeMCP int
	NavAltitudeFMS int
	QNH            float64
	NavHeading     float64
	NavModes       NavModes
	NavAltSource   string
	Alert          bool
	SPI            bool
	AirGround      AirGround

	// Integrity
	ADSBVersion, ADSRVersion, TISBVersion int // -1 = unknown
	NICA, NICC, NICBaro                   int
	NACP, NACV                            int
	SIL                                   int
	SILType                               string
	GVA, SDA                              int

	// Environmental
	WindDir, WindSpeed float64
	WindAltitude       int
	OAT, TAT           float64
	EnvValidity        Validity

	// Callsign
	Callsign         string
	CallsignValidity Validity

	// Signal
	Signal        SignalRing
	ReceiverID    uint64
	ReceiverCount int

	// Counters/rates
	Messages    uint64
	MessageRate float64

	// Trace
	trace                 *traceBuffers
	TraceDirty            uint8
	TraceWriteCounter     uint64
	InitialTraceWriteDone bool

	// Bookkeeping
	Seen time.Time

	// internal linkage, owned exclusively by the Table
	bucketNext  *Aircraft
	activeIndex int // -1 if not on the active list
	onActive    bool
	globeIndex  int
}

const globeIndexSentinel = -1

// newAircraft creates a freshly inserted record: versions unknown
// (-1), globe index sentinel, seen stamped at insertion time.
func newAircraft(addr Address, now time.Time) *Aircraft {
	return &Aircraft{
		Address:     addr,
		AddrType:    AddressUnknown,
		ADSBVersion: -1,
		ADSRVersion: -1,
		TISBVersion: -1,
		Seen:        now,
		activeIndex: -1,
		globeIndex:  globeIndexSentinel,
	}
}

// HexString renders the address as a zero-padded 6-digit hex string,
// the conventional ICAO hex identifier format.
func (a *Aircraft) HexString() string {
	return fmt.Sprintf("%06X", uint32(a.Address)&addressMask)
}

// FlightLevel returns the barometric altitude divided by 100.
func (a *Aircraft) FlightLevel() int {
	return a.BaroAlt / 100
}

// DisplayName returns the callsign if known, else the hex address.
func (a *Aircraft) DisplayName() string {
	if a.Callsign != "" {
		return a.Callsign
	}
	return a.HexString()
}

// PositionKnown reports whether the record carries any position at
// all (reliable or not).
func (a *Aircraft) PositionKnown() bool {
	return a.PosValidity.Timestamp.IsZero() == false
}

// EffectiveTrack returns the reported track if it is still fresh,
// otherwise the computed fallback track.
func (a *Aircraft) EffectiveTrack(now time.Time) float64 {
	if a.TrackValidity.Valid(now) {
		return a.Track
	}
	return a.TrackComputed
}

// IsStale reports whether the record has not been updated within d of
// now; this is distinct from reap eligibility, which uses a
// category-specific expiry computed by the priority coordinator.
func (a *Aircraft) IsStale(now time.Time, d time.Duration) bool {
	return now.Sub(a.Seen) >= d
}

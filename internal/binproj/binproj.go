// Package binproj implements the binary snapshot projection: a pure
// function of (record, now) producing the fixed-layout, little-endian
// binary aircraft row consumed by external publishers.
package binproj

import (
	"encoding/binary"
	"math"
	"time"

	"readsb-core/internal/engine"
)

// Scaling factors applied before narrowing to 16-bit fields.
const (
	AltFactor      = 25.0 // altitudes in units of ALT_FACTOR feet
	RateDivisor    = 8.0  // vertical rates ÷ 8
	AngleFactor    = 90.0 // angles ×90 -> 0.25° resolution in 16 bits
	MachFactor     = 1000.0
	QNHFactor      = 10.0
	TrackRateScale = 100.0
	RollScale      = 100.0
)

// versionSentinel is the rewritten value for an unknown (-1) version
// field.
const versionSentinel = 15

// windAltitudeToleranceFt gates WindValid: wind data only counts when
// measured within this many feet of the current barometric altitude.
const windAltitudeToleranceFt = 500

// Config bundles the options that affect projection but aren't part
// of the record itself.
type Config struct {
	RegistryOwned bool // whether registry resolution has completed for this process
	Reliability   engine.ReliabilityConfig
}

// Row is the projected binary aircraft row. For every scaled/valid
// pair: if invalid at now, the value is zeroed and the bit cleared,
// never a nonzero "invalid" value.
type Row struct {
	Address  uint32
	AddrType uint8

	SeenCentiS    int32 // centiseconds since now
	SeenPosCentiS int32

	Lat, Lon      int32 // microdegrees
	PositionValid bool

	BaroAlt      int16 // units of AltFactor
	BaroAltValid bool
	GeomAlt      int16
	GeomAltValid bool

	BaroRate      int16 // units of RateDivisor
	BaroRateValid bool
	GeomRate      int16
	GeomRateValid bool

	GS               int16 // knots, whole units
	GSValid          bool
	Track            int16 // units of AngleFactor
	TrackValid       bool
	MagHeading       int16
	MagHeadingValid  bool
	TrueHeading      int16
	TrueHeadingValid bool

	TrackRate      int16 // units of TrackRateScale
	TrackRateValid bool
	Roll           int16 // units of RollScale
	RollValid      bool

	Mach      int16 // units of MachFactor
	MachValid bool

	NavQNH          int16 // units of QNHFactor
	NavQNHValid     bool
	NavHeading      int16
	NavHeadingValid bool
	NavAltitudeMCP  int16
	NavAltitudeFMS  int16
	NavModes        uint8

	Squawk      uint16
	SquawkValid bool

	Callsign      [8]byte
	CallsignValid bool

	ADSBVersion uint8
	ADSRVersion uint8
	TISBVersion uint8

	NICA, NICC, NICBaro uint8
	NACP, NACV          uint8
	SIL                 uint8
	GVA, SDA            uint8

	WindDir, WindSpeed int16
	WindValid          bool
	OAT, TAT           int16
	TempValid          bool

	Signal uint8 // 0-255

	Category uint8
	DBFlags  uint32

	RegistryOwned bool
}

func roundHalfToEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}

func scaleI16(v float64, factor float64) int16 {
	scaled := roundHalfToEven(v * factor)
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	}
	if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	return int16(scaled)
}

// rewriteVersion maps an unknown (-1) version to the sentinel.
func rewriteVersion(v int) uint8 {
	if v < 0 {
		return versionSentinel
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// scaleSignal maps dBFS onto a byte:
// round((rssi_dbm + 50) * (255/50)), clamped to [0, 255].
func scaleSignal(dbfs float64) uint8 {
	v := roundHalfToEven((dbfs + 50) * (255.0 / 50.0))
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

// Project is a pure function of (record, now): it never mutates a.
func Project(a *engine.Aircraft, now time.Time, cfg Config) Row {
	row := Row{
		Address:  uint32(a.Address) & 0x00FFFFFF,
		AddrType: uint8(a.AddrType),
		Category: byte(a.Category),
		DBFlags:  a.DBFlags,

		ADSBVersion: rewriteVersion(a.ADSBVersion),
		ADSRVersion: rewriteVersion(a.ADSRVersion),
		TISBVersion: rewriteVersion(a.TISBVersion),

		NICA: uint8(a.NICA), NICC: uint8(a.NICC), NICBaro: uint8(a.NICBaro),
		NACP: uint8(a.NACP), NACV: uint8(a.NACV),
		SIL: uint8(a.SIL), GVA: uint8(a.GVA), SDA: uint8(a.SDA),

		NavModes:       uint8(a.NavModes),
		NavAltitudeMCP: scaleI16(float64(a.NavAltitudeMCP), 1),
		NavAltitudeFMS: scaleI16(float64(a.NavAltitudeFMS), 1),

		Signal:        scaleSignal(a.Signal.Average()),
		RegistryOwned: cfg.RegistryOwned,
	}

	row.SeenCentiS = int32(now.Sub(a.Seen).Seconds() * 100)
	// seen_pos is a pure timing field: it reports the age of the last
	// reliable fix even after the position valid bit has cleared.
	if !a.SeenPosReliable.IsZero() {
		row.SeenPosCentiS = int32(now.Sub(a.SeenPosReliable).Seconds() * 100)
	}

	lat, lon, posValid := a.PublishedPosition(now, cfg.Reliability)
	if posValid {
		row.Lat = int32(roundHalfToEven(lat * 1e6))
		row.Lon = int32(roundHalfToEven(lon * 1e6))
		row.PositionValid = true
	}

	if a.BaroAltValidity.Valid(now) {
		row.BaroAlt = scaleI16(float64(a.BaroAlt), 1.0/AltFactor)
		row.BaroAltValid = true
	}
	if a.GeomAltValidity.Valid(now) {
		row.GeomAlt = scaleI16(float64(a.GeomAlt), 1.0/AltFactor)
		row.GeomAltValid = true
	}
	if a.RateValidity.Valid(now) {
		row.BaroRate = scaleI16(float64(a.BaroRate), 1.0/RateDivisor)
		row.GeomRate = scaleI16(float64(a.GeomRate), 1.0/RateDivisor)
		row.BaroRateValid = true
		row.GeomRateValid = true
	}
	if a.SpeedValidity.Valid(now) {
		row.GS = scaleI16(a.GS, 1)
		row.Mach = scaleI16(a.Mach, MachFactor)
		row.GSValid = true
		row.MachValid = true
	}
	if a.TrackValidity.Valid(now) {
		row.Track = scaleI16(a.EffectiveTrack(now), AngleFactor)
		row.TrackValid = true
	}
	if a.HeadingValidity.Valid(now) {
		row.MagHeading = scaleI16(a.MagHeading, AngleFactor)
		row.TrueHeading = scaleI16(a.TrueHeading, AngleFactor)
		row.MagHeadingValid = true
		row.TrueHeadingValid = true
	}

	if a.TrackValidity.Valid(now) {
		row.TrackRate = scaleI16(a.TrackRate, TrackRateScale)
		row.Roll = scaleI16(a.Roll, RollScale)
		row.TrackRateValid = true
		row.RollValid = true
	}

	row.NavQNH = scaleI16(a.QNH, QNHFactor)
	row.NavQNHValid = a.QNH != 0
	row.NavHeading = scaleI16(a.NavHeading, AngleFactor)
	row.NavHeadingValid = a.NavHeading != 0

	if sq, err := parseSquawk(a.Squawk); err == nil {
		row.Squawk = sq
		row.SquawkValid = true
	}

	if a.CallsignValidity.Valid(now) && a.Callsign != "" {
		copy(row.Callsign[:], padCallsign(a.Callsign))
		row.CallsignValid = true
	}

	if a.EnvValidity.Valid(now) {
		row.WindDir = scaleI16(a.WindDir, 1)
		row.WindSpeed = scaleI16(a.WindSpeed, 1)
		row.OAT = scaleI16(a.OAT, 1)
		row.TAT = scaleI16(a.TAT, 1)
		row.TempValid = true

		withinAlt := math.Abs(float64(a.BaroAlt-a.WindAltitude)) < windAltitudeToleranceFt
		row.WindValid = a.EnvValidity.Valid(now) && withinAlt
	}

	return row
}

func padCallsign(cs string) []byte {
	b := make([]byte, 8)
	copy(b, []byte(cs))
	return b
}

func parseSquawk(s string) (uint16, error) {
	if s == "" {
		return 0, errEmptySquawk
	}
	var v uint16
	for _, c := range s {
		if c < '0' || c > '7' {
			return 0, errEmptySquawk
		}
		v = v*8 + uint16(c-'0')
	}
	return v, nil
}

type squawkErr string

func (e squawkErr) Error() string { return string(e) }

const errEmptySquawk = squawkErr("binproj: empty or invalid squawk")

// Marshal writes every field of row, in declaration order, in a fixed
// little-endian layout into a freshly allocated byte slice.
func Marshal(row Row) []byte {
	buf := make([]byte, 0, 128)
	put32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
	puti32 := func(v int32) { put32(uint32(v)) }
	put16 := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
	puti16 := func(v int16) { put16(uint16(v)) }
	put8 := func(v uint8) { buf = append(buf, v) }
	putBool := func(b bool) {
		if b {
			put8(1)
		} else {
			put8(0)
		}
	}

	put32(row.Address)
	put8(row.AddrType)
	puti32(row.SeenCentiS)
	puti32(row.SeenPosCentiS)
	puti32(row.Lat)
	puti32(row.Lon)
	putBool(row.PositionValid)
	puti16(row.BaroAlt)
	putBool(row.BaroAltValid)
	puti16(row.GeomAlt)
	putBool(row.GeomAltValid)
	puti16(row.BaroRate)
	putBool(row.BaroRateValid)
	puti16(row.GeomRate)
	putBool(row.GeomRateValid)
	puti16(row.GS)
	putBool(row.GSValid)
	puti16(row.Track)
	putBool(row.TrackValid)
	puti16(row.MagHeading)
	putBool(row.MagHeadingValid)
	puti16(row.TrueHeading)
	putBool(row.TrueHeadingValid)
	puti16(row.TrackRate)
	putBool(row.TrackRateValid)
	puti16(row.Roll)
	putBool(row.RollValid)
	puti16(row.Mach)
	putBool(row.MachValid)
	puti16(row.NavQNH)
	putBool(row.NavQNHValid)
	puti16(row.NavHeading)
	putBool(row.NavHeadingValid)
	puti16(row.NavAltitudeMCP)
	puti16(row.NavAltitudeFMS)
	put8(row.NavModes)
	put16(row.Squawk)
	putBool(row.SquawkValid)
	buf = append(buf, row.Callsign[:]...)
	putBool(row.CallsignValid)
	put8(row.ADSBVersion)
	put8(row.ADSRVersion)
	put8(row.TISBVersion)
	put8(row.NICA)
	put8(row.NICC)
	put8(row.NICBaro)
	put8(row.NACP)
	put8(row.NACV)
	put8(row.SIL)
	put8(row.GVA)
	put8(row.SDA)
	puti16(row.WindDir)
	puti16(row.WindSpeed)
	putBool(row.WindValid)
	puti16(row.OAT)
	puti16(row.TAT)
	putBool(row.TempValid)
	put8(row.Signal)
	put8(row.Category)
	put32(row.DBFlags)
	putBool(row.RegistryOwned)

	return buf
}

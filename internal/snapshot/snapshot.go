// Package snapshot is the JSON publisher adapter: it projects the
// engine table into the aircraft.json shape handed to consumers,
// sourced from the Aircraft record and its Validity-gated fields.
package snapshot

import (
	"time"

	"readsb-core/internal/engine"
)

// Aircraft is one row of a published snapshot. Fields follow the
// dump1090/readsb aircraft.json convention (hex, flight, alt_baro,
// ...); a field is omitted from JSON (zero value) whenever its source
// Validity is not Valid at the snapshot's `now`.
type Aircraft struct {
	Hex          string  `json:"hex"`
	Flight       string  `json:"flight,omitempty"`
	AltBaro      int     `json:"alt_baro,omitempty"`
	AltGeom      int     `json:"alt_geom,omitempty"`
	GS           float64 `json:"gs,omitempty"`
	Mach         float64 `json:"mach,omitempty"`
	Track        float64 `json:"track,omitempty"`
	BaroRate     int     `json:"baro_rate,omitempty"`
	GeomRate     int     `json:"geom_rate,omitempty"`
	Squawk       string  `json:"squawk,omitempty"`
	Category     string  `json:"category,omitempty"`
	Lat          float64 `json:"lat,omitempty"`
	Lon          float64 `json:"lon,omitempty"`
	NIC          int     `json:"nic,omitempty"`
	RC           int     `json:"rc,omitempty"`
	SeenPos      float64 `json:"seen_pos,omitempty"`
	Version      int     `json:"version,omitempty"`
	NICBaro      int     `json:"nic_baro,omitempty"`
	NACP         int     `json:"nac_p,omitempty"`
	NACV         int     `json:"nac_v,omitempty"`
	SIL          int     `json:"sil,omitempty"`
	SILType      string  `json:"sil_type,omitempty"`
	GVA          int     `json:"gva,omitempty"`
	SDA          int     `json:"sda,omitempty"`
	Messages     uint64  `json:"messages,omitempty"`
	Seen         float64 `json:"seen"`
	RSSI         float64 `json:"rssi,omitempty"`
	DBFlags      uint32  `json:"dbFlags,omitempty"`
	Registration string  `json:"r,omitempty"`
	Type         string  `json:"t,omitempty"`
}

// Scan is the top-level document (dump1090/readsb "aircraft.json").
type Scan struct {
	Now      float64    `json:"now"`
	Messages uint64     `json:"messages"`
	Aircraft []Aircraft `json:"aircraft"`
}

// Project turns one engine record into its published JSON row at now.
// A pure function, like binproj.Project; the two adapters share the
// Validity-gating rule but target different wire shapes.
func Project(a *engine.Aircraft, now time.Time, cfg engine.ReliabilityConfig) Aircraft {
	out := Aircraft{
		Hex:      a.HexString(),
		Category: categoryString(a.Category),
		Messages: a.Messages,
		Seen:     now.Sub(a.Seen).Seconds(),
		RSSI:     a.Signal.Average(),
		DBFlags:  a.DBFlags,
		Registration: a.Registration,
		Type:         a.TypeCode,
	}

	if a.CallsignValidity.Valid(now) {
		out.Flight = a.Callsign
	}
	if a.BaroAltValidity.Valid(now) {
		out.AltBaro = a.BaroAlt
	}
	if a.GeomAltValidity.Valid(now) {
		out.AltGeom = a.GeomAlt
	}
	if a.SpeedValidity.Valid(now) {
		out.GS = a.GS
		out.Mach = a.Mach
	}
	if a.TrackValidity.Valid(now) {
		out.Track = a.EffectiveTrack(now)
	}
	if a.RateValidity.Valid(now) {
		out.BaroRate = a.BaroRate
		out.GeomRate = a.GeomRate
	}
	if a.Squawk != "" {
		out.Squawk = a.Squawk
	}

	if lat, lon, ok := a.PublishedPosition(now, cfg); ok {
		out.Lat = lat
		out.Lon = lon
		out.NIC = a.NIC
		out.RC = a.Rc
		out.SeenPos = now.Sub(a.SeenPosReliable).Seconds()
	}

	out.Version = rewriteVersion(a.ADSBVersion)
	out.NICBaro = a.NICBaro
	out.NACP = a.NACP
	out.NACV = a.NACV
	out.SIL = a.SIL
	out.SILType = a.SILType
	out.GVA = a.GVA
	out.SDA = a.SDA

	return out
}

func rewriteVersion(v int) int {
	if v < 0 {
		return 15
	}
	return v
}

func categoryString(c engine.Category) string {
	if c == 0 {
		return ""
	}
	set := 'A' + rune((c>>4)&0xF)
	num := c & 0xF
	return string(set) + string(rune('0'+num))
}

// ProjectAll projects every active aircraft into a Scan document.
func ProjectAll(table *engine.Table, totalMessages uint64, now time.Time) Scan {
	active := table.ActiveSnapshot()
	cfg := table.Reliability()
	rows := make([]Aircraft, 0, len(active))
	for _, a := range active {
		rows = append(rows, Project(a, now, cfg))
	}
	return Scan{
		Now:      float64(now.UnixNano()) / 1e9,
		Messages: totalMessages,
		Aircraft: rows,
	}
}

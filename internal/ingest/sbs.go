// Package ingest is the decoder-thread feed: it turns an
// SBS/BaseStation text stream into updates against an engine.Table,
// driving Validity-gated field writes per message.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"readsb-core/internal/engine"
	"readsb-core/internal/registry"
)

// sbsMessage is the parsed form of one SBS "MSG" line before it is
// applied to a table record.
type sbsMessage struct {
	addr engine.Address

	callsign     string
	hasCallsign  bool
	altitude     int
	hasAltitude  bool
	groundSpeed  int
	hasSpeed     bool
	track        int
	hasTrack     bool
	lat, lon     float64
	hasPosition  bool
	verticalRate int
	hasRate      bool
	squawk       string
	hasSquawk    bool
	alert        bool
	spi          bool
	onGround     bool
}

// parseSBS parses one SBS "MSG" line. Format (22-field BaseStation):
// MSG,type,sid,aid,hex,fid,date_gen,time_gen,date_log,time_log,
// callsign,altitude,speed,track,lat,lon,vrate,squawk,alert,emergency,spi,onground.
func parseSBS(line string) (*sbsMessage, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}

	fields := strings.Split(line, ",")
	if fields[0] != "MSG" {
		return nil, nil
	}
	if len(fields) < 22 {
		return nil, fmt.Errorf("ingest: insufficient SBS fields: %d", len(fields))
	}

	hex := strings.TrimSpace(fields[4])
	if hex == "" {
		return nil, fmt.Errorf("ingest: missing ICAO hex")
	}
	addrVal, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("ingest: invalid ICAO hex %q: %w", hex, err)
	}

	msg := &sbsMessage{addr: engine.Address(addrVal)}

	if cs := strings.TrimSpace(fields[10]); cs != "" {
		msg.callsign = cs
		msg.hasCallsign = true
	}
	if v := strings.TrimSpace(fields[11]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			msg.altitude = n
			msg.hasAltitude = true
		}
	}
	if v := strings.TrimSpace(fields[12]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			msg.groundSpeed = n
			msg.hasSpeed = true
		}
	}
	if v := strings.TrimSpace(fields[13]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			msg.track = n
			msg.hasTrack = true
		}
	}
	if latS, lonS := strings.TrimSpace(fields[14]), strings.TrimSpace(fields[15]); latS != "" && lonS != "" {
		lat, errLat := strconv.ParseFloat(latS, 64)
		lon, errLon := strconv.ParseFloat(lonS, 64)
		if errLat == nil && errLon == nil {
			msg.lat, msg.lon = lat, lon
			msg.hasPosition = true
		}
	}
	if v := strings.TrimSpace(fields[16]); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			msg.verticalRate = n
			msg.hasRate = true
		}
	}
	if v := strings.TrimSpace(fields[17]); v != "" {
		msg.squawk = v
		msg.hasSquawk = true
	}
	msg.alert = strings.TrimSpace(fields[18]) == "1"
	msg.spi = len(fields) > 20 && strings.TrimSpace(fields[20]) == "1"
	msg.onGround = len(fields) > 21 && strings.TrimSpace(fields[21]) == "1"

	return msg, nil
}

// Apply installs msg onto table at now, creating the record if this
// is the first message seen for its address; only decoder threads
// call this. Field writes happen before their paired Validity.Touch.
// db may be nil (no registry wired); when non-nil, a brand-new record
// is resolved against it immediately, so registration/type/owner
// fields are populated from first sight rather than waiting on the
// next registry swap sweep.
func Apply(table *engine.Table, db *registry.Database, msg *sbsMessage, now time.Time) *engine.Aircraft {
	a := table.GetOrCreate(msg.addr, now)
	if dt := now.Sub(a.Seen).Seconds(); dt > 0 && a.Messages > 0 {
		// exponential moving average of the per-aircraft message rate
		a.MessageRate += (1/dt - a.MessageRate) * 0.1
	}
	a.Seen = now
	a.Messages++
	a.AddrType = engine.AddressADSBICAO

	if a.Messages == 1 && db != nil {
		registry.ApplyToAircraft(db, a)
	}

	if msg.hasCallsign {
		a.Callsign = msg.callsign
		a.CallsignValidity.StaleMS = engine.DefaultStaleMS
		a.CallsignValidity.ExpireMS = engine.DefaultExpireMS
		a.CallsignValidity.Touch(now)
	}
	if msg.hasAltitude {
		a.BaroAlt = msg.altitude
		a.BaroAltValidity.StaleMS = engine.DefaultStaleMS
		a.BaroAltValidity.ExpireMS = engine.DefaultExpireMS
		a.BaroAltValidity.Touch(now)
	}
	if msg.hasSpeed {
		a.GS = float64(msg.groundSpeed)
		a.SpeedValidity.StaleMS = engine.DefaultStaleMS
		a.SpeedValidity.ExpireMS = engine.DefaultExpireMS
		a.SpeedValidity.Touch(now)
	}
	if msg.hasTrack {
		a.Track = float64(msg.track)
		a.TrackValidity.StaleMS = engine.TrackExpireMS
		a.TrackValidity.ExpireMS = engine.TrackExpireMS
		a.TrackValidity.Touch(now)
	}
	if msg.hasRate {
		a.BaroRate = msg.verticalRate
		a.GeomRate = msg.verticalRate
		a.RateValidity.StaleMS = engine.DefaultStaleMS
		a.RateValidity.ExpireMS = engine.DefaultExpireMS
		a.RateValidity.Touch(now)
	}
	if msg.hasSquawk {
		a.Squawk = msg.squawk
	}
	if msg.onGround {
		a.AirGround = engine.AirGroundGround
	} else {
		a.AirGround = engine.AirGroundAirborne
	}
	a.Alert = msg.alert
	a.SPI = msg.spi

	if msg.hasPosition {
		a.UpdatePosition(msg.lat, msg.lon, now, table.Reliability())
		table.Activate(a)
	}

	if msg.verticalRate != 0 || msg.hasPosition {
		a.RecordTracePoint(engine.TracePoint{
			Timestamp: now, Lat: a.Lat, Lon: a.Lon,
			BaroAlt: a.BaroAlt, GS: a.GS, Track: a.Track,
		})
	}

	return a
}

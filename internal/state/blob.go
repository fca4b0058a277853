// Package state implements persisted internal state blobs: a
// zstd-framed dump of every aircraft record, sharded into 256
// numbered blobs by address, with a sibling ".zstl" sentinel marking
// a blob complete.
package state

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"readsb-core/internal/engine"
)

// BlobCount is the number of address-sharded blobs, numbered 00..FF.
const BlobCount = 256

func blobIndex(addr engine.Address) int {
	return int(uint32(addr) & 0xFF)
}

func blobName(idx int) string {
	return fmt.Sprintf("blob_%02X", idx)
}

// Record is the fixed-layout per-aircraft record persisted in a blob.
// It mirrors engine.Aircraft's exported, gob-encodable state; engine's
// internal linkage fields (bucketNext, activeIndex, globeIndex) are
// rebuilt by re-inserting into the table on load, not persisted.
type Record struct {
	Address       engine.Address
	AddrType      engine.AddressType
	Registration  string
	TypeCode      string
	TypeLong      string
	OwnerOperator string
	Year          string
	DBFlags       uint32

	Lat, Lon                 float64
	LatReliable, LonReliable float64
	PosReliable              bool
	NIC, Rc                  int
	SeenPosReliable          time.Time
	PosValidity              engine.Validity

	BaroAlt, GeomAlt        int
	BaroAltValidity         engine.Validity
	GeomAltValidity         engine.Validity
	BaroRate, GeomRate      int
	RateValidity            engine.Validity
	IAS, TAS                int
	Mach                    float64
	SpeedValidity           engine.Validity
	GS                      float64
	Track, TrackComputed    float64
	TrackValidity           engine.Validity
	MagHeading, TrueHeading float64
	HeadingValidity         engine.Validity
	TrackRate, Roll         float64

	Squawk         string
	Emergency      string
	Category       engine.Category
	NavAltitudeMCP int
	NavAltitudeFMS int
	QNH            float64
	NavHeading     float64
	NavModes       engine.NavModes
	NavAltSource   string
	Alert, SPI     bool
	AirGround      engine.AirGround

	ADSBVersion, ADSRVersion, TISBVersion int
	NICA, NICC, NICBaro                   int
	NACP, NACV                            int
	SIL                                   int
	SILType                               string
	GVA, SDA                              int

	WindDir, WindSpeed float64
	WindAltitude       int
	OAT, TAT           float64
	EnvValidity        engine.Validity

	Callsign         string
	CallsignValidity engine.Validity

	SignalSamples [8]float64
	SignalCount   int
	SignalNext    int
	ReceiverID    uint64
	ReceiverCount int

	Messages    uint64
	MessageRate float64

	Seen time.Time

	TracePoints       []engine.TracePoint // full history; recent is its own suffix
	TraceWriteCounter uint64
}

func recordFromAircraft(a *engine.Aircraft) Record {
	_, full := a.TracePoints()
	samples, count, next := a.Signal.Samples()

	return Record{
		Address: a.Address, AddrType: a.AddrType,
		Registration: a.Registration, TypeCode: a.TypeCode, TypeLong: a.TypeLong,
		OwnerOperator: a.OwnerOperator, Year: a.Year, DBFlags: a.DBFlags,

		Lat: a.Lat, Lon: a.Lon, LatReliable: a.LatReliable, LonReliable: a.LonReliable,
		PosReliable: a.PosReliable, NIC: a.NIC, Rc: a.Rc,
		SeenPosReliable: a.SeenPosReliable, PosValidity: a.PosValidity,

		BaroAlt: a.BaroAlt, GeomAlt: a.GeomAlt,
		BaroAltValidity: a.BaroAltValidity, GeomAltValidity: a.GeomAltValidity,
		BaroRate: a.BaroRate, GeomRate: a.GeomRate, RateValidity: a.RateValidity,
		IAS: a.IAS, TAS: a.TAS, Mach: a.Mach, SpeedValidity: a.SpeedValidity,
		GS: a.GS, Track: a.Track, TrackComputed: a.TrackComputed, TrackValidity: a.TrackValidity,
		MagHeading: a.MagHeading, TrueHeading: a.TrueHeading, HeadingValidity: a.HeadingValidity,
		TrackRate: a.TrackRate, Roll: a.Roll,

		Squawk: a.Squawk, Emergency: a.Emergency, Category: a.Category,
		NavAltitudeMCP: a.NavAltitudeMCP, NavAltitudeFMS: a.NavAltitudeFMS,
		QNH: a.QNH, NavHeading: a.NavHeading, NavModes: a.NavModes,
		NavAltSource: a.NavAltSource, Alert: a.Alert, SPI: a.SPI, AirGround: a.AirGround,

		ADSBVersion: a.ADSBVersion, ADSRVersion: a.ADSRVersion, TISBVersion: a.TISBVersion,
		NICA: a.NICA, NICC: a.NICC, NICBaro: a.NICBaro, NACP: a.NACP, NACV: a.NACV,
		SIL: a.SIL, SILType: a.SILType, GVA: a.GVA, SDA: a.SDA,

		WindDir: a.WindDir, WindSpeed: a.WindSpeed, WindAltitude: a.WindAltitude,
		OAT: a.OAT, TAT: a.TAT, EnvValidity: a.EnvValidity,

		Callsign: a.Callsign, CallsignValidity: a.CallsignValidity,

		SignalSamples: samples, SignalCount: count, SignalNext: next,
		ReceiverID: a.ReceiverID, ReceiverCount: a.ReceiverCount,

		Messages: a.Messages, MessageRate: a.MessageRate,
		Seen: a.Seen,

		TracePoints:       full,
		TraceWriteCounter: a.TraceWriteCounter,
	}
}

// applyTo installs rec's fields onto a, which the caller has obtained
// (and, if freshly created, not yet published) via table.GetOrCreate.
func (rec Record) applyTo(a *engine.Aircraft) {
	a.AddrType = rec.AddrType
	a.Registration, a.TypeCode, a.TypeLong = rec.Registration, rec.TypeCode, rec.TypeLong
	a.OwnerOperator, a.Year, a.DBFlags = rec.OwnerOperator, rec.Year, rec.DBFlags

	a.Lat, a.Lon = rec.Lat, rec.Lon
	a.LatReliable, a.LonReliable = rec.LatReliable, rec.LonReliable
	a.PosReliable, a.NIC, a.Rc = rec.PosReliable, rec.NIC, rec.Rc
	a.SeenPosReliable, a.PosValidity = rec.SeenPosReliable, rec.PosValidity

	a.BaroAlt, a.GeomAlt = rec.BaroAlt, rec.GeomAlt
	a.BaroAltValidity, a.GeomAltValidity = rec.BaroAltValidity, rec.GeomAltValidity
	a.BaroRate, a.GeomRate, a.RateValidity = rec.BaroRate, rec.GeomRate, rec.RateValidity
	a.IAS, a.TAS, a.Mach, a.SpeedValidity = rec.IAS, rec.TAS, rec.Mach, rec.SpeedValidity
	a.GS, a.Track, a.TrackComputed, a.TrackValidity = rec.GS, rec.Track, rec.TrackComputed, rec.TrackValidity
	a.MagHeading, a.TrueHeading, a.HeadingValidity = rec.MagHeading, rec.TrueHeading, rec.HeadingValidity
	a.TrackRate, a.Roll = rec.TrackRate, rec.Roll

	a.Squawk, a.Emergency, a.Category = rec.Squawk, rec.Emergency, rec.Category
	a.NavAltitudeMCP, a.NavAltitudeFMS = rec.NavAltitudeMCP, rec.NavAltitudeFMS
	a.QNH, a.NavHeading, a.NavModes = rec.QNH, rec.NavHeading, rec.NavModes
	a.NavAltSource, a.Alert, a.SPI, a.AirGround = rec.NavAltSource, rec.Alert, rec.SPI, rec.AirGround

	a.ADSBVersion, a.ADSRVersion, a.TISBVersion = rec.ADSBVersion, rec.ADSRVersion, rec.TISBVersion
	a.NICA, a.NICC, a.NICBaro = rec.NICA, rec.NICC, rec.NICBaro
	a.NACP, a.NACV = rec.NACP, rec.NACV
	a.SIL, a.SILType, a.GVA, a.SDA = rec.SIL, rec.SILType, rec.GVA, rec.SDA

	a.WindDir, a.WindSpeed, a.WindAltitude = rec.WindDir, rec.WindSpeed, rec.WindAltitude
	a.OAT, a.TAT, a.EnvValidity = rec.OAT, rec.TAT, rec.EnvValidity

	a.Callsign, a.CallsignValidity = rec.Callsign, rec.CallsignValidity

	a.Signal.Restore(rec.SignalSamples, rec.SignalCount, rec.SignalNext)
	a.ReceiverID, a.ReceiverCount = rec.ReceiverID, rec.ReceiverCount

	a.Messages, a.MessageRate = rec.Messages, rec.MessageRate
	a.Seen = rec.Seen

	for _, tp := range rec.TracePoints {
		a.RecordTracePoint(tp)
	}
	// The persisted counter wins if higher, so chunks written after a
	// restart still supersede pre-restart ones.
	if rec.TraceWriteCounter > a.TraceWriteCounter {
		a.TraceWriteCounter = rec.TraceWriteCounter
	}
}

func encodeBlob(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("state: zstd writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(records); err != nil {
		zw.Close()
		return nil, fmt.Errorf("state: encode blob: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("state: close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeBlob(data []byte) ([]Record, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("state: zstd reader: %w", err)
	}
	defer zr.Close()

	var records []Record
	if err := gob.NewDecoder(zr).Decode(&records); err != nil && err != io.EOF {
		return nil, fmt.Errorf("state: decode blob: %w", err)
	}
	return records, nil
}

// Dump writes every aircraft in table into its sharded blob files
// under dir, restricted to the blob selected by only (if non-nil). A
// blob's ".zstl" sentinel is only written after its data file lands,
// so a reader never observes a sentinel for a half-written blob.
func Dump(table *engine.Table, dir string, only *int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir %s: %w", dir, err)
	}

	shards := make([][]Record, BlobCount)
	table.ForEach(func(a *engine.Aircraft) {
		idx := blobIndex(a.Address)
		if only != nil && *only != idx {
			return
		}
		shards[idx] = append(shards[idx], recordFromAircraft(a))
	})

	for idx, records := range shards {
		if only != nil && *only != idx {
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := writeBlob(dir, idx, records); err != nil {
			return err
		}
	}
	return nil
}

func writeBlob(dir string, idx int, records []Record) error {
	data, err := encodeBlob(records)
	if err != nil {
		return err
	}

	name := filepath.Join(dir, blobName(idx))
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, name); err != nil {
		return fmt.Errorf("state: install %s: %w", name, err)
	}
	if err := os.WriteFile(name+".zstl", nil, 0o644); err != nil {
		return fmt.Errorf("state: write sentinel for %s: %w", name, err)
	}
	return nil
}

// LoadOne loads one blob_XX from dir and installs its records into
// table via GetOrCreate, then deletes the blob and its sentinel.
// Caller must hold the priority barrier.
func LoadOne(table *engine.Table, dir, blobFileName string, now time.Time) error {
	path := filepath.Join(dir, blobFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("state: read %s: %w", path, err)
	}

	records, err := decodeBlob(data)
	if err != nil {
		return err
	}

	for _, rec := range records {
		a := table.GetOrCreate(rec.Address, now)
		rec.applyTo(a)
	}

	os.Remove(path)
	os.Remove(path + ".zstl")
	return nil
}

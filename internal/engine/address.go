// Package engine implements the aircraft table: the process-wide,
// address-keyed registry of aircraft records, its hash index, quick
// cache and active set.
package engine

// Address is a 24-bit Mode S / ICAO transponder identifier. The high
// bits above the 24-bit range are never set by callers; AddressType
// carries whether the address is ICAO-assigned or anonymous (TIS-B).
type Address uint32

const addressMask = 0x00FFFFFF

// AddressType classifies how an address was derived.
type AddressType int

const (
	AddressADSBICAO AddressType = iota
	AddressADSBOther
	AddressTISB
	AddressMLAT
	AddressADSR
	AddressSurface
	AddressUnknown
)

func (t AddressType) String() string {
	switch t {
	case AddressADSBICAO:
		return "adsb_icao"
	case AddressADSBOther:
		return "adsb_other"
	case AddressTISB:
		return "tisb"
	case AddressMLAT:
		return "mlat"
	case AddressADSR:
		return "adsr"
	case AddressSurface:
		return "surface"
	default:
		return "unknown"
	}
}

// minHashBits and maxHashBits bound the bucket-count exponent.
const (
	minHashBits = 8
	maxHashBits = 24
)

// clampHashBits clamps a requested bucket-count exponent to [8, 24].
func clampHashBits(bits int) int {
	if bits < minHashBits {
		return minHashBits
	}
	if bits > maxHashBits {
		return maxHashBits
	}
	return bits
}

// hashAddress folds a 24-bit address into `bits` bits via a single
// Fibonacci-hashing multiply-shift.
func hashAddress(addr Address, bits int) uint32 {
	v := uint32(addr) & addressMask
	return (v * 0x9E3779B1) >> (32 - uint(bits))
}

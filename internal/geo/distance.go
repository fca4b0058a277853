// Package geo provides the small set of spherical-geometry helpers the
// aircraft engine needs: great-circle distance and bearing, used by
// the position-reliability hysteresis to reject a fresh CPR fix that
// implies an impossible groundspeed from the previous reliable fix,
// and to derive a computed track when the reported one goes stale.
package geo

import "math"

const earthRadiusNM = 3440.065 // nautical miles

// degToRad converts degrees to radians.
func degToRad(d float64) float64 { return d * math.Pi / 180.0 }

// HaversineNM returns the great-circle distance between two lat/lon
// points, in nautical miles.
func HaversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := degToRad(lat1), degToRad(lat2)
	dPhi := degToRad(lat2 - lat1)
	dLambda := degToRad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusNM * c
}

// ImpliedSpeedKt returns the groundspeed, in knots, implied by moving
// between two lat/lon fixes separated by elapsed wall-clock time.
// Returns 0 if elapsedSeconds <= 0.
func ImpliedSpeedKt(lat1, lon1, lat2, lon2 float64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	nm := HaversineNM(lat1, lon1, lat2, lon2)
	hours := elapsedSeconds / 3600.0
	return nm / hours
}

// BearingDeg returns the initial bearing, in degrees [0, 360), for the
// great-circle path from (lat1, lon1) to (lat2, lon2). Used to derive
// a computed track when the reported track has gone stale.
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := degToRad(lat1), degToRad(lat2)
	dLambda := degToRad(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x)

	deg := theta * 180.0 / math.Pi
	return math.Mod(deg+360.0, 360.0)
}

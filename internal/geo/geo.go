// Package geo provides the spherical navigation math used to derive
// movement between two position fixes: great-circle distance, initial
// bearing, 16-point compass direction and the Maidenhead grid locator.
//
// All functions are pure; coordinates are decimal degrees.
package geo

import "math"

// earthRadiusM is the spherical Earth radius the distance output is
// calibrated to. Kept fixed so results match existing consumers.
const earthRadiusM = 6372795.0

// BearingUndefined is returned when no forward azimuth exists
// (identical points, or a stationary fix pair).
const BearingUndefined = -1

// msToKnots converts meters/second to knots.
const msToKnots = 1.94384449

// Distance returns the great-circle distance in meters between two
// points, using the atan2 form of the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLon := radians(lon1 - lon2)
	sdLon := math.Sin(dLon)
	cdLon := math.Cos(dLon)

	phi1 := radians(lat1)
	phi2 := radians(lat2)
	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	sinPhi2 := math.Sin(phi2)
	cosPhi2 := math.Cos(phi2)

	num := cosPhi1*sinPhi2 - sinPhi1*cosPhi2*cdLon
	num = num*num + (cosPhi2*sdLon)*(cosPhi2*sdLon)
	num = math.Sqrt(num)
	den := sinPhi1*sinPhi2 + cosPhi1*cosPhi2*cdLon

	return math.Atan2(num, den) * earthRadiusM
}

// Bearing returns the initial bearing (forward azimuth) in whole
// degrees [0,360) from point 1 to point 2, or BearingUndefined when
// the points coincide.
func Bearing(lat1, lon1, lat2, lon2 float64) int {
	if lat1 == lat2 && lon1 == lon2 {
		return BearingUndefined
	}
	dLon := radians(lon2 - lon1)
	phi1 := radians(lat1)
	phi2 := radians(lat2)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	// Normalize before truncating so negative azimuths round the same
	// way as positive ones.
	return int(deg+360) % 360
}

var cardinals = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Cardinal maps a bearing in degrees to a 16-point compass
// abbreviation. Sectors are 22.5 degrees wide and centered on their
// name, so e.g. 350..11 all map to "N".
func Cardinal(course int) string {
	idx := int((float64(course) + 11.25) / 22.5)
	return cardinals[idx%16]
}

// Locator returns the 6-character Maidenhead grid square for a
// coordinate pair. The grid nests three levels:
//
//	field     A-Z  20 deg lon x 10 deg lat
//	square    0-9   2 deg lon x  1 deg lat
//	subsquare a-x   5 min lon x 2.5 min lat
func Locator(lat, lon float64) string {
	rem := lon + 180.0
	o1 := int(rem / 20.0)
	rem -= float64(o1) * 20.0
	o2 := int(rem / 2.0)
	rem -= float64(o2) * 2.0
	o3 := int(12.0 * rem)

	rem = lat + 90.0
	a1 := int(rem / 10.0)
	rem -= float64(a1) * 10.0
	a2 := int(rem)
	rem -= float64(a2)
	a3 := int(24.0 * rem)

	return string([]byte{
		byte(o1) + 'A',
		byte(a1) + 'A',
		byte(o2) + '0',
		byte(a2) + '0',
		byte(o3) + 'a',
		byte(a3) + 'a',
	})
}

// Movement is the derived velocity estimate between two fixes. It is
// recomputed on demand and never persisted.
type Movement struct {
	DistanceM  float64
	SpeedMS    float64
	Knots      int
	BearingDeg int // BearingUndefined when stationary
}

// DeriveMovement computes distance, speed and bearing from a previous
// fix to a current one, given the elapsed time. The bearing is only
// computed for a moving pair (rounded speed above zero knots), which
// avoids the atan2 noise of near-identical coordinates.
func DeriveMovement(prevLat, prevLon, curLat, curLon float64, elapsed float64) Movement {
	m := Movement{BearingDeg: BearingUndefined}
	if elapsed <= 0 {
		return m
	}
	m.DistanceM = Distance(prevLat, prevLon, curLat, curLon)
	m.SpeedMS = m.DistanceM / elapsed
	m.Knots = int(math.Round(m.SpeedMS * msToKnots))
	if m.Knots > 0 {
		m.BearingDeg = Bearing(prevLat, prevLon, curLat, curLon)
	}
	return m
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

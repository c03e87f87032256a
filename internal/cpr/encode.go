package cpr

import "math"

// Encode computes the raw CPR coordinates an aircraft at lat, lon would
// transmit in a frame of the given parity.
func Encode(lat, lon float64, odd, surface bool) Position {
	parity := Even
	if odd {
		parity = Odd
	}
	span := 360.0
	if surface {
		span = 90.0
	}

	dLat := span / float64(60-parity)
	yz := math.Floor(cprMax*modFloat(lat, dLat)/dLat + 0.5)
	rlat := dLat * (yz/cprMax + math.Floor(lat/dLat))

	dLon := span / float64(max(NL(rlat)-parity, 1))
	xz := math.Floor(cprMax*modFloat(lon, dLon)/dLon + 0.5)

	return Position{
		Lat: uint32(yz) % cprMax,
		Lon: uint32(xz) % cprMax,
	}
}

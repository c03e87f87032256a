package cpr

import (
	"fmt"
	"math"
)

// ResolveLocal decodes a single CPR frame against a reference position,
// typically the receiver or the last known position of the aircraft. The
// result is only correct when the aircraft is within half a zone of the
// reference (about 180 NM airborne, 45 NM on the surface).
func ResolveLocal(lat, lon uint32, odd, surface bool, refLat, refLon float64) (float64, float64, error) {
	if err := checkRaw(Position{Lat: lat, Lon: lon}); err != nil {
		return 0, 0, err
	}
	if refLat < -90 || refLat > 90 {
		return 0, 0, fmt.Errorf("%w: reference latitude %.6f", ErrOutOfBounds, refLat)
	}

	parity := Even
	if odd {
		parity = Odd
	}

	span := 360.0
	if surface {
		span = 90.0
	}
	dLat := span / float64(60-parity)

	latCPR := float64(lat) / cprMax
	lonCPR := float64(lon) / cprMax

	j := math.Floor(refLat/dLat) + math.Floor(0.5+modFloat(refLat, dLat)/dLat-latCPR)
	rlat := dLat * (j + latCPR)
	if rlat < -90 || rlat > 90 {
		return 0, 0, fmt.Errorf("%w: %.6f", ErrOutOfBounds, rlat)
	}

	ni := max(NL(rlat)-parity, 1)
	dLon := span / float64(ni)

	m := math.Floor(refLon/dLon) + math.Floor(0.5+modFloat(refLon, dLon)/dLon-lonCPR)
	rlon := dLon * (m + lonCPR)

	return rlat, normalizeLon(rlon), nil
}

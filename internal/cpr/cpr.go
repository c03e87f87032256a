// Package cpr resolves Compact Position Reporting coordinates carried by
// ADS-B position messages into latitude and longitude.
package cpr

import (
	"errors"
	"fmt"
	"math"
)

// cprMax is 2^17, the scale of a raw 17-bit CPR coordinate
const cprMax = 131072.0

const (
	Even = 0
	Odd  = 1
)

var (
	ErrOutOfBounds  = errors.New("cpr: latitude out of bounds")
	ErrZoneMismatch = errors.New("cpr: frames in different longitude zones")
)

// Position is one raw CPR coordinate pair as transmitted.
type Position struct {
	Lat uint32
	Lon uint32
}

// Pair holds an even and an odd frame from the same aircraft. LastFormat is
// the parity of the most recently received frame and selects which of the
// two candidate positions is returned.
type Pair struct {
	Even       Position
	Odd        Position
	LastFormat int
	Surface    bool
}

// ResolveGlobal decodes an even/odd pair without a reference position.
// Surface pairs resolve only within one 90 degree quadrant, lat and lon in
// [0, 90); use ResolveSurface to place them.
func ResolveGlobal(p Pair) (lat, lon float64, err error) {
	return resolve(p, nil)
}

// ResolveSurface decodes a surface even/odd pair and moves the result into
// the quadrant nearest to the reference position.
func ResolveSurface(p Pair, refLat, refLon float64) (lat, lon float64, err error) {
	if refLat < -90 || refLat > 90 {
		return 0, 0, fmt.Errorf("%w: reference latitude %.6f", ErrOutOfBounds, refLat)
	}
	p.Surface = true
	return resolve(p, &reference{lat: refLat, lon: refLon})
}

type reference struct {
	lat, lon float64
}

func resolve(p Pair, ref *reference) (lat, lon float64, err error) {
	if err := checkRaw(p.Even); err != nil {
		return 0, 0, err
	}
	if err := checkRaw(p.Odd); err != nil {
		return 0, 0, err
	}

	dLat0, dLat1 := 360.0/60.0, 360.0/59.0
	if p.Surface {
		dLat0, dLat1 = 90.0/60.0, 90.0/59.0
	}

	lat0 := float64(p.Even.Lat)
	lat1 := float64(p.Odd.Lat)
	lon0 := float64(p.Even.Lon)
	lon1 := float64(p.Odd.Lon)

	// latitude index
	j := int(math.Floor((59*lat0-60*lat1)/cprMax + 0.5))

	rlat0 := dLat0 * (float64(modInt(j, 60)) + lat0/cprMax)
	rlat1 := dLat1 * (float64(modInt(j, 59)) + lat1/cprMax)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, fmt.Errorf("%w: even %.6f odd %.6f", ErrOutOfBounds, rlat0, rlat1)
	}

	// surface latitudes are northern; the southern candidate is 90 below
	if ref != nil && math.Abs(rlat0-90-ref.lat) < math.Abs(rlat0-ref.lat) {
		rlat0 -= 90
		rlat1 -= 90
	}

	nl := NL(rlat0)
	if nl1 := NL(rlat1); nl != nl1 {
		return 0, 0, fmt.Errorf("%w: NL %d and %d", ErrZoneMismatch, nl, nl1)
	}

	parity := Even
	rlat, raw := rlat0, lon0
	if p.LastFormat != Even {
		parity = Odd
		rlat, raw = rlat1, lon1
	}

	ni := max(nl-parity, 1)
	m := int(math.Floor((lon0*float64(nl-1)-lon1*float64(nl))/cprMax + 0.5))

	dLon := 360.0 / float64(ni)
	if p.Surface {
		dLon = 90.0 / float64(ni)
	}
	rlon := dLon * (float64(modInt(m, ni)) + raw/cprMax)
	if ref != nil {
		rlon = nearestQuadrant(rlon, ref.lon)
	}

	return rlat, normalizeLon(rlon), nil
}

// nearestQuadrant returns lon + k*90 closest to refLon.
func nearestQuadrant(lon, refLon float64) float64 {
	best := lon
	for k := 1; k < 4; k++ {
		c := lon + float64(k)*90
		if lonDistance(c, refLon) < lonDistance(best, refLon) {
			best = c
		}
	}
	return best
}

func lonDistance(a, b float64) float64 {
	return math.Abs(normalizeLon(a - b))
}

func checkRaw(p Position) error {
	if p.Lat >= cprMax || p.Lon >= cprMax {
		return fmt.Errorf("%w: raw value %d/%d exceeds 17 bits", ErrOutOfBounds, p.Lat, p.Lon)
	}
	return nil
}

// modInt is a modulo that is always positive.
func modInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

// modFloat is the floating point counterpart of modInt.
func modFloat(a, b float64) float64 {
	return a - b*math.Floor(a/b)
}

// normalizeLon maps a longitude into [-180, 180).
func normalizeLon(lon float64) float64 {
	return lon - math.Floor((lon+180)/360)*360
}

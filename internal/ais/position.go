package ais

import "math"

const (
	turnNotAvailable    = -128
	courseNotAvailable  = 3600
	headingNotAvailable = 511
)

func decodePosition(r *fieldReader, opts DecodeOptions) *PositionReport {
	p := &PositionReport{
		NavStatus:   int(r.unsigned(38, 4)),
		TurnRaw:     int(r.signed(42, 8)),
		SOG:         float64(r.unsigned(50, 10)) / 10,
		PosAccuracy: r.flag(60),
		Second:      int(r.unsigned(137, 6)),
		Maneuver:    int(r.unsigned(143, 2)),
		RAIM:        r.flag(148),
		RadioStatus: uint32(r.unsigned(149, 19)),
	}

	p.RateOfTurn = rateOfTurn(p.TurnRaw)
	p.Lat, p.Lon = decodeLatLon(r.signed(89, 27), r.signed(61, 28))

	if cog := r.unsigned(116, 12); cog != courseNotAvailable {
		v := float64(cog) / 10
		p.COG = &v
	}
	if hdg := int(r.unsigned(128, 9)); hdg != headingNotAvailable {
		p.Heading = &hdg
	}

	if opts.DecodeNames {
		p.NavStatusName = lookup(navStatusNames[:], p.NavStatus)
		p.ManeuverName = lookup(maneuverNames[:], p.Maneuver)
	}
	return p
}

// rateOfTurn converts the ROT indicator to degrees per minute. Only values
// backed by a turn indicator (-126..126) are converted.
func rateOfTurn(raw int) *float64 {
	if raw == turnNotAvailable || raw < -126 || raw > 126 {
		return nil
	}
	v := math.Pow(float64(raw)/4.733, 2)
	if raw < 0 {
		v = -v
	}
	v = math.Round(v*10) / 10
	return &v
}

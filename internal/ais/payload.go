package ais

import (
	"math"

	"airsuck/internal/bits"
)

// coordinate sentinels: 91 and 181 degrees in 1/10000 minute
const (
	latNotAvailable = 91 * 600000
	lonNotAvailable = 181 * 600000
)

// fieldReader reads fixed position fields from an unarmored payload and
// remembers whether any of them ran past the end.
type fieldReader struct {
	data  []byte
	n     int
	short bool
}

func (r *fieldReader) unsigned(offset, width int) uint64 {
	if offset+width > r.n {
		r.short = true
		return 0
	}
	v, _ := bits.Field(r.data, offset, width)
	return v
}

func (r *fieldReader) signed(offset, width int) int64 {
	return bits.SignExtend(r.unsigned(offset, width), uint8(width))
}

func (r *fieldReader) flag(offset int) bool {
	return r.unsigned(offset, 1) == 1
}

// decodePayload unarmors rec.Payload and fills the generic fields and, for
// supported types, the typed body.
func decodePayload(rec *Record, opts DecodeOptions) error {
	data, n, err := unarmor(rec.Payload, rec.FillBits)
	if err != nil {
		return err
	}
	r := &fieldReader{data: data, n: n}

	rec.PayloadType = int(r.unsigned(0, 6))
	if r.short {
		return nil
	}
	rec.Repeat = int(r.unsigned(6, 2))
	rec.MMSI = uint32(r.unsigned(8, 30))

	switch rec.PayloadType {
	case 1, 2, 3:
		if p := decodePosition(r, opts); !r.short {
			rec.Position = p
		}
	case 4:
		if b := decodeBaseStation(r); !r.short {
			rec.BaseStation = b
		}
	}
	return nil
}

// decodeLatLon scales raw coordinates to degrees rounded to 4 decimals.
// Values outside the valid range, including the not-available sentinels,
// are dropped.
func decodeLatLon(rawLat, rawLon int64) (*float64, *float64) {
	if rawLat == latNotAvailable || rawLon == lonNotAvailable {
		return nil, nil
	}
	lat := round4(float64(rawLat) / 600000)
	lon := round4(float64(rawLon) / 600000)
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return nil, nil
	}
	return &lat, &lon
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

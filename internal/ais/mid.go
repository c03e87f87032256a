package ais

// MID returns the Maritime Identification Digits embedded in an MMSI, or
// zero when the MMSI class carries none (for example 970 AIS-SART units).
func MID(mmsi uint32) int {
	switch {
	case mmsi >= 1000000000:
		return 0
	case mmsi >= 980000000:
		// 98MIDxxxx craft associated with a parent ship, 99MIDxxxx aids to navigation
		return int(mmsi/10000) % 1000
	case mmsi >= 970000000:
		return 0
	case mmsi >= 800000000 && mmsi < 900000000:
		// 8MIDxxxxx handheld VHF
		return int(mmsi/100000) % 1000
	case mmsi >= 200000000 && mmsi < 800000000:
		return int(mmsi / 1000000)
	case mmsi >= 111000000 && mmsi < 112000000:
		// 111MIDxxx SAR aircraft
		return int(mmsi/1000) % 1000
	case mmsi < 10000000:
		// 00MIDxxxx coast stations
		return int(mmsi / 10000)
	case mmsi < 100000000:
		// 0MIDxxxxx group calls
		return int(mmsi / 100000)
	}
	return 0
}

// MID returns the MID of the record's MMSI.
func (r Record) MID() int {
	return MID(r.MMSI)
}

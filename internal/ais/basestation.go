package ais

func decodeBaseStation(r *fieldReader) *BaseStationReport {
	b := &BaseStationReport{
		Year:        int(r.unsigned(38, 14)),
		Month:       int(r.unsigned(52, 4)),
		Day:         int(r.unsigned(56, 5)),
		Hour:        int(r.unsigned(61, 5)),
		Minute:      int(r.unsigned(66, 6)),
		Second:      int(r.unsigned(72, 6)),
		PosAccuracy: r.flag(78),
		EPFD:        int(r.unsigned(134, 4)),
		Spare:       int(r.unsigned(138, 10)),
		RAIM:        r.flag(148),
		RadioStatus: uint32(r.unsigned(149, 19)),
	}
	b.Lat, b.Lon = decodeLatLon(r.signed(107, 27), r.signed(79, 28))
	b.EPFDName = epfdName(b.EPFD)
	return b
}

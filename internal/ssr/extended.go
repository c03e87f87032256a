package ssr

import (
	"fmt"
	"math"
)

// ESMessage is the decoded ME field of an extended squitter. The set of
// implementations is closed.
type ESMessage interface {
	isESMessage()
}

// RawCPR is an undecoded CPR position.
type RawCPR struct {
	EvenOdd int    `json:"evenOdd"`
	RawLat  uint32 `json:"rawLat"`
	RawLon  uint32 `json:"rawLon"`
}

// NoPosition is format type 0.
type NoPosition struct {
	NXC int `json:"nxc"`
}

// Identification is format types 1-4.
type Identification struct {
	Category     string `json:"category"`
	CategoryName string `json:"categoryName,omitempty"`
	IDInfo       string `json:"idInfo"`
}

// SurfacePosition is format types 5-8.
type SurfacePosition struct {
	RawCPR
	NXC          int      `json:"nxc"`
	Movement     int      `json:"movement"`
	HeadingValid bool     `json:"headingValid"`
	Heading      *float64 `json:"heading,omitempty"`
	UTCSync      bool     `json:"utcSync"`
}

// AirbornePosition is format types 9-18 (barometric) and 20-22 (GNSS).
type AirbornePosition struct {
	RawCPR
	NXC       int    `json:"nxc"`
	SingleAnt int    `json:"singleAnt"`
	SS        int    `json:"ss"`
	SSName    string `json:"ssName,omitempty"`
	Emergency bool   `json:"emergency,omitempty"`
	AltType   string `json:"altType"`
	Alt       *int   `json:"alt,omitempty"`
	UTCSync   bool   `json:"utcSync"`
}

// AirborneVelocity is format type 19.
type AirborneVelocity struct {
	SubType      int      `json:"subType"`
	DataFmt      string   `json:"dataFmt,omitempty"`
	SrcFlag      int      `json:"srcFlag"`
	IntentFlag   int      `json:"intentFlag"`
	IFRCap       int      `json:"ifrCap"`
	NXC          int      `json:"nxc"`
	VertRate     *int     `json:"vertRate,omitempty"`
	AltDelta     *int     `json:"altDelta,omitempty"`
	Supersonic   bool     `json:"supersonic"`
	GndSpeed     *float64 `json:"gndspeed,omitempty"`
	Heading      *float64 `json:"heading,omitempty"`
	HeadingAvail *bool    `json:"headingAvail,omitempty"`
	Airspeed     *int     `json:"airspeed,omitempty"`
	AirspeedRef  string   `json:"airspeedRef,omitempty"`
}

// TestMessage is format type 23. Subtype 7 carries a squawk.
type TestMessage struct {
	SubType int     `json:"subType"`
	Squawk  *Squawk `json:"squawk,omitempty"`
}

// AircraftStatus is format type 28.
type AircraftStatus struct {
	SubType   int     `json:"subType"`
	ES        *int    `json:"es,omitempty"`
	ESName    string  `json:"esName,omitempty"`
	Emergency bool    `json:"emergency,omitempty"`
	Squawk    *Squawk `json:"squawk,omitempty"`
}

// Undecoded marks format types recorded by name only: system status,
// reserved codes, target state, operational coordination and status.
type Undecoded struct{}

func (NoPosition) isESMessage()       {}
func (Identification) isESMessage()   {}
func (SurfacePosition) isESMessage()  {}
func (AirbornePosition) isESMessage() {}
func (AirborneVelocity) isESMessage() {}
func (TestMessage) isESMessage()      {}
func (AircraftStatus) isESMessage()   {}
func (Undecoded) isESMessage()        {}

func decodeExtendedSquitter(frame []byte, df int, opts DecodeOptions) ExtendedSquitter {
	es := ExtendedSquitter{CA: int(frame[0] & 0x07)}
	addr := newAddress(frame[1], frame[2], frame[3])

	decodeME := true
	if df == 17 {
		es.ICAO = &addr
	} else {
		if opts.DecodeNames {
			es.CtrlName = ctrlNames[es.CA]
		}
		switch es.CA {
		case 0, 6:
			es.ICAO = &addr
		case 1:
			es.Addr = &addr
		default:
			decodeME = false
		}
	}

	if len(frame) < 14 {
		return es
	}

	es.Fmt = int(frame[4] >> 3)
	if opts.DecodeNames {
		es.FmtName = fmtName(es.Fmt)
	}
	if decodeME {
		es.Message = decodeMessage(frame, es.Fmt, opts)
	}
	return es
}

func decodeMessage(frame []byte, f int, opts DecodeOptions) ESMessage {
	switch {
	case f == 0:
		return NoPosition{NXC: 0}
	case f >= 1 && f <= 4:
		return decodeIdentification(frame, f, opts)
	case f >= 5 && f <= 8:
		return decodeSurfacePosition(frame, f)
	case f >= 9 && f <= 18, f >= 20 && f <= 22:
		return decodeAirbornePosition(frame, f, opts)
	case f == 19:
		return decodeAirborneVelocity(frame)
	case f == 23:
		return decodeTestMessage(frame)
	case f == 28:
		return decodeAircraftStatus(frame, opts)
	}
	return Undecoded{}
}

func decodeIdentification(frame []byte, f int, opts DecodeOptions) Identification {
	id := Identification{
		Category: fmt.Sprintf("%c%d", rune(0x45-f), frame[4]&0x07),
		IDInfo:   callsign(frame[5:11]),
	}
	if opts.DecodeNames {
		id.CategoryName = categoryNames[id.Category]
	}
	return id
}

func rawCPR(frame []byte) RawCPR {
	return RawCPR{
		EvenOdd: int(frame[6]&0x04) >> 2,
		RawLat:  uint32(frame[6]&0x03)<<15 | uint32(frame[7])<<7 | uint32(frame[8])>>1,
		RawLon:  uint32(frame[8]&0x01)<<16 | uint32(frame[9])<<8 | uint32(frame[10]),
	}
}

func decodeSurfacePosition(frame []byte, f int) SurfacePosition {
	sp := SurfacePosition{
		RawCPR:       rawCPR(frame),
		NXC:          14 - f,
		Movement:     int(frame[4]&0x07)<<4 | int(frame[5]>>4),
		HeadingValid: frame[5]&0x08 != 0,
		UTCSync:      frame[6]&0x08 != 0,
	}
	if sp.HeadingValid {
		raw := int(frame[5]&0x07)<<4 | int(frame[6]>>4)
		sp.Heading = floatPtr(round1(float64(raw) * 2.8125))
	}
	return sp
}

func decodeAirbornePosition(frame []byte, f int, opts DecodeOptions) AirbornePosition {
	ap := AirbornePosition{
		RawCPR:    rawCPR(frame),
		SingleAnt: int(frame[4] & 0x01),
		SS:        int(frame[4]&0x06) >> 1,
		UTCSync:   (f <= 10 || f >= 20) && frame[6]&0x08 != 0,
	}
	if f <= 18 {
		ap.NXC = 18 - f
		ap.AltType = "Baro"
	} else {
		ap.NXC = 29 - f
		ap.AltType = "GNSS"
	}
	// permanent alert
	ap.Emergency = ap.SS == 1
	if opts.DecodeNames {
		ap.SSName = ssNames[ap.SS]
	}
	if alt, ok := altitude12((uint16(frame[5])<<8 | uint16(frame[6])) >> 4); ok {
		ap.Alt = intPtr(alt)
	}
	return ap
}

func decodeAirborneVelocity(frame []byte) AirborneVelocity {
	v := AirborneVelocity{
		SubType:    int(frame[4] & 0x07),
		SrcFlag:    int(frame[8]>>4) & 0x01,
		IntentFlag: int(frame[5] >> 7),
		IFRCap:     int(frame[5]&0x40) >> 6,
		NXC:        int(frame[5]&0x38) >> 3,
	}
	v.Supersonic = v.SubType == 2 || v.SubType == 4

	if raw := int(frame[8]&0x07)<<6 | int(frame[9]&0xfc)>>2; raw > 0 {
		rate := (raw - 1) * 64
		if frame[8]&0x08 != 0 {
			rate = -rate
		}
		v.VertRate = intPtr(rate)
	}

	if raw := int(frame[10] & 0x7f); raw > 0 {
		delta := (raw - 1) * 25
		if frame[10]&0x80 != 0 {
			delta = -delta
		}
		v.AltDelta = intPtr(delta)
	}

	switch v.SubType {
	case 1, 2:
		v.DataFmt = "crt"
		ew := (int(frame[5]&0x03)<<8 | int(frame[6])) - 1
		ns := (int(frame[7]&0x7f)<<3 | int(frame[8]>>5)) - 1
		// a raw component of zero means no velocity information
		if ew >= 0 && ns >= 0 {
			if v.Supersonic {
				ew *= 4
				ns *= 4
			}
			v.GndSpeed = floatPtr(round1(math.Hypot(float64(ew), float64(ns))))
			if frame[5]&0x04 != 0 {
				ew = -ew
			}
			if frame[7]&0x80 != 0 {
				ns = -ns
			}
			heading := math.Atan2(float64(ew), float64(ns)) * 180 / math.Pi
			if heading < 0 {
				heading += 360
			}
			v.Heading = floatPtr(round1(heading))
		}
	case 3, 4:
		v.DataFmt = "plr"
		avail := frame[5]&0x04 != 0
		v.HeadingAvail = &avail
		if avail {
			raw := int(frame[5]&0x03)<<8 | int(frame[6])
			v.Heading = floatPtr(round1(float64(raw) * 0.3515625))
		}
		if raw := int(frame[7]&0x7f)<<3 | int(frame[8]>>5); raw > 0 {
			speed := raw - 1
			if v.Supersonic {
				speed *= 4
			}
			v.Airspeed = intPtr(speed)
		}
		if frame[7]>>7 == 1 {
			v.AirspeedRef = "true"
		} else {
			v.AirspeedRef = "indicated"
		}
	}

	return v
}

func decodeTestMessage(frame []byte) TestMessage {
	tm := TestMessage{SubType: int(frame[4] & 0x07)}
	if tm.SubType == 7 {
		// ME bits 9-21 carry the 13-bit ID field
		w := uint16(frame[5])<<8 | uint16(frame[6])
		sq := squawkFromGillham(w>>3&0x1fff)
		tm.Squawk = &sq
	}
	return tm
}

func decodeAircraftStatus(frame []byte, opts DecodeOptions) AircraftStatus {
	as := AircraftStatus{SubType: int(frame[4] & 0x07)}
	if as.SubType != 1 {
		return as
	}

	es := int(frame[5]&0xe0) >> 5
	as.ES = intPtr(es)
	as.Emergency = es > 0
	if opts.DecodeNames {
		as.ESName = esNames[es]
	}

	sq := squawkFromGillham(uint16(frame[5])<<8 | uint16(frame[6]))
	if sq.Emergency {
		as.Emergency = true
	}
	as.Squawk = &sq
	return as
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

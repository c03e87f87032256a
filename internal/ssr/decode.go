package ssr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"airsuck/internal/bits"
)

// identificationMarker is the Comm-B data selector of the aircraft
// identification register (BDS 2,0).
const identificationMarker = 0x20

// Decode decodes one raw frame. It never panics: frames of an unexpected
// length produce a ModeInvalid record.
func Decode(frame []byte, opts DecodeOptions) Record {
	rec := Record{Len: len(frame)}

	switch len(frame) {
	case 2:
		rec.Mode = ModeAC
		rec.AC = decodeModeAC(frame)
	case 7, 14:
		rec.Mode = ModeS
		rec.S = decodeModeS(frame, opts)
	default:
		rec.Mode = ModeInvalid
	}

	return rec
}

// DecodeHex decodes a frame given as a hex string.
func DecodeHex(s string, opts DecodeOptions) (Record, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Record{Mode: ModeInvalid}, fmt.Errorf("%w: %v", ErrInvalidLength, err)
	}
	return Decode(data, opts), nil
}

// decodeModeAC handles 2-byte replies. Receivers deliver these with the
// squawk already in hex-digit form, so 0x1200 is squawk 1200.
func decodeModeAC(frame []byte) *ACReply {
	v := uint16(frame[0])<<8 | uint16(frame[1])
	reply := &ACReply{Squawk: newSquawk(v)}
	if alt, ok := squawkToModeC(v); ok {
		reply.CAlt = intPtr(alt)
	}
	return reply
}

func decodeModeS(frame []byte, opts DecodeOptions) *SReply {
	df := int(frame[0] >> 3)
	frameCRC, cmpCRC := Checksum(frame)

	reply := &SReply{
		DF:       df,
		FrameCRC: frameCRC,
		CmpCRC:   cmpCRC,
	}
	if opts.DecodeNames {
		reply.DFName = dfName(df)
	}

	switch df {
	case 0:
		reply.Payload = decodeShortACAS(frame)
	case 4:
		reply.Payload = AltitudeReply{
			Surveillance: decodeSurveillance(frame, opts),
			Alt:          altitudeField(frame),
		}
	case 5:
		reply.Payload = IdentityReply{
			Surveillance: decodeSurveillance(frame, opts),
			Squawk:       squawkFromGillham(uint16(frame[2])<<8 | uint16(frame[3])),
		}
	case 11:
		reply.Payload = AllCallReply{
			CA:   int(frame[0] & 0x07),
			ICAO: newAddress(frame[1], frame[2], frame[3]),
		}
	case 16:
		reply.Payload = LongACAS{Alt: altitudeField(frame)}
	case 17, 18:
		reply.Payload = decodeExtendedSquitter(frame, df, opts)
	case 20:
		reply.Payload = CommBAltitudeReply{
			Surveillance: decodeSurveillance(frame, opts),
			Alt:          altitudeField(frame),
			IDInfo:       commBIdentification(frame),
		}
	case 21:
		reply.Payload = CommBIdentityReply{
			Surveillance: decodeSurveillance(frame, opts),
			Squawk:       squawkFromGillham(uint16(frame[2])<<8 | uint16(frame[3])),
			IDInfo:       commBIdentification(frame),
		}
	default:
		reply.Payload = Unsupported{}
	}

	return reply
}

func decodeShortACAS(frame []byte) ShortACAS {
	vs := "air"
	if frame[0]&0x04 != 0 {
		vs = "gnd"
	}
	return ShortACAS{
		VertStat: vs,
		CC:       int(frame[0]&0x02) >> 1,
		SL:       int(frame[1]&0xe0) >> 5,
		Alt:      altitudeField(frame),
	}
}

func decodeSurveillance(frame []byte, opts DecodeOptions) Surveillance {
	fs := int(frame[0] & 0x07)
	s := Surveillance{
		FS:    fs,
		Alert: fs >= 2 && fs <= 4,
		SPI:   fs == 4 || fs == 5,
		DR:    int(frame[1]&0xf8) >> 3,
		IIS:   int(frame[1]&0x07)<<1 | int(frame[2]>>7),
		IDS:   int(frame[2]&0x60) >> 5,
	}
	if opts.DecodeNames {
		s.FSName = lookup(fsNames[:], s.FS)
		s.DRName = lookup(drNames[:], s.DR)
		s.IDSName = lookup(idsNames[:], s.IDS)
	}
	return s
}

// altitudeField decodes the 13-bit AC field in bytes 2 and 3.
func altitudeField(frame []byte) *int {
	if alt, ok := altitude13(uint16(frame[2])<<8 | uint16(frame[3])); ok {
		return intPtr(alt)
	}
	return nil
}

// commBIdentification returns the callsign of a long Comm-B reply whose MB
// field holds the identification register.
func commBIdentification(frame []byte) string {
	if len(frame) != 14 || frame[4] != identificationMarker {
		return ""
	}
	return callsign(frame[5:11])
}

// callsign unpacks eight 6-bit characters from 6 bytes.
func callsign(b []byte) string {
	var packed uint64
	for _, c := range b {
		packed = packed<<8 | uint64(c)
	}

	var sb strings.Builder
	for i := 0; i < 8; i++ {
		ch, err := bits.SixBitASCII(uint8(packed>>(42-6*uint(i))) & 0x3f)
		if err != nil {
			continue
		}
		sb.WriteByte(ch)
	}
	return strings.TrimSpace(sb.String())
}

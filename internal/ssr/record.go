// Package ssr decodes Mode A/C and Mode S (including ADS-B extended squitter)
// replies into typed records.
package ssr

import "fmt"

// Mode tags the shape of a decoded frame.
type Mode string

const (
	ModeAC      Mode = "ac"
	ModeS       Mode = "s"
	ModeInvalid Mode = "invalid"
)

// DecodeOptions controls optional output of a single Decode call.
type DecodeOptions struct {
	// DecodeNames fills the human readable *Name fields.
	DecodeNames bool
}

// Record is the result of decoding one frame. Exactly one of AC and S is set
// for ModeAC and ModeS; both are nil for ModeInvalid.
type Record struct {
	Mode Mode     `json:"mode"`
	Len  int      `json:"len"`
	AC   *ACReply `json:"ac,omitempty"`
	S    *SReply  `json:"s,omitempty"`
}

// Squawk is a Mode A code in hex-digit form plus its emergency annotation.
type Squawk struct {
	ASquawk          string `json:"aSquawk"`
	Emergency        bool   `json:"emergency,omitempty"`
	ASquawkEmergency string `json:"aSquawkEmergency,omitempty"`
}

// ACReply is a Mode A/C reply. CAlt is set when the code is also a legal
// Mode C altitude.
type ACReply struct {
	Squawk
	CAlt *int `json:"cAlt,omitempty"`
}

// SReply is a Mode S reply.
type SReply struct {
	DF       int     `json:"df"`
	DFName   string  `json:"dfName,omitempty"`
	FrameCRC uint32  `json:"frameCrc"`
	CmpCRC   uint32  `json:"cmpCrc"`
	Payload  Payload `json:"payload"`
}

// CRCMatch reports whether the transmitted parity equals the computed one.
func (s *SReply) CRCMatch() bool {
	return s.FrameCRC == s.CmpCRC
}

// ParityAddress returns the address overlaid on the parity field of
// address/parity replies. ok is false for formats that carry plain parity.
func (s *SReply) ParityAddress() (addr uint32, ok bool) {
	switch s.DF {
	case 0, 4, 5, 16, 20, 21, 24:
		return (s.FrameCRC ^ s.CmpCRC) & 0xffffff, true
	}
	return 0, false
}

// Address is a 24-bit Mode S address.
type Address struct {
	Hex string `json:"hex"`
	Int uint32 `json:"int"`
}

func newAddress(b1, b2, b3 byte) Address {
	v := uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
	return Address{Hex: fmt.Sprintf("%06x", v), Int: v}
}

// Payload is the DF-specific content of a Mode S reply. The set of
// implementations is closed.
type Payload interface {
	isPayload()
}

// ShortACAS is DF0.
type ShortACAS struct {
	VertStat string `json:"vertStat"`
	CC       int    `json:"cc"`
	SL       int    `json:"sl"`
	Alt      *int   `json:"alt,omitempty"`
}

// Surveillance holds the fields shared by DF4, DF5, DF20 and DF21.
type Surveillance struct {
	FS      int    `json:"fs"`
	FSName  string `json:"fsName,omitempty"`
	Alert   bool   `json:"alert,omitempty"`
	SPI     bool   `json:"spi,omitempty"`
	DR      int    `json:"dr"`
	DRName  string `json:"drName,omitempty"`
	IIS     int    `json:"iis"`
	IDS     int    `json:"ids"`
	IDSName string `json:"idsName,omitempty"`
}

// AltitudeReply is DF4.
type AltitudeReply struct {
	Surveillance
	Alt *int `json:"alt,omitempty"`
}

// IdentityReply is DF5.
type IdentityReply struct {
	Surveillance
	Squawk
}

// AllCallReply is DF11.
type AllCallReply struct {
	CA   int     `json:"ca"`
	ICAO Address `json:"icaoAA"`
}

// LongACAS is DF16.
type LongACAS struct {
	Alt *int `json:"alt,omitempty"`
}

// CommBAltitudeReply is DF20.
type CommBAltitudeReply struct {
	Surveillance
	Alt    *int   `json:"alt,omitempty"`
	IDInfo string `json:"idInfo,omitempty"`
}

// CommBIdentityReply is DF21.
type CommBIdentityReply struct {
	Surveillance
	Squawk
	IDInfo string `json:"idInfo,omitempty"`
}

// ExtendedSquitter is DF17 and DF18. Message is nil when a DF18 control
// field selects a variant that is not decoded further.
type ExtendedSquitter struct {
	CA       int       `json:"ca"`
	CtrlName string    `json:"ctrlName,omitempty"`
	ICAO     *Address  `json:"icaoAA,omitempty"`
	Addr     *Address  `json:"addr,omitempty"`
	Fmt      int       `json:"fmt"`
	FmtName  string    `json:"fmtName,omitempty"`
	Message  ESMessage `json:"message,omitempty"`
}

// Unsupported covers DF19, DF22, DF24 and unassigned formats.
type Unsupported struct{}

func (ShortACAS) isPayload()          {}
func (AltitudeReply) isPayload()      {}
func (IdentityReply) isPayload()      {}
func (AllCallReply) isPayload()       {}
func (LongACAS) isPayload()           {}
func (CommBAltitudeReply) isPayload() {}
func (CommBIdentityReply) isPayload() {}
func (ExtendedSquitter) isPayload()   {}
func (Unsupported) isPayload()        {}

// ICAO returns the aircraft address a record is attributed to. For
// address/parity replies this is the parity address, which is only
// trustworthy once the address is known from a squitter.
func (r Record) ICAO() (uint32, bool) {
	if r.S == nil {
		return 0, false
	}
	switch p := r.S.Payload.(type) {
	case AllCallReply:
		return p.ICAO.Int, true
	case ExtendedSquitter:
		if p.ICAO != nil {
			return p.ICAO.Int, true
		}
		return 0, false
	}
	return r.S.ParityAddress()
}

// Emergency reports whether any path of the record carries an emergency.
func (r Record) Emergency() bool {
	if r.AC != nil {
		return r.AC.Emergency
	}
	if r.S == nil {
		return false
	}
	switch p := r.S.Payload.(type) {
	case IdentityReply:
		return p.Emergency
	case CommBIdentityReply:
		return p.Emergency
	case ExtendedSquitter:
		switch m := p.Message.(type) {
		case AirbornePosition:
			return m.Emergency
		case AircraftStatus:
			return m.Emergency
		case TestMessage:
			return m.Squawk != nil && m.Squawk.Emergency
		}
	}
	return false
}

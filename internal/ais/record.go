// Package ais decodes AIS messages carried in NMEA 0183 AIVDM/AIVDO
// sentences.
package ais

import "errors"

var (
	ErrMalformedSentence  = errors.New("malformed AIS sentence")
	ErrUnsupportedVariant = errors.New("unsupported AIS message type")
)

// DecodeOptions controls optional output of a single decode call.
type DecodeOptions struct {
	// DecodeNames fills the human readable *Name fields.
	DecodeNames bool
}

// Record is one decoded sentence. Position or BaseStation is set when the
// payload is a complete message of type 1-3 or 4.
type Record struct {
	SentenceType  string `json:"sentenceType"`
	FragCount     int    `json:"fragCount"`
	FragNumber    int    `json:"fragNumber"`
	MessageID     *int   `json:"messageId,omitempty"`
	Channel       string `json:"channel"`
	Payload       string `json:"payload"`
	FillBits      int    `json:"fillBits"`
	FrameChecksum uint8  `json:"frameChecksum"`
	CmpChecksum   uint8  `json:"cmpChecksum"`

	IsFrag      bool `json:"isFrag,omitempty"`
	IsAssembled bool `json:"isAssembled,omitempty"`

	// Generic fields, present on every decoded payload.
	PayloadType int    `json:"payloadType,omitempty"`
	Repeat      int    `json:"repeat,omitempty"`
	MMSI        uint32 `json:"mmsi,omitempty"`

	Position    *PositionReport    `json:"position,omitempty"`
	BaseStation *BaseStationReport `json:"baseStation,omitempty"`
}

// ChecksumOK reports whether the transmitted NMEA checksum matches.
func (r Record) ChecksumOK() bool {
	return r.FrameChecksum == r.CmpChecksum
}

// Supported reports whether the payload type has a typed body.
func (r Record) Supported() bool {
	return r.Position != nil || r.BaseStation != nil
}

// Err returns ErrUnsupportedVariant for complete payloads without a typed
// body.
func (r Record) Err() error {
	if r.IsFrag || r.PayloadType == 0 || r.Supported() {
		return nil
	}
	return ErrUnsupportedVariant
}

// PositionReport is a Class A position report (message types 1, 2 and 3).
type PositionReport struct {
	NavStatus     int      `json:"navStatus"`
	NavStatusName string   `json:"navStatusName,omitempty"`
	TurnRaw       int      `json:"turnRaw"`
	RateOfTurn    *float64 `json:"rateOfTurn,omitempty"`
	SOG           float64  `json:"sog"`
	PosAccuracy   bool     `json:"posAccuracy"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	COG           *float64 `json:"cog,omitempty"`
	Heading       *int     `json:"heading,omitempty"`
	Second        int      `json:"second"`
	Maneuver      int      `json:"maneuver"`
	ManeuverName  string   `json:"maneuverName,omitempty"`
	RAIM          bool     `json:"raim"`
	RadioStatus   uint32   `json:"radioStatus"`
}

// BaseStationReport is message type 4.
type BaseStationReport struct {
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Day         int      `json:"day"`
	Hour        int      `json:"hour"`
	Minute      int      `json:"minute"`
	Second      int      `json:"second"`
	PosAccuracy bool     `json:"posAccuracy"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	EPFD        int      `json:"epfd"`
	EPFDName    string   `json:"epfdName"`
	Spare       int      `json:"spare"`
	RAIM        bool     `json:"raim"`
	RadioStatus uint32   `json:"radioStatus"`
}

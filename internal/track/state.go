package track

import "time"

// Meta values describing where a state field came from.
const (
	LocationCPRGlobal = "CPRGlobal"
	LocationCPRLocal  = "CPRLocal"
	HeadingADSB       = "ADSB"
	HeadingGPSDerived = "GPSDerived"
)

// State is the merged view of one aircraft.
type State struct {
	Addr     string `json:"addr"`
	ICAO     uint32 `json:"icao,omitempty"`
	Src      string `json:"src"`
	MLAT     bool   `json:"mlat,omitempty"`
	Callsign string `json:"idInfo,omitempty"`
	Category string `json:"category,omitempty"`
	Squawk   string `json:"aSquawk,omitempty"`

	Alt          *int     `json:"alt,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	LocationMeta string   `json:"locationMeta,omitempty"`
	Heading      *float64 `json:"heading,omitempty"`
	HeadingMeta  string   `json:"headingMeta,omitempty"`
	Velo         *float64 `json:"velo,omitempty"`
	VeloType     string   `json:"veloType,omitempty"`
	VertRate     *int     `json:"vertRate,omitempty"`
	Supersonic   bool     `json:"supersonic,omitempty"`

	Emergency     bool   `json:"emergency,omitempty"`
	EmergencyInfo string `json:"emergencyInfo,omitempty"`

	// Relative to the receiver, when its position is configured.
	RangeKm  *float64 `json:"range,omitempty"`
	Bearing  *float64 `json:"bearing,omitempty"`
	Cardinal string   `json:"cardinal,omitempty"`

	FirstSeen time.Time `json:"firstSeen"`
	LastSeen  time.Time `json:"lastSeen"`

	even *cprFrame
	odd  *cprFrame
}

type cprFrame struct {
	lat, lon uint32
	surface  bool
	at       time.Time
}

// HasPosition reports whether a position has been resolved.
func (s *State) HasPosition() bool {
	return s.Lat != nil && s.Lon != nil
}

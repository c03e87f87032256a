// Package basestation formats decoded SSR records as SBS-1 (BaseStation)
// MSG lines.
package basestation

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"airsuck/internal/ssr"
	"airsuck/internal/track"
)

const MessageTypeMSG = "MSG"

// Transmission types of MSG lines.
const (
	TransmissionIDCategory   = 1 // ES identification and category
	TransmissionSurface      = 2 // ES surface position
	TransmissionAirborne     = 3 // ES airborne position
	TransmissionVelocity     = 4 // ES airborne velocity
	TransmissionSurveillance = 5 // surveillance altitude
	TransmissionIdentity     = 6 // surveillance identity
	TransmissionAirToAir     = 7 // ACAS
	TransmissionAllCall      = 8 // all call reply
)

// Message is one MSG line.
type Message struct {
	TransmissionType int
	SessionID        int
	AircraftID       int
	HexIdent         string
	FlightID         int
	Generated        time.Time
	Logged           time.Time
	Callsign         string
	Altitude         string
	GroundSpeed      string
	Track            string
	Latitude         string
	Longitude        string
	VerticalRate     string
	Squawk           string
	Alert            string
	Emergency        string
	SPI              string
	IsOnGround       string
}

// CSV renders the 22 comma separated fields.
func (m *Message) CSV() string {
	fields := []string{
		MessageTypeMSG,
		strconv.Itoa(m.TransmissionType),
		strconv.Itoa(m.SessionID),
		strconv.Itoa(m.AircraftID),
		m.HexIdent,
		strconv.Itoa(m.FlightID),
		m.Generated.Format("2006/01/02"),
		m.Generated.Format("15:04:05.000"),
		m.Logged.Format("2006/01/02"),
		m.Logged.Format("15:04:05.000"),
		m.Callsign,
		m.Altitude,
		m.GroundSpeed,
		m.Track,
		m.Latitude,
		m.Longitude,
		m.VerticalRate,
		m.Squawk,
		m.Alert,
		m.Emergency,
		m.SPI,
		m.IsOnGround,
	}
	return strings.Join(fields, ",")
}

// Convert maps a record to a MSG line. st is the tracked aircraft the
// record was attributed to and supplies the address and resolved position.
// ok is false for records without a BaseStation equivalent and for records
// the track engine did not attribute (st is nil).
func Convert(rec ssr.Record, st *track.State, generated time.Time) (*Message, bool) {
	if rec.S == nil || st == nil {
		return nil, false
	}

	m := &Message{
		SessionID:  1,
		AircraftID: 1,
		FlightID:   1,
		HexIdent:   fmt.Sprintf("%06X", st.ICAO),
		Generated:  generated,
	}

	switch p := rec.S.Payload.(type) {
	case ssr.AltitudeReply:
		m.TransmissionType = TransmissionSurveillance
		m.Altitude = formatInt(p.Alt)
		setFlags(m, p.Surveillance)
	case ssr.CommBAltitudeReply:
		m.TransmissionType = TransmissionSurveillance
		m.Altitude = formatInt(p.Alt)
		m.Callsign = p.IDInfo
		setFlags(m, p.Surveillance)
	case ssr.IdentityReply:
		m.TransmissionType = TransmissionIdentity
		m.Squawk = p.ASquawk
		m.Emergency = flag(p.Emergency)
		setFlags(m, p.Surveillance)
	case ssr.CommBIdentityReply:
		m.TransmissionType = TransmissionIdentity
		m.Squawk = p.ASquawk
		m.Emergency = flag(p.Emergency)
		m.Callsign = p.IDInfo
		setFlags(m, p.Surveillance)
	case ssr.ShortACAS:
		m.TransmissionType = TransmissionAirToAir
		m.Altitude = formatInt(p.Alt)
	case ssr.LongACAS:
		m.TransmissionType = TransmissionAirToAir
		m.Altitude = formatInt(p.Alt)
	case ssr.AllCallReply:
		m.TransmissionType = TransmissionAllCall
	case ssr.ExtendedSquitter:
		if !convertSquitter(m, p, st) {
			return nil, false
		}
	default:
		return nil, false
	}
	return m, true
}

func convertSquitter(m *Message, es ssr.ExtendedSquitter, st *track.State) bool {
	switch msg := es.Message.(type) {
	case ssr.Identification:
		m.TransmissionType = TransmissionIDCategory
		m.Callsign = msg.IDInfo
	case ssr.SurfacePosition:
		m.TransmissionType = TransmissionSurface
		m.Track = formatFloat(msg.Heading, 1)
		m.IsOnGround = "-1"
		setPosition(m, st)
	case ssr.AirbornePosition:
		m.TransmissionType = TransmissionAirborne
		m.Altitude = formatInt(msg.Alt)
		m.Emergency = flag(msg.Emergency)
		m.IsOnGround = "0"
		setPosition(m, st)
	case ssr.AirborneVelocity:
		m.TransmissionType = TransmissionVelocity
		m.GroundSpeed = formatFloat(msg.GndSpeed, 0)
		m.Track = formatFloat(msg.Heading, 1)
		m.VerticalRate = formatInt(msg.VertRate)
	default:
		return false
	}
	return true
}

func setPosition(m *Message, st *track.State) {
	if st == nil || !st.HasPosition() {
		return
	}
	m.Latitude = strconv.FormatFloat(*st.Lat, 'f', 6, 64)
	m.Longitude = strconv.FormatFloat(*st.Lon, 'f', 6, 64)
}

func setFlags(m *Message, s ssr.Surveillance) {
	m.Alert = flag(s.Alert)
	m.SPI = flag(s.SPI)
	// FS 1 and 3 are on the ground
	if s.FS == 1 || s.FS == 3 {
		m.IsOnGround = "-1"
	} else if s.FS == 0 || s.FS == 2 {
		m.IsOnGround = "0"
	}
}

func flag(v bool) string {
	if v {
		return "-1"
	}
	return "0"
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// Writer writes MSG lines to an io.Writer, typically a logging.Rotator.
type Writer struct {
	out    io.Writer
	logger *logrus.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewWriter creates a writer on out.
func NewWriter(out io.Writer, logger *logrus.Logger) *Writer {
	return &Writer{out: out, logger: logger, now: time.Now}
}

// Write converts and writes rec. Records without a BaseStation equivalent
// are skipped without error.
func (w *Writer) Write(rec ssr.Record, st *track.State, generated time.Time) error {
	m, ok := Convert(rec, st, generated)
	if !ok {
		return nil
	}
	m.Logged = w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, m.CSV()+"\n"); err != nil {
		return fmt.Errorf("failed to write BaseStation message: %w", err)
	}
	return nil
}

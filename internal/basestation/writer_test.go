package basestation

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsuck/internal/ssr"
	"airsuck/internal/track"
)

func decode(t *testing.T, s string) ssr.Record {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return ssr.Decode(b, ssr.DecodeOptions{})
}

// attributed runs the frame through a track engine and returns the state
// it was attributed to, or nil.
func attributed(t *testing.T, e *track.Engine, s string) (ssr.Record, *track.State) {
	t.Helper()
	rec := decode(t, s)
	u, ok := e.Update(rec, "rx1", false, time.Now())
	if !ok {
		return rec, nil
	}
	return rec, &u.State
}

func testEngine() *track.Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return track.NewEngine(track.Config{}, logger)
}

func TestConvert(t *testing.T) {
	generated := time.Date(2024, 3, 9, 14, 5, 7, 250e6, time.UTC)

	tests := []struct {
		name     string
		hex      string
		txType   int
		hexIdent string
		check    func(t *testing.T, m *Message)
	}{
		{
			name:     "identification",
			hex:      "8d4840d6202cc371c32ce0576098",
			txType:   TransmissionIDCategory,
			hexIdent: "4840D6",
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, "KLM1023", m.Callsign)
			},
		},
		{
			name:     "airborne position",
			hex:      "8d40621d58c382d690c8ac2863a7",
			txType:   TransmissionAirborne,
			hexIdent: "40621D",
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, "38000", m.Altitude)
				assert.Equal(t, "0", m.IsOnGround)
				assert.Empty(t, m.Latitude)
			},
		},
		{
			name:     "velocity",
			hex:      "8d485020994409940838175b284f",
			txType:   TransmissionVelocity,
			hexIdent: "485020",
			check: func(t *testing.T, m *Message) {
				assert.Equal(t, "159", m.GroundSpeed)
				assert.Equal(t, "182.9", m.Track)
				assert.Equal(t, "-832", m.VerticalRate)
			},
		},
		{
			name:     "all call",
			hex:      "5da189a7b82d24",
			txType:   TransmissionAllCall,
			hexIdent: "A189A7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, st := attributed(t, testEngine(), tt.hex)
			require.NotNil(t, st)
			m, ok := Convert(rec, st, generated)
			require.True(t, ok)
			assert.Equal(t, tt.txType, m.TransmissionType)
			assert.Equal(t, tt.hexIdent, m.HexIdent)
			assert.Equal(t, generated, m.Generated)
			if tt.check != nil {
				tt.check(t, m)
			}
		})
	}
}

func TestConvert_Skipped(t *testing.T) {
	for _, h := range []string{"7700", "0225"} {
		rec, st := attributed(t, testEngine(), h)
		_, ok := Convert(rec, st, time.Now())
		assert.False(t, ok, h)
	}
}

func TestConvert_Unattributed(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{name: "squitter with bad parity", hex: "8d40621d58c382d690c8ac2863a6"},
		{name: "altitude reply from unknown aircraft", hex: "2000171806a983"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, st := attributed(t, testEngine(), tt.hex)
			assert.Nil(t, st)
			_, ok := Convert(rec, st, time.Now())
			assert.False(t, ok)

			var buf bytes.Buffer
			require.NoError(t, NewWriter(&buf, logrus.New()).Write(rec, st, time.Now()))
			assert.Empty(t, buf.String())
		})
	}
}

func TestConvert_UsesTrackPosition(t *testing.T) {
	lat, lon := 52.2572, 3.9194
	st := &track.State{ICAO: 0x40621d, Lat: &lat, Lon: &lon}

	m, ok := Convert(decode(t, "8d40621d58c382d690c8ac2863a7"), st, time.Now())
	require.True(t, ok)
	assert.Equal(t, "40621D", m.HexIdent)
	assert.Equal(t, "52.257200", m.Latitude)
	assert.Equal(t, "3.919400", m.Longitude)
}

func TestMessageCSV(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 250e6, time.UTC)
	m := &Message{
		TransmissionType: TransmissionIDCategory,
		SessionID:        1,
		AircraftID:       1,
		FlightID:         1,
		HexIdent:         "4840D6",
		Generated:        ts,
		Logged:           ts,
		Callsign:         "KLM1023",
	}

	line := m.CSV()
	fields := strings.Split(line, ",")
	require.Len(t, fields, 22)
	assert.Equal(t, "MSG,1,1,1,4840D6,1,2024/03/09,14:05:07.250,2024/03/09,14:05:07.250,KLM1023", strings.Join(fields[:11], ","))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, logrus.New())
	w.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 8, 0, time.UTC) }

	e := testEngine()
	rec, st := attributed(t, e, "8d4840d6202cc371c32ce0576098")
	require.NoError(t, w.Write(rec, st, time.Now()))
	rec, st = attributed(t, e, "7700")
	require.NoError(t, w.Write(rec, st, time.Now()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "MSG,1,"))
	assert.Contains(t, out, "4840D6")
	assert.Contains(t, out, "2024/03/09,14:05:08.000")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriter_Error(t *testing.T) {
	w := NewWriter(failingWriter{}, logrus.New())
	rec, st := attributed(t, testEngine(), "8d4840d6202cc371c32ce0576098")
	err := w.Write(rec, st, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

package ssr

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// mlatTimestampChars is the length of the hex MLAT counter that prefixes
// frames in the '@' AVR variant.
const mlatTimestampChars = 12

// Frame is one AVR-framed frame.
type Frame struct {
	Data []byte
	Hex  string
	MLAT string
}

// IsMLAT reports whether the frame carried an MLAT timestamp.
func (f Frame) IsMLAT() bool {
	return f.MLAT != ""
}

// ParseAVR parses one line of dump1090 AVR output: "*<hex>;" or
// "@<12 hex MLAT><hex>;".
func ParseAVR(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Frame{}, fmt.Errorf("%w: empty line", ErrInvalidLength)
	}
	mlat := line[0] == '@'

	s := strings.NewReplacer("*", "", ";", "", "@", "").Replace(line)
	s = strings.ToLower(strings.TrimSpace(s))

	var f Frame
	if mlat {
		if len(s) <= mlatTimestampChars {
			return Frame{}, fmt.Errorf("%w: short MLAT frame %q", ErrInvalidLength, line)
		}
		f.MLAT = s[:mlatTimestampChars]
		s = s[mlatTimestampChars:]
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidLength, err)
	}
	switch len(data) {
	case 2, 7, 14:
	default:
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}

	f.Data = data
	f.Hex = s
	return f, nil
}

package bits

import (
	"errors"
	"fmt"
)

// Charset maps 6-bit codes to the identifier character set used by Mode S
// aircraft identification and AIS text fields.
const Charset = "@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_ !\"#$%&'()*+,-./0123456789:;<=>?"

// ErrSixBitRange is returned for codes that do not fit in 6 bits.
var ErrSixBitRange = errors.New("six-bit code out of range")

// SixBitASCII returns the character for a 6-bit code.
func SixBitASCII(code uint8) (byte, error) {
	if int(code) >= len(Charset) {
		return 0, fmt.Errorf("%w: %d", ErrSixBitRange, code)
	}
	return Charset[code], nil
}

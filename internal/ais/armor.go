package ais

import "fmt"

// sextet converts one armored payload character to its 6-bit value:
// c-48, less another 8 above 40. Characters outside the two armoring ranges
// are rejected.
func sextet(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= 'W':
		return c - '0', nil
	case c >= '`' && c <= 'w':
		return c - '0' - 8, nil
	}
	return 0, fmt.Errorf("%w: invalid payload character %q", ErrMalformedSentence, c)
}

// unarmor packs the 6-bit values of payload MSB first and returns the
// buffer with the number of meaningful bits. Fill bits are dropped.
func unarmor(payload string, fill int) ([]byte, int, error) {
	n := len(payload) * 6
	buf := make([]byte, (n+7)/8)

	for i := 0; i < len(payload); i++ {
		v, err := sextet(payload[i])
		if err != nil {
			return nil, 0, err
		}
		for j := 0; j < 6; j++ {
			if v&(0x20>>uint(j)) != 0 {
				pos := i*6 + j
				buf[pos/8] |= 0x80 >> uint(pos%8)
			}
		}
	}

	if fill < 0 || fill > 5 || fill > n {
		return nil, 0, fmt.Errorf("%w: fill bits %d", ErrMalformedSentence, fill)
	}
	return buf, n - fill, nil
}

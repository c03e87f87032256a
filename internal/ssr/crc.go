package ssr

import (
	"errors"
	"fmt"
)

// Mode S CRC-24 generator polynomial
const generatorPoly = 0xfff409

var crcTable [256]uint32

// syndromes maps the CRC residual of a 112-bit frame with exactly one
// flipped bit to that bit's index.
var syndromes map[uint32]int

var (
	ErrInvalidLength    = errors.New("invalid frame length")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

func init() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 16
		for j := 0; j < 8; j++ {
			if c&0x800000 != 0 {
				c = (c << 1) ^ generatorPoly
			} else {
				c = c << 1
			}
		}
		crcTable[i] = c & 0x00ffffff
	}

	initSyndromes()
}

// initSyndromes builds the single-bit syndrome table for long frames.
func initSyndromes() {
	syndromes = make(map[uint32]int, 112)
	for i := 0; i < 112; i++ {
		msg := make([]byte, 14)
		msg[i/8] = 1 << (7 - uint(i%8))
		frame, cmp := Checksum(msg)
		syndromes[frame^cmp] = i
	}
}

func crc24(data []byte) uint32 {
	var rem uint32
	for _, b := range data {
		rem = (rem << 8) ^ crcTable[uint32(b)^(rem>>16)]
		rem &= 0xffffff
	}
	return rem
}

// Checksum returns the parity transmitted in the last 3 bytes of frame and
// the CRC-24 computed over the bytes before it.
func Checksum(frame []byte) (frameCRC, cmpCRC uint32) {
	n := len(frame)
	if n < 4 {
		return 0, 0
	}
	frameCRC = uint32(frame[n-3])<<16 | uint32(frame[n-2])<<8 | uint32(frame[n-1])
	return frameCRC, crc24(frame[:n-3])
}

// Validate returns ErrChecksumMismatch when the parity of a plain-parity
// frame (DF11, DF17, DF18) does not match. Address/parity formats cannot be
// checked without knowing the address and are accepted.
func Validate(frame []byte) error {
	if len(frame) != 7 && len(frame) != 14 {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(frame))
	}
	frameCRC, cmpCRC := Checksum(frame)
	switch frame[0] >> 3 {
	case 11:
		// The low 7 bits may carry the interrogator identifier.
		if (frameCRC^cmpCRC)&0xffff80 != 0 {
			return fmt.Errorf("%w: frame %06x computed %06x", ErrChecksumMismatch, frameCRC, cmpCRC)
		}
	case 17, 18:
		if frameCRC != cmpCRC {
			return fmt.Errorf("%w: frame %06x computed %06x", ErrChecksumMismatch, frameCRC, cmpCRC)
		}
	}
	return nil
}

// FixSingleBit repairs a DF17/DF18 frame with one flipped bit. It returns a
// corrected copy and the index of the repaired bit; ok is false when the
// frame is already valid or cannot be repaired.
func FixSingleBit(frame []byte) (fixed []byte, bit int, ok bool) {
	if len(frame) != 14 {
		return nil, -1, false
	}
	if df := frame[0] >> 3; df != 17 && df != 18 {
		return nil, -1, false
	}

	frameCRC, cmpCRC := Checksum(frame)
	residual := frameCRC ^ cmpCRC
	if residual == 0 {
		return nil, -1, false
	}
	bit, found := syndromes[residual]
	if !found {
		return nil, -1, false
	}

	fixed = make([]byte, len(frame))
	copy(fixed, frame)
	fixed[bit/8] ^= 1 << (7 - uint(bit%8))

	// A flip inside the DF field would turn the frame into another format.
	if df := fixed[0] >> 3; df != 17 && df != 18 {
		return nil, -1, false
	}
	return fixed, bit, true
}

// Package bits holds the low-level helpers shared by the SSR and AIS decoders:
// two's complement sign extension, MSB-first bitfield extraction, Gillham
// code conversion and the 6-bit identifier character table.
package bits

// SignExtend treats the low width bits of value as a two's complement number.
func SignExtend(value uint64, width uint8) int64 {
	if width == 0 || width >= 64 {
		return int64(value)
	}
	value &= (1 << width) - 1
	if value&(1<<(width-1)) != 0 {
		return int64(value) - int64(1)<<width
	}
	return int64(value)
}

// Field extracts width bits starting at bit offset, counting from the most
// significant bit of data[0]. ok is false when the field runs past the buffer.
func Field(data []byte, offset, width int) (uint64, bool) {
	if offset < 0 || width <= 0 || width > 64 || offset+width > len(data)*8 {
		return 0, false
	}

	var v uint64
	for i := offset; i < offset+width; i++ {
		v = v<<1 | uint64(data[i/8]>>(7-uint(i%8))&1)
	}
	return v, true
}

// SignedField is Field followed by SignExtend.
func SignedField(data []byte, offset, width int) (int64, bool) {
	v, ok := Field(data, offset, width)
	if !ok {
		return 0, false
	}
	return SignExtend(v, uint8(width)), true
}

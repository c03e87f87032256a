package bits

// gillhamBit pairs a bit of the 13-bit Gillham (ID/AC) field with its
// position in hex-digit squawk form, where squawk 1200 reads as 0x1200.
type gillhamBit struct {
	gray uint16
	hex  uint16
}

// gillhamTable is the single source for both conversion directions.
// The X/M bit (0x0040) has no squawk position and is ignored.
var gillhamTable = [...]gillhamBit{
	{0x1000, 0x0010}, // C1
	{0x0800, 0x1000}, // A1
	{0x0400, 0x0020}, // C2
	{0x0200, 0x2000}, // A2
	{0x0100, 0x0040}, // C4
	{0x0080, 0x4000}, // A4
	{0x0020, 0x0100}, // B1
	{0x0010, 0x0001}, // D1
	{0x0008, 0x0200}, // B2
	{0x0004, 0x0002}, // D2
	{0x0002, 0x0400}, // B4
	{0x0001, 0x0004}, // D4
}

const (
	// GillhamXBit is the X (or M) bit of a 13-bit field.
	GillhamXBit = 0x0040
	// GillhamMask covers the 12 mapped Gillham bits.
	GillhamMask = 0x1fbf
	// SquawkMask covers the 12 bits a hex-form squawk can use.
	SquawkMask = 0x7777
)

// GillhamToBinary remaps a Gillham-coded field into hex-digit squawk form.
func GillhamToBinary(gray uint16) uint16 {
	var out uint16
	for _, b := range gillhamTable {
		if gray&b.gray != 0 {
			out |= b.hex
		}
	}
	return out
}

// BinaryToGillham is the inverse of GillhamToBinary. Bits outside
// SquawkMask are dropped.
func BinaryToGillham(bin uint16) uint16 {
	var out uint16
	for _, b := range gillhamTable {
		if bin&b.hex != 0 {
			out |= b.gray
		}
	}
	return out
}

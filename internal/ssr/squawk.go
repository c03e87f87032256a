package ssr

import (
	"fmt"

	"airsuck/internal/bits"
)

var emergencySquawks = map[string]string{
	"7400": "Unmanned aircraft, lost comms",
	"7500": "Hijack",
	"7600": "Lost Comms/Radio",
	"7700": "General Emergency",
}

// EmergencySquawk returns the description of an emergency squawk code.
func EmergencySquawk(code string) (string, bool) {
	desc, ok := emergencySquawks[code]
	return desc, ok
}

func newSquawk(hex uint16) Squawk {
	sq := Squawk{ASquawk: fmt.Sprintf("%04x", hex)}
	if desc, ok := EmergencySquawk(sq.ASquawk); ok {
		sq.Emergency = true
		sq.ASquawkEmergency = desc
	}
	return sq
}

// squawkFromGillham decodes a 13-bit ID field.
func squawkFromGillham(field uint16) Squawk {
	return newSquawk(bits.GillhamToBinary(field & 0x1fff))
}

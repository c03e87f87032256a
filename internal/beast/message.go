package beast

import (
	"fmt"
	"time"
)

// Beast mode message types
const (
	SyncByte   = 0x1A // Beast mode sync byte, doubled when it occurs inside a message
	ModeAC     = 0x31 // Mode A/C
	ModeS      = 0x32 // Mode S Short (56 bits)
	ModeSLong  = 0x33 // Mode S Long (112 bits)
	ModeStatus = 0x34 // Status
)

// timestampLen is the size of the 12 MHz MLAT counter.
const timestampLen = 6

// Message represents a decoded Beast mode message
type Message struct {
	MessageType byte
	// Timestamp is the raw 48-bit 12 MHz receiver counter.
	Timestamp uint64
	Signal    byte
	Data      []byte
	Received  time.Time
}

// IsFrame reports whether the message carries a Mode A/C or Mode S frame.
func (msg *Message) IsFrame() bool {
	switch msg.MessageType {
	case ModeAC, ModeS, ModeSLong:
		return true
	}
	return false
}

// MLATTimestamp marks frames synthesized from multilateration results
// rather than received over the air ("MLAT" in the low four bytes).
const MLATTimestamp = 0xFF004D4C4154

// Counter returns the timestamp as the 12 hex digits used by the AVR '@'
// format. Receivers that do not run the 12 MHz clock send zero, which
// yields "".
func (msg *Message) Counter() string {
	if msg.Timestamp == 0 {
		return ""
	}
	return fmt.Sprintf("%012x", msg.Timestamp)
}

// IsMLAT reports whether the frame is a multilateration result. A running
// receiver clock alone does not make a frame MLAT.
func (msg *Message) IsMLAT() bool {
	return msg.Timestamp == MLATTimestamp
}

// DF extracts the downlink format from a Mode S message.
func (msg *Message) DF() (int, bool) {
	if msg.MessageType != ModeS && msg.MessageType != ModeSLong {
		return 0, false
	}
	if len(msg.Data) < 1 {
		return 0, false
	}
	return int(msg.Data[0] >> 3), true
}

// SignalLevel returns the signal byte scaled to 0..1.
func (msg *Message) SignalLevel() float64 {
	return float64(msg.Signal) / 255
}

// dataLength returns the frame length carried by a message type.
func dataLength(messageType byte) int {
	switch messageType {
	case ModeAC, ModeStatus:
		return 2
	case ModeS:
		return 7
	case ModeSLong:
		return 14
	default:
		return 0
	}
}

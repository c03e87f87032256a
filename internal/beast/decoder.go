// Package beast decodes the Beast binary framing used by dump1090 style
// receivers into raw Mode A/C and Mode S frames.
package beast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// maxBuffer bounds the bytes held while waiting for a sync byte.
const maxBuffer = 4096

// Decoder decodes Beast mode messages from a byte stream. It keeps partial
// messages between calls, so chunks may split messages anywhere.
type Decoder struct {
	logger *logrus.Logger
	buffer []byte
	now    func() time.Time
}

// NewDecoder creates a new Beast decoder
func NewDecoder(logger *logrus.Logger) *Decoder {
	return &Decoder{
		logger: logger,
		buffer: make([]byte, 0, maxBuffer),
		now:    time.Now,
	}
}

// Decode appends data to the stream and returns every complete message.
func (d *Decoder) Decode(data []byte) []*Message {
	d.buffer = append(d.buffer, data...)

	var messages []*Message
	for {
		syncIndex := bytes.IndexByte(d.buffer, SyncByte)
		if syncIndex == -1 {
			d.buffer = d.buffer[:0]
			break
		}
		if syncIndex > 0 {
			d.buffer = d.buffer[syncIndex:]
		}
		if len(d.buffer) < 2 {
			break
		}

		messageType := d.buffer[1]
		dataLen := dataLength(messageType)
		if dataLen == 0 {
			d.logger.WithFields(logrus.Fields{
				"message_type": fmt.Sprintf("0x%02x", messageType),
			}).Debug("Unknown message type, skipping")
			d.buffer = d.buffer[1:]
			continue
		}

		body, consumed, err := unescape(d.buffer[2:], timestampLen+1+dataLen)
		if errors.Is(err, errIncomplete) {
			break
		}
		if err != nil {
			// A bare sync byte inside the body starts a new message.
			d.logger.WithError(err).Debug("Dropping truncated beast message")
			d.buffer = d.buffer[2+consumed:]
			continue
		}

		messages = append(messages, d.newMessage(messageType, body))
		d.buffer = d.buffer[2+consumed:]
	}

	if len(d.buffer) > maxBuffer {
		d.buffer = d.buffer[:0]
	}

	return messages
}

func (d *Decoder) newMessage(messageType byte, body []byte) *Message {
	var ts uint64
	for i := 0; i < timestampLen; i++ {
		ts = ts<<8 | uint64(body[i])
	}
	frame := make([]byte, len(body)-timestampLen-1)
	copy(frame, body[timestampLen+1:])

	return &Message{
		MessageType: messageType,
		Timestamp:   ts,
		Signal:      body[timestampLen],
		Data:        frame,
		Received:    d.now(),
	}
}

// Run reads r until EOF or ctx is done, calling fn for every message.
func (d *Decoder) Run(ctx context.Context, r io.Reader, fn func(*Message)) error {
	chunk := make([]byte, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(chunk)
		for _, msg := range d.Decode(chunk[:n]) {
			fn(msg)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read beast stream: %w", err)
		}
	}
}

var (
	errIncomplete = errors.New("incomplete message")
	errResync     = errors.New("unescaped sync byte inside message")
)

// unescape reads n message bytes from b, collapsing doubled sync bytes.
// consumed is the number of input bytes used. On errResync consumed points
// at the stray sync byte.
func unescape(b []byte, n int) (out []byte, consumed int, err error) {
	out = make([]byte, 0, n)
	i := 0
	for len(out) < n {
		if i >= len(b) {
			return nil, 0, errIncomplete
		}
		if b[i] == SyncByte {
			if i+1 >= len(b) {
				return nil, 0, errIncomplete
			}
			if b[i+1] != SyncByte {
				return nil, i, errResync
			}
			i++
		}
		out = append(out, b[i])
		i++
	}
	return out, i, nil
}

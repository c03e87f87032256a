// Package sink delivers decoded records to their destinations.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"airsuck/internal/ais"
	"airsuck/internal/ssr"
	"airsuck/internal/track"
)

// Envelope types.
const (
	TypeSSR = "airSSR"
	TypeAIS = "airAIS"
)

// Envelope wraps one decoded frame or sentence with its provenance.
type Envelope struct {
	ID     uuid.UUID    `json:"id"`
	Type   string       `json:"type"`
	DTS    time.Time    `json:"dts"`
	Src    string       `json:"src"`
	Data   string       `json:"data"`
	IsDupe bool         `json:"isDupe"`
	MLAT   bool         `json:"mlat,omitempty"`
	SSR    *ssr.Record  `json:"ssr,omitempty"`
	AIS    *ais.Record  `json:"ais,omitempty"`
	State  *track.State `json:"state,omitempty"`
}

// NewSSR wraps an SSR record. data is the frame in hex.
func NewSSR(src, data string, rec ssr.Record, ts time.Time) Envelope {
	return Envelope{
		ID:   uuid.New(),
		Type: TypeSSR,
		DTS:  ts.UTC(),
		Src:  src,
		Data: data,
		SSR:  &rec,
	}
}

// NewAIS wraps an AIS record. data is the sentence as received.
func NewAIS(src, data string, rec ais.Record, ts time.Time) Envelope {
	return Envelope{
		ID:   uuid.New(),
		Type: TypeAIS,
		DTS:  ts.UTC(),
		Src:  src,
		Data: data,
		AIS:  &rec,
	}
}

// Sink receives envelopes.
type Sink interface {
	Write(ctx context.Context, env Envelope) error
	Close() error
}

// Multi fans envelopes out to every sink. A failing sink does not stop
// delivery to the others.
type Multi []Sink

// Write delivers env to every sink and joins their errors.
func (m Multi) Write(ctx context.Context, env Envelope) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package sink

import (
	"context"
	"io"

	"airsuck/internal/basestation"
)

// BaseStation writes SSR envelopes as SBS-1 MSG lines. Envelopes without
// track state, duplicates and AIS envelopes are ignored.
type BaseStation struct {
	w   *basestation.Writer
	out io.Closer
}

// NewBaseStation creates a BaseStation sink. out is closed with the sink.
func NewBaseStation(w *basestation.Writer, out io.Closer) *BaseStation {
	return &BaseStation{w: w, out: out}
}

func (b *BaseStation) Write(_ context.Context, env Envelope) error {
	if env.SSR == nil || env.State == nil || env.IsDupe {
		return nil
	}
	return b.w.Write(*env.SSR, env.State, env.DTS)
}

func (b *BaseStation) Close() error {
	if b.out == nil {
		return nil
	}
	return b.out.Close()
}

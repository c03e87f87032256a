package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"airsuck/internal/ais"
	"airsuck/internal/beast"
	"airsuck/internal/metrics"
	"airsuck/internal/observability"
	"airsuck/internal/sink"
	"airsuck/internal/ssr"
	"airsuck/internal/store"
	"airsuck/internal/track"
)

// Dedup key kinds
const (
	dedupSSR = "ssr"
	dedupAIS = "ais"
)

// Stats counts what the pipeline has handled.
type Stats struct {
	SSRFrames    uint64
	SSRInvalid   uint64
	SSRCorrected uint64
	AISSentences uint64
	AISInvalid   uint64
	AISFragments uint64
	Duplicates   uint64
	SinkErrors   uint64
}

// Pipeline takes framed input through dedup, decoding, tracking, metrics
// and the sinks. It is safe for concurrent use.
type Pipeline struct {
	cfg         Config
	logger      *logrus.Logger
	dedup       store.DedupStore
	reassembler *ais.Reassembler
	engine      *track.Engine
	metrics     *metrics.Collector
	sink        sink.Sink
	tracer      trace.Tracer
	now         func() time.Time

	ssrFrames    atomic.Uint64
	ssrInvalid   atomic.Uint64
	ssrCorrected atomic.Uint64
	aisSentences atomic.Uint64
	aisInvalid   atomic.Uint64
	aisFragments atomic.Uint64
	duplicates   atomic.Uint64
	sinkErrors   atomic.Uint64
}

// PipelineDeps are the collaborators of a Pipeline. Nil Dedup, Engine,
// Metrics or Sink disable that stage; Fragments is required for AIS.
type PipelineDeps struct {
	Dedup     store.DedupStore
	Fragments ais.FragmentStore
	Engine    *track.Engine
	Metrics   *metrics.Collector
	Sink      sink.Sink
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg Config, deps PipelineDeps, logger *logrus.Logger) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		logger:  logger,
		dedup:   deps.Dedup,
		engine:  deps.Engine,
		metrics: deps.Metrics,
		sink:    deps.Sink,
		tracer:  otel.Tracer(observability.TracerName),
		now:     time.Now,
	}
	if deps.Fragments != nil {
		p.reassembler = ais.NewReassembler(deps.Fragments, cfg.FragmentTTL, p.aisOptions(), logger)
	}
	return p
}

func (p *Pipeline) ssrOptions() ssr.DecodeOptions {
	return ssr.DecodeOptions{DecodeNames: p.cfg.DecodeNames}
}

func (p *Pipeline) aisOptions() ais.DecodeOptions {
	return ais.DecodeOptions{DecodeNames: p.cfg.DecodeNames}
}

// HandleSSR handles one AVR line.
func (p *Pipeline) HandleSSR(ctx context.Context, src, line string) error {
	frame, err := ssr.ParseAVR(line)
	if err != nil {
		p.ssrInvalid.Add(1)
		p.metrics.Frame(metrics.KindSSR, metrics.ResultInvalid)
		return err
	}
	return p.handleFrame(ctx, src, frame.Data, frame.Hex, frame.IsMLAT())
}

// HandleBeast handles one Beast message. Status messages are ignored. Only
// multilateration results count as MLAT; the receiver clock stamped on
// every other frame does not exempt it from dedup.
func (p *Pipeline) HandleBeast(ctx context.Context, src string, msg *beast.Message) error {
	if !msg.IsFrame() {
		return nil
	}
	return p.handleFrame(ctx, src, msg.Data, hex.EncodeToString(msg.Data), msg.IsMLAT())
}

func (p *Pipeline) handleFrame(ctx context.Context, src string, data []byte, hexData string, mlat bool) error {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "ssr.frame", trace.WithAttributes(
		attribute.String("src", src),
		attribute.Int("len", len(data)),
		attribute.Bool("mlat", mlat),
	))
	defer span.End()
	defer func() {
		p.metrics.ObserveDecode(metrics.KindSSR, p.now().Sub(start).Seconds())
	}()

	p.ssrFrames.Add(1)

	isDupe := p.seen(ctx, dedupSSR, hexData, mlat)

	rec := ssr.Decode(data, p.ssrOptions())
	if rec.Mode == ssr.ModeInvalid {
		p.ssrInvalid.Add(1)
		p.metrics.Frame(metrics.KindSSR, metrics.ResultInvalid)
		err := fmt.Errorf("%w: %d bytes", ssr.ErrInvalidLength, len(data))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	result := metrics.ResultDecoded
	if p.cfg.FixErrors && rec.S != nil && !rec.S.CRCMatch() {
		if fixed, bit, ok := ssr.FixSingleBit(data); ok {
			p.logger.WithFields(logrus.Fields{
				"frame": hexData,
				"bit":   bit,
			}).Debug("Repaired single bit error")
			hexData = hex.EncodeToString(fixed)
			rec = ssr.Decode(fixed, p.ssrOptions())
			result = metrics.ResultCorrected
			p.ssrCorrected.Add(1)
		}
	}
	p.metrics.Frame(metrics.KindSSR, result)
	if rec.S != nil {
		p.metrics.DF(rec.S.DF)
		span.SetAttributes(attribute.Int("df", rec.S.DF))
	}

	ts := p.now()
	env := sink.NewSSR(src, hexData, rec, ts)
	env.IsDupe = isDupe
	env.MLAT = mlat

	if !isDupe && p.engine != nil {
		if up, ok := p.engine.Update(rec, src, mlat, ts); ok {
			st := up.State
			env.State = &st
			p.metrics.CPR(string(up.CPR))
			if up.CPR != track.CPRNone {
				span.SetAttributes(attribute.String("cpr", string(up.CPR)))
			}
		}
		p.metrics.SetTracked(p.engine.Len())
	}

	return p.deliver(ctx, span, env)
}

// HandleAIS handles one NMEA sentence. Fragments are held until their
// message is complete.
func (p *Pipeline) HandleAIS(ctx context.Context, src, line string) error {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "ais.sentence", trace.WithAttributes(
		attribute.String("src", src),
	))
	defer span.End()
	defer func() {
		p.metrics.ObserveDecode(metrics.KindAIS, p.now().Sub(start).Seconds())
	}()

	p.aisSentences.Add(1)

	rec, err := ais.DecodeSentence(line, p.aisOptions())
	if err != nil {
		p.aisInvalid.Add(1)
		p.metrics.Frame(metrics.KindAIS, metrics.ResultInvalid)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !rec.ChecksumOK() {
		p.logger.WithFields(logrus.Fields{
			"sentence": line,
			"frame":    fmt.Sprintf("%02X", rec.FrameChecksum),
			"computed": fmt.Sprintf("%02X", rec.CmpChecksum),
		}).Debug("AIS checksum mismatch")
	}

	// fragments are never deduplicated: identical parts of different
	// messages are common
	isDupe := false
	if !rec.IsFrag {
		isDupe = p.seen(ctx, dedupAIS, line, false)
	}

	if rec.IsFrag && p.reassembler != nil {
		assembled, complete, err := p.reassembler.Add(ctx, src, rec)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to reassemble AIS message: %w", err)
		}
		if !complete {
			p.aisFragments.Add(1)
			p.metrics.Frame(metrics.KindAIS, metrics.ResultFragment)
			return nil
		}
		rec = assembled
	}

	p.metrics.Frame(metrics.KindAIS, metrics.ResultDecoded)
	span.SetAttributes(
		attribute.Int("payload_type", rec.PayloadType),
		attribute.Int64("mmsi", int64(rec.MMSI)),
	)

	env := sink.NewAIS(src, line, rec, p.now())
	env.IsDupe = isDupe
	return p.deliver(ctx, span, env)
}

// seen reports whether data was already handled within the dedup window.
// MLAT frames carry a timestamp and are never duplicates.
func (p *Pipeline) seen(ctx context.Context, kind, data string, mlat bool) bool {
	if p.dedup == nil || mlat {
		return false
	}
	dupe, err := p.dedup.Seen(ctx, store.DedupKey(kind, data), p.cfg.DedupTTL)
	if err != nil {
		p.logger.WithError(err).Warn("Dedup lookup failed")
		return false
	}
	if dupe {
		p.duplicates.Add(1)
		p.metrics.Duplicate(kind)
	}
	return dupe
}

func (p *Pipeline) deliver(ctx context.Context, span trace.Span, env sink.Envelope) error {
	if p.sink == nil {
		return nil
	}
	if err := p.sink.Write(ctx, env); err != nil {
		p.sinkErrors.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "sink write failed")
		return fmt.Errorf("failed to deliver %s record: %w", env.Type, err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		SSRFrames:    p.ssrFrames.Load(),
		SSRInvalid:   p.ssrInvalid.Load(),
		SSRCorrected: p.ssrCorrected.Load(),
		AISSentences: p.aisSentences.Load(),
		AISInvalid:   p.aisInvalid.Load(),
		AISFragments: p.aisFragments.Load(),
		Duplicates:   p.duplicates.Load(),
		SinkErrors:   p.sinkErrors.Load(),
	}
}

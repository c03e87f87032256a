package app

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsuck/internal/ais"
	"airsuck/internal/beast"
	"airsuck/internal/metrics"
	"airsuck/internal/sink"
	"airsuck/internal/ssr"
	"airsuck/internal/store"
	"airsuck/internal/track"
)

const (
	identLine = "*8d4840d6202cc371c32ce0576098;"
	identHex  = "8d4840d6202cc371c32ce0576098"
	aisLine   = "!AIVDM,1,1,,A,15ND6u0P1@G6W1NIaNGEGwwh0@QB,0*0B"
	aisFrag1  = "!AIVDM,2,1,3,B,55P5TL01VIaAL@7WKO@mBplU@<PDhh000000001S;AJ::4A80?4i@E53,0*3E"
	aisFrag2  = "!AIVDM,2,2,3,B,1@0000000000000,2*55"
)

type recordingSink struct {
	mu  sync.Mutex
	got []sink.Envelope
	err error
}

func (r *recordingSink) Write(_ context.Context, env sink.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, env)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

type pipelineFixture struct {
	pipeline *Pipeline
	sink     *recordingSink
	metrics  *metrics.Collector
	engine   *track.Engine
}

func newPipelineFixture(t *testing.T, modify func(*Config)) *pipelineFixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := DefaultConfig()
	if modify != nil {
		modify(&cfg)
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	mem := store.NewMemory(store.DefaultCleanupInterval)
	t.Cleanup(func() { _ = mem.Close() })

	rec := &recordingSink{}
	engine := track.NewEngine(track.Config{}, logger)
	p := NewPipeline(cfg, PipelineDeps{
		Dedup:     mem,
		Fragments: mem,
		Engine:    engine,
		Metrics:   collector,
		Sink:      rec,
	}, logger)

	return &pipelineFixture{pipeline: p, sink: rec, metrics: collector, engine: engine}
}

func TestPipeline_HandleSSR(t *testing.T) {
	f := newPipelineFixture(t, nil)

	require.NoError(t, f.pipeline.HandleSSR(context.Background(), "rx1", identLine))

	require.Len(t, f.sink.got, 1)
	env := f.sink.got[0]
	assert.Equal(t, sink.TypeSSR, env.Type)
	assert.Equal(t, "rx1", env.Src)
	assert.Equal(t, identHex, env.Data)
	assert.False(t, env.IsDupe)
	require.NotNil(t, env.SSR)
	assert.Equal(t, ssr.ModeS, env.SSR.Mode)
	require.NotNil(t, env.State)
	assert.Equal(t, "KLM1023", env.State.Callsign)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Frames.WithLabelValues(metrics.KindSSR, metrics.ResultDecoded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DownlinkFormats.WithLabelValues("17")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Tracked))
}

func TestPipeline_HandleSSRDuplicate(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.pipeline.HandleSSR(ctx, "rx1", identLine))
	require.NoError(t, f.pipeline.HandleSSR(ctx, "rx2", identLine))

	require.Len(t, f.sink.got, 2)
	assert.False(t, f.sink.got[0].IsDupe)
	assert.True(t, f.sink.got[1].IsDupe)
	assert.Nil(t, f.sink.got[1].State)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Duplicates.WithLabelValues(metrics.KindSSR)))
	assert.Equal(t, uint64(1), f.pipeline.Stats().Duplicates)
}

func TestPipeline_HandleSSRMLATNeverDuplicate(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()
	line := "@0123456789ab" + identHex + ";"

	require.NoError(t, f.pipeline.HandleSSR(ctx, "rx1", line))
	require.NoError(t, f.pipeline.HandleSSR(ctx, "rx1", line))

	require.Len(t, f.sink.got, 2)
	for _, env := range f.sink.got {
		assert.False(t, env.IsDupe)
		assert.True(t, env.MLAT)
	}
}

func TestPipeline_HandleSSRInvalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "not hex", line: "*zz;"},
		{name: "odd length", line: "*8d4840d6202cc371c32ce057609;"},
		{name: "wrong length", line: "*8d4840d6;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t, nil)
			err := f.pipeline.HandleSSR(context.Background(), "rx1", tt.line)
			assert.ErrorIs(t, err, ssr.ErrInvalidLength)
			assert.Empty(t, f.sink.got)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Frames.WithLabelValues(metrics.KindSSR, metrics.ResultInvalid)))
		})
	}
}

func TestPipeline_FixErrors(t *testing.T) {
	damaged := "*8d4840d6202dc371c32ce0576098;"

	t.Run("disabled", func(t *testing.T) {
		f := newPipelineFixture(t, nil)
		require.NoError(t, f.pipeline.HandleSSR(context.Background(), "rx1", damaged))
		require.Len(t, f.sink.got, 1)
		assert.False(t, f.sink.got[0].SSR.S.CRCMatch())
		assert.Nil(t, f.sink.got[0].State)
	})

	t.Run("enabled", func(t *testing.T) {
		f := newPipelineFixture(t, func(c *Config) { c.FixErrors = true })
		require.NoError(t, f.pipeline.HandleSSR(context.Background(), "rx1", damaged))
		require.Len(t, f.sink.got, 1)

		env := f.sink.got[0]
		assert.Equal(t, identHex, env.Data)
		assert.True(t, env.SSR.S.CRCMatch())
		require.NotNil(t, env.State)
		assert.Equal(t, uint64(1), f.pipeline.Stats().SSRCorrected)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Frames.WithLabelValues(metrics.KindSSR, metrics.ResultCorrected)))
	})
}

func TestPipeline_HandleBeast(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()
	data, err := hex.DecodeString(identHex)
	require.NoError(t, err)

	require.NoError(t, f.pipeline.HandleBeast(ctx, "rx1", &beast.Message{MessageType: beast.ModeStatus, Data: []byte{0, 1}}))
	require.NoError(t, f.pipeline.HandleBeast(ctx, "rx1", &beast.Message{MessageType: beast.ModeSLong, Data: data}))

	require.Len(t, f.sink.got, 1)
	assert.Equal(t, identHex, f.sink.got[0].Data)
	assert.False(t, f.sink.got[0].MLAT)
}

func TestPipeline_HandleBeastReceiverClock(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()
	data, err := hex.DecodeString(identHex)
	require.NoError(t, err)

	// a running 12 MHz clock does not make frames MLAT or exempt them from dedup
	require.NoError(t, f.pipeline.HandleBeast(ctx, "rx1", &beast.Message{MessageType: beast.ModeSLong, Timestamp: 0x0123456789ab, Data: data}))
	require.NoError(t, f.pipeline.HandleBeast(ctx, "rx1", &beast.Message{MessageType: beast.ModeSLong, Timestamp: 0x0123456789ff, Data: data}))
	require.Len(t, f.sink.got, 2)
	assert.False(t, f.sink.got[0].MLAT)
	assert.False(t, f.sink.got[0].IsDupe)
	assert.True(t, f.sink.got[1].IsDupe)
	require.NotNil(t, f.sink.got[0].State)
	assert.False(t, f.sink.got[0].State.MLAT)

	require.NoError(t, f.pipeline.HandleBeast(ctx, "rx1", &beast.Message{MessageType: beast.ModeSLong, Timestamp: beast.MLATTimestamp, Data: data}))
	require.Len(t, f.sink.got, 3)
	assert.True(t, f.sink.got[2].MLAT)
	assert.False(t, f.sink.got[2].IsDupe)
}

func TestPipeline_HandleAIS(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.pipeline.HandleAIS(ctx, "coast", aisLine))
	require.NoError(t, f.pipeline.HandleAIS(ctx, "coast", aisLine))

	require.Len(t, f.sink.got, 2)
	env := f.sink.got[0]
	assert.Equal(t, sink.TypeAIS, env.Type)
	require.NotNil(t, env.AIS)
	assert.Equal(t, uint32(367331060), env.AIS.MMSI)
	require.NotNil(t, env.AIS.Position)
	assert.True(t, f.sink.got[1].IsDupe)
}

func TestPipeline_HandleAISFragments(t *testing.T) {
	f := newPipelineFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.pipeline.HandleAIS(ctx, "coast", aisFrag1))
	assert.Empty(t, f.sink.got)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Frames.WithLabelValues(metrics.KindAIS, metrics.ResultFragment)))

	require.NoError(t, f.pipeline.HandleAIS(ctx, "coast", aisFrag2))
	require.Len(t, f.sink.got, 1)

	rec := f.sink.got[0].AIS
	require.NotNil(t, rec)
	assert.True(t, rec.IsAssembled)
	assert.Equal(t, 5, rec.PayloadType)
	assert.Equal(t, uint32(369190000), rec.MMSI)
	assert.False(t, f.sink.got[0].IsDupe)
}

func TestPipeline_HandleAISMalformed(t *testing.T) {
	f := newPipelineFixture(t, nil)

	err := f.pipeline.HandleAIS(context.Background(), "coast", "!AIVDM,1,1,,A")
	assert.ErrorIs(t, err, ais.ErrMalformedSentence)
	assert.Empty(t, f.sink.got)
	assert.Equal(t, uint64(1), f.pipeline.Stats().AISInvalid)
}

func TestPipeline_SinkError(t *testing.T) {
	f := newPipelineFixture(t, nil)
	f.sink.err = errors.New("broker down")

	err := f.pipeline.HandleSSR(context.Background(), "rx1", identLine)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, uint64(1), f.pipeline.Stats().SinkErrors)
}

func TestPipeline_NoOptionalStages(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	p := NewPipeline(DefaultConfig(), PipelineDeps{}, logger)
	ctx := context.Background()

	assert.NoError(t, p.HandleSSR(ctx, "rx1", identLine))
	assert.NoError(t, p.HandleSSR(ctx, "rx1", identLine))
	assert.NoError(t, p.HandleAIS(ctx, "coast", aisLine))

	s := p.Stats()
	assert.Equal(t, uint64(2), s.SSRFrames)
	assert.Equal(t, uint64(1), s.AISSentences)
	assert.Zero(t, s.Duplicates)
}

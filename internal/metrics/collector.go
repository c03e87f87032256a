// Package metrics exposes Prometheus counters for the decoding pipeline.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame kinds and results used as label values.
const (
	KindSSR = "ssr"
	KindAIS = "ais"

	ResultDecoded   = "decoded"
	ResultInvalid   = "invalid"
	ResultCorrected = "corrected"
	ResultFragment  = "fragment"
)

// Collector bundles the pipeline metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Frames          *prometheus.CounterVec
	DownlinkFormats *prometheus.CounterVec
	CPRResolutions  *prometheus.CounterVec
	Duplicates      *prometheus.CounterVec
	Tracked         prometheus.Gauge
	DecodeDuration  *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice on the same registry returns the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airsuck_frames_total",
		Help: "Frames and sentences processed, labeled by kind and result.",
	}, []string{"kind", "result"}))
	if err != nil {
		return nil, err
	}
	dfs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airsuck_ssr_df_total",
		Help: "Decoded Mode S frames by downlink format.",
	}, []string{"df"}))
	if err != nil {
		return nil, err
	}
	cpr, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airsuck_cpr_resolutions_total",
		Help: "CPR position messages by resolution outcome.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}
	dupes, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airsuck_duplicates_total",
		Help: "Frames and sentences seen again within the dedup window.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	tracked, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "airsuck_tracked_aircraft",
		Help: "Aircraft currently held by the track engine.",
	}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airsuck_decode_duration_seconds",
		Help:    "Time spent handling one frame or sentence.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		Frames:          frames,
		DownlinkFormats: dfs,
		CPRResolutions:  cpr,
		Duplicates:      dupes,
		Tracked:         tracked,
		DecodeDuration:  duration,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Frame counts one frame of kind with result.
func (c *Collector) Frame(kind, result string) {
	if c == nil {
		return
	}
	c.Frames.WithLabelValues(kind, result).Inc()
}

// DF counts one Mode S frame.
func (c *Collector) DF(df int) {
	if c == nil {
		return
	}
	c.DownlinkFormats.WithLabelValues(strconv.Itoa(df)).Inc()
}

// CPR counts one CPR outcome. Empty results are ignored.
func (c *Collector) CPR(result string) {
	if c == nil || result == "" {
		return
	}
	c.CPRResolutions.WithLabelValues(result).Inc()
}

// Duplicate counts one duplicate of kind.
func (c *Collector) Duplicate(kind string) {
	if c == nil {
		return
	}
	c.Duplicates.WithLabelValues(kind).Inc()
}

// SetTracked sets the tracked aircraft gauge.
func (c *Collector) SetTracked(n int) {
	if c == nil {
		return
	}
	c.Tracked.Set(float64(n))
}

// ObserveDecode records the handling time of one input of kind.
func (c *Collector) ObserveDecode(kind string, seconds float64) {
	if c == nil {
		return
	}
	c.DecodeDuration.WithLabelValues(kind).Observe(seconds)
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

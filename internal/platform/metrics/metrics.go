package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the rig studio.
type Metrics struct {
	registry               *prometheus.Registry
	requestsTotal          prometheus.Counter
	playbacksStartedTotal  prometheus.Counter
	playbacksStoppedTotal  prometheus.Counter
	keyframesSampledTotal  prometheus.Counter
	animationsSavedTotal   prometheus.Counter
	staleReconcilesTotal   prometheus.Counter
	animating              prometheus.Gauge
	errorsTotal            prometheus.Counter
	requestDurationSeconds prometheus.Histogram
}

// New creates and registers Prometheus metrics for the studio.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_requests_total",
		Help: "Total number of HTTP requests received",
	})
	playbacksStartedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_playbacks_started_total",
		Help: "Total number of playback sessions started",
	})
	playbacksStoppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_playbacks_stopped_total",
		Help: "Total number of playback sessions stopped explicitly",
	})
	keyframesSampledTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_keyframes_sampled_total",
		Help: "Total number of keyframes sampled for playback",
	})
	animationsSavedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_animations_saved_total",
		Help: "Total number of animations saved to the store",
	})
	staleReconcilesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_stale_reconciles_total",
		Help: "Total number of local sessions forced idle by the remote status poll",
	})
	animating := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rig_animating",
		Help: "Whether a local playback session is active (1) or idle (0)",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rig_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	requestDurationSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rig_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(
		requestsTotal,
		playbacksStartedTotal,
		playbacksStoppedTotal,
		keyframesSampledTotal,
		animationsSavedTotal,
		staleReconcilesTotal,
		animating,
		errorsTotal,
		requestDurationSeconds,
	)

	return &Metrics{
		registry:               registry,
		requestsTotal:          requestsTotal,
		playbacksStartedTotal:  playbacksStartedTotal,
		playbacksStoppedTotal:  playbacksStoppedTotal,
		keyframesSampledTotal:  keyframesSampledTotal,
		animationsSavedTotal:   animationsSavedTotal,
		staleReconcilesTotal:   staleReconcilesTotal,
		animating:              animating,
		errorsTotal:            errorsTotal,
		requestDurationSeconds: requestDurationSeconds,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() { m.requestsTotal.Inc() }

// IncPlaybacksStarted increments the playback sessions started counter.
func (m *Metrics) IncPlaybacksStarted() { m.playbacksStartedTotal.Inc() }

// IncPlaybacksStopped increments the explicit stops counter.
func (m *Metrics) IncPlaybacksStopped() { m.playbacksStoppedTotal.Inc() }

// AddKeyframesSampled adds to the sampled keyframe counter.
func (m *Metrics) AddKeyframesSampled(n int) { m.keyframesSampledTotal.Add(float64(n)) }

// IncAnimationsSaved increments the animations saved counter.
func (m *Metrics) IncAnimationsSaved() { m.animationsSavedTotal.Inc() }

// IncStaleReconciles increments the stale-session reconcile counter.
func (m *Metrics) IncStaleReconciles() { m.staleReconcilesTotal.Inc() }

// SetAnimating sets the animating gauge.
func (m *Metrics) SetAnimating(active bool) {
	if active {
		m.animating.Set(1)
	} else {
		m.animating.Set(0)
	}
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() { m.errorsTotal.Inc() }

// ObserveRequestDuration records one request latency sample.
func (m *Metrics) ObserveRequestDuration(seconds float64) {
	m.requestDurationSeconds.Observe(seconds)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Pipeline stage labels.
const (
	StageSeparation = "separation"
	StageCuration   = "curation"
	StageCloning    = "cloning"
	StageSynthesis  = "synthesis"
)

// Metrics contains the Prometheus metrics of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Pipeline metrics
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	ClipsCurated  prometheus.Histogram

	// Outcome metrics
	VoiceModels  *prometheus.CounterVec
	TTSGenerated *prometheus.CounterVec
}

// New creates the metrics on a private registry, so several instances can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubvoice_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dubvoice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5 minutes
		}, []string{"method", "route"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dubvoice_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7 minutes
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubvoice_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		}, []string{"stage"}),
		ClipsCurated: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dubvoice_curated_clips",
			Help:    "Number of sample clips curated per source file",
			Buckets: prometheus.LinearBuckets(0, 5, 6), // 0 to 25
		}),

		VoiceModels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubvoice_voice_models_total",
			Help: "Total number of voice model builds by result",
		}, []string{"result"}),
		TTSGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dubvoice_tts_generated_total",
			Help: "Total number of synthesized utterances by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordStage records the duration of a pipeline stage and whether it failed.
func (m *Metrics) RecordStage(stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(stage).Inc()
	}
}

// RecordClips records how many clips one source file produced.
func (m *Metrics) RecordClips(n int) {
	if m == nil {
		return
	}
	m.ClipsCurated.Observe(float64(n))
}

// RecordVoiceModel counts a voice model build.
func (m *Metrics) RecordVoiceModel(err error) {
	if m == nil {
		return
	}
	m.VoiceModels.WithLabelValues(result(err)).Inc()
}

// RecordTTS counts a synthesized utterance.
func (m *Metrics) RecordTTS(err error) {
	if m == nil {
		return
	}
	m.TTSGenerated.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}

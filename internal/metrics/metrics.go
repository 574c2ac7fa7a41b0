package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters and histograms for one transcription job.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Routing
	Routes  *prometheus.CounterVec
	Windows prometheus.Counter

	// Remote transcription calls
	Requests        *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RequestBytes    prometheus.Histogram
	Segments        prometheus.Counter
}

// New creates the metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Routes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dualsub_route_total",
			Help: "Jobs routed, by path (single or chunked)",
		}, []string{"path"}),
		Windows: f.NewCounter(prometheus.CounterOpts{
			Name: "dualsub_windows_total",
			Help: "Audio windows produced by the chunker",
		}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dualsub_transcribe_requests_total",
			Help: "Transcription requests, by result",
		}, []string{"result"}),
		RequestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dualsub_transcribe_duration_seconds",
			Help:    "Latency of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		RequestBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dualsub_request_bytes",
			Help:    "Encoded request body size",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 8),
		}),
		Segments: f.NewCounter(prometheus.CounterOpts{
			Name: "dualsub_segments_total",
			Help: "Segments returned by the transcription service",
		}),
	}
}

// Route records which path a job took.
func (m *Metrics) Route(path string) {
	if m == nil {
		return
	}
	m.Routes.WithLabelValues(path).Inc()
}

// WindowsPlanned records the number of windows cut from a clip.
func (m *Metrics) WindowsPlanned(n int) {
	if m == nil {
		return
	}
	m.Windows.Add(float64(n))
}

// Request records one transcription call.
func (m *Metrics) Request(result string, seconds float64, bodyBytes, segments int) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(result).Inc()
	m.RequestDuration.Observe(seconds)
	m.RequestBytes.Observe(float64(bodyBytes))
	m.Segments.Add(float64(segments))
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

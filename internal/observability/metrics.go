package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	FramesCaptured  prometheus.Counter
	FramesSkipped   prometheus.Counter
	Recognitions    *prometheus.CounterVec
	Messages        *prometheus.CounterVec
	EnrolledUsers   prometheus.Gauge
	CaptureRestarts prometheus.Counter
	StoreErrors     *prometheus.CounterVec
	WSClients       prometheus.Gauge

	pipeline *pipelineStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		FramesCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames successfully pulled from the capture source.",
		}),
		FramesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Capture cycles skipped because the frame grab failed.",
		}),
		Recognitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Frame identification outcomes.",
		}, []string{"outcome"}),
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Chat messages by assigned category.",
		}, []string{"category"}),
		EnrolledUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrolled_users",
			Help:      "Number of identities in the store.",
		}),
		CaptureRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_restarts_total",
			Help:      "Wholesale capture loop restarts (refresh operations).",
		}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Identity store operation failures.",
		}, []string{"op"}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected websocket presentation clients.",
		}),
		pipeline: newPipelineStageWindow(256),
	}
}

// ObserveStage records one capture-pipeline stage latency sample.
func (m *Metrics) ObserveStage(stage string, ms float64) {
	m.pipeline.Observe(stage, ms)
}

// SnapshotPipeline summarizes recent per-stage latency.
func (m *Metrics) SnapshotPipeline() PipelineSnapshot {
	return m.pipeline.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TCPConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cordonnx_tcp_connections_total",
		Help: "Total TCP connections accepted",
	})
	TCPConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cordonnx_tcp_connections_active",
		Help: "Currently open TCP connections",
	})
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cordonnx_frames_received_total",
		Help: "Total frames extracted from the TCP streams",
	})
	PacketsDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_packets_decoded_total",
		Help: "Decoded packets by type",
	}, []string{"type"})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cordonnx_decode_errors_total",
		Help: "Frames that failed to decode",
	})
	SinkFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_sink_flushes_total",
		Help: "Batch flushes by sink",
	}, []string{"sink"})
	SinkDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_sink_documents_total",
		Help: "Documents written by sink",
	}, []string{"sink"})
	SinkDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_sink_drops_total",
		Help: "Documents dropped after write failures by sink",
	}, []string{"sink"})
	SinkQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cordonnx_sink_queue_depth",
		Help: "Documents waiting in the sink queue",
	}, []string{"sink"})
	AlertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_alerts_raised_total",
		Help: "Alert events raised by type",
	}, []string{"type"})
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cordonnx_notifications_sent_total",
		Help: "Notifications delivered by channel",
	}, []string{"channel"})
)

// StartMetricsServer exposes /metrics and a liveness endpoint. Blocks,
// run it in a goroutine.
func StartMetricsServer(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return http.ListenAndServe(":"+port, mux)
}

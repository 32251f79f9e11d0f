package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_events_total",
		Help: "Count of dispatched events by outcome",
	}, []string{"event", "done"})

	eventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_event_duration_seconds",
		Help:    "Duration of dispatched events",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_exports_total",
		Help: "Count of export attempts by format and result",
	}, []string{"format", "result"})

	artifactsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crm_export_artifacts_swept_total",
		Help: "Count of expired export artifacts removed",
	})

	socketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crm_socket_connections",
		Help: "Number of open websocket connections",
	})
)

func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveEvent records one dispatched event and whether its envelope was done.
func ObserveEvent(event string, done bool, duration time.Duration) {
	label := "false"
	if done {
		label = "true"
	}
	eventsTotal.WithLabelValues(event, label).Inc()
	eventDuration.WithLabelValues(event).Observe(duration.Seconds())
}

func ObserveExport(format, result string) {
	exportsTotal.WithLabelValues(format, result).Inc()
}

func ObserveSwept(count int) {
	if count > 0 {
		artifactsSwept.Add(float64(count))
	}
}

func SocketOpened() {
	socketConnections.Inc()
}

func SocketClosed() {
	socketConnections.Dec()
}

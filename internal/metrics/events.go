package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event decoding metrics. Labels stay low-cardinality: event type and
// operation come from the family table, never from device-supplied ids.

var (
	EventsDecodedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vapix_events_decoded_total",
		Help: "Total number of decoded event notifications",
	}, []string{"type", "operation"})

	EventsUnsupportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vapix_events_unsupported_total",
		Help: "Total number of notifications whose topic matched no event family",
	})

	EventsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vapix_events_skipped_total",
		Help: "Total number of messages that carried no notification",
	})

	EventsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vapix_events_tracked",
		Help: "Current number of events held by the tracker",
	})

	SinkPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vapix_events_sink_publish_total",
		Help: "Total number of envelope publishes per sink",
	}, []string{"sink", "result"}) // "success", "fail"

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vapix_events_ws_clients",
		Help: "Current number of connected websocket clients",
	})

	CaptureFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vapix_events_capture_files_total",
		Help: "Total number of capture files processed",
	}, []string{"result"})
)

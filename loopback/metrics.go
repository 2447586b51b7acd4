package loopback

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionMetrics contains atomic metrics of an endpoint.
type ConnectionMetrics struct {
	// DataMsgSendCount indicates the number of data messages sent.
	DataMsgSendCount atomic.Uint64
	// DataMsgRecvCount indicates the number of data messages received.
	DataMsgRecvCount atomic.Uint64
	// DataMsgErrCount indicates the number of messages that failed to be sent or decoded.
	DataMsgErrCount atomic.Uint64
	// DataMsgInflightCount indicates the number of sent primaries waiting for their reply.
	DataMsgInflightCount atomic.Int64
	// T3TimeoutCount indicates the number of replies that timed out.
	T3TimeoutCount atomic.Uint64
	// ConnectCount indicates the number of established connections.
	ConnectCount atomic.Uint64
}

// Collectors returns prometheus collectors reading the metrics, labeled with role.
func (m *ConnectionMetrics) Collectors(role string) []prometheus.Collector {
	counter := func(name, help string, v *atomic.Uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "secs_simulator",
			Subsystem:   "loopback",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"role": role},
		}, func() float64 { return float64(v.Load()) })
	}

	return []prometheus.Collector{
		counter("data_messages_sent_total", "Data messages written to the pipe.", &m.DataMsgSendCount),
		counter("data_messages_received_total", "Data messages read from the pipe.", &m.DataMsgRecvCount),
		counter("data_message_errors_total", "Data messages that failed to be written or decoded.", &m.DataMsgErrCount),
		counter("t3_timeouts_total", "Sent primaries whose reply timed out.", &m.T3TimeoutCount),
		counter("connects_total", "Established connections.", &m.ConnectCount),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "secs_simulator",
			Subsystem:   "loopback",
			Name:        "inflight_primaries",
			Help:        "Sent primaries waiting for their reply.",
			ConstLabels: prometheus.Labels{"role": role},
		}, func() float64 { return float64(m.DataMsgInflightCount.Load()) }),
	}
}

// Register registers the metrics to reg, labeled with role.
func (m *ConnectionMetrics) Register(reg prometheus.Registerer, role string) error {
	for _, c := range m.Collectors(role) {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

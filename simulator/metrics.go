package simulator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "secs_simulator"

// Metrics contains the prometheus collectors of a simulator.
type Metrics struct {
	// MessagesSent counts sent data messages by kind: "primary", "reply" or "unsolicited".
	MessagesSent *prometheus.CounterVec
	// MessagesReceived counts received data messages by kind: "primary" or "reply".
	MessagesReceived *prometheus.CounterVec
	// AutoReplies counts auto-replies by type: "template", "sxf0" or "s9fy".
	AutoReplies *prometheus.CounterVec
	// SendErrors counts failed sends.
	SendErrors prometheus.Counter
	// MacroCommands counts executed macro commands by command and result ("ok" or "error").
	MacroCommands *prometheus.CounterVec
	// PendingPrimaries is the number of received primaries waiting for a reply.
	PendingPrimaries prometheus.Gauge
	// Connected is 1 while connected to the peer, 0 otherwise.
	Connected prometheus.Gauge
}

// NewMetrics creates the simulator metrics and registers them with reg.
//
// A nil reg leaves the collectors unregistered. Collectors already registered by another
// simulator are shared.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_sent_total",
			Help:      "Total number of sent data messages",
		}, []string{"kind"}),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_received_total",
			Help:      "Total number of received data messages",
		}, []string{"kind"}),

		AutoReplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auto_replies_total",
			Help:      "Total number of automatic replies",
		}, []string{"type"}),

		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_errors_total",
			Help:      "Total number of failed sends",
		}),

		MacroCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "macro",
			Name:      "commands_total",
			Help:      "Total number of executed macro commands",
		}, []string{"command", "result"}),

		PendingPrimaries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pending_primaries",
			Help:      "Number of received primary messages waiting for a reply",
		}),

		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connected",
			Help:      "Connection state (1=connected, 0=disconnected)",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.MessagesSent, err = register(reg, m.MessagesSent); err != nil {
		return nil, err
	}
	if m.MessagesReceived, err = register(reg, m.MessagesReceived); err != nil {
		return nil, err
	}
	if m.AutoReplies, err = register(reg, m.AutoReplies); err != nil {
		return nil, err
	}
	if m.SendErrors, err = register(reg, m.SendErrors); err != nil {
		return nil, err
	}
	if m.MacroCommands, err = register(reg, m.MacroCommands); err != nil {
		return nil, err
	}
	if m.PendingPrimaries, err = register(reg, m.PendingPrimaries); err != nil {
		return nil, err
	}
	if m.Connected, err = register(reg, m.Connected); err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveMacroCommand counts an executed macro command.
func (m *Metrics) ObserveMacroCommand(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.MacroCommands.WithLabelValues(command, result).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, err
	}

	return c, nil
}

// Package metrics exposes broker activity as Prometheus collectors.
package metrics

import (
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stomp"

// Sources are read on every scrape.
type Sources struct {
	Connections   func() int
	Subscriptions func() int
	Topics        func() int
	PendingAcks   func() int
}

// Metrics holds the broker collectors on a private registry. It implements
// the session recorder.
type Metrics struct {
	registry *prometheus.Registry

	framesReceived    *prometheus.CounterVec
	framesSent        *prometheus.CounterVec
	protocolErrors    *prometheus.CounterVec
	messagesPublished prometheus.Counter
	deliveries        prometheus.Counter
	fanOut            prometheus.Histogram
	connectionsTotal  *prometheus.CounterVec
	disconnects       *prometheus.CounterVec
}

func New(sources Sources) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Frames received from clients by command",
		}, []string{"command"}),

		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Frames queued to clients by command",
		}, []string{"command"}),

		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "errors_total",
			Help:      "Protocol errors by message, whether or not an ERROR frame was sent",
		}, []string{"message"}),

		messagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "published_total",
			Help:      "SEND frames routed",
		}),

		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "delivered_total",
			Help:      "MESSAGE frames queued to subscribers",
		}),

		fanOut: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "fan_out",
			Help:      "Subscribers reached per published message",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "accepted_total",
			Help:      "Accepted client connections by transport",
		}, []string{"transport"}),

		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connections",
			Name:      "closed_total",
			Help:      "Closed client connections by reason",
		}, []string{"reason"}),
	}

	collectors := []prometheus.Collector{
		m.framesReceived,
		m.framesSent,
		m.protocolErrors,
		m.messagesPublished,
		m.deliveries,
		m.fanOut,
		m.connectionsTotal,
		m.disconnects,
		prometheus.NewGoCollector(),
	}
	collectors = append(collectors, gauges(sources)...)

	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func gauges(sources Sources) []prometheus.Collector {
	var result []prometheus.Collector
	add := func(subsystem, name, help string, f func() int) {
		if f == nil {
			return
		}
		result = append(result, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(f()) }))
	}
	add("connections", "active", "Live client connections", sources.Connections)
	add("subscriptions", "active", "Registered subscriptions", sources.Subscriptions)
	add("subscriptions", "topics", "Topics with at least one subscription", sources.Topics)
	add("acks", "pending", "Messages waiting for acknowledgements", sources.PendingAcks)
	return result
}

// Registry returns the registry holding every broker collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) FrameReceived(command stomp.Command) {
	m.framesReceived.WithLabelValues(commandLabel(command)).Inc()
}

func (m *Metrics) FrameSent(command stomp.Command) {
	m.framesSent.WithLabelValues(commandLabel(command)).Inc()
}

func (m *Metrics) MessagePublished(deliveries int) {
	m.messagesPublished.Inc()
	m.deliveries.Add(float64(deliveries))
	m.fanOut.Observe(float64(deliveries))
}

func (m *Metrics) ProtocolError(message string) {
	m.protocolErrors.WithLabelValues(message).Inc()
}

// ConnectionAccepted counts a new client on transport ("tcp" or "websocket").
func (m *Metrics) ConnectionAccepted(transport string) {
	m.connectionsTotal.WithLabelValues(transport).Inc()
}

// ConnectionClosed counts a teardown by reason.
func (m *Metrics) ConnectionClosed(reason string) {
	m.disconnects.WithLabelValues(reason).Inc()
}

// commandLabel keeps label cardinality bounded.
func commandLabel(command stomp.Command) string {
	if !command.Valid() {
		return "UNKNOWN"
	}
	return string(command)
}

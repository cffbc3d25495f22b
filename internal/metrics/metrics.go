// Package metrics tracks runtime statistics of an mqtls session in a
// private Prometheus registry.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "mqtls"

// Handshake results used as the "result" label.
const (
	resultOK    = "ok"
	resultError = "error"
)

// Collector tracks runtime metrics for an mqtls session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	registry *prometheus.Registry

	connectorsBuilt   *prometheus.CounterVec
	handshakes        *prometheus.CounterVec
	handshakeDuration *prometheus.HistogramVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	bytesIn           prometheus.Counter
	bytesOut          prometheus.Counter
	tunnelDials       prometheus.Counter
	errorsTotal       *prometheus.CounterVec

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with its own registry and the start time set
// to now.
func New() *Collector {
	c := &Collector{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		connectorsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectors_built_total",
			Help:      "TLS connectors built, by backend.",
		}, []string{"backend"}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "TLS handshakes attempted, by backend and result.",
		}, []string{"backend", "result"}),
		handshakeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handshake_duration_seconds",
			Help:      "TLS handshake latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"backend"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Broker connections currently open.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Broker connections opened.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Bytes read from the broker.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Bytes written to the broker.",
		}),
		tunnelDials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tunnel_dials_total",
			Help:      "Connections opened through the SSH bastion.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors recorded, by kind.",
		}, []string{"kind"}),
	}

	c.registry.MustRegister(
		c.connectorsBuilt,
		c.handshakes,
		c.handshakeDuration,
		c.connectionsActive,
		c.connectionsTotal,
		c.bytesIn,
		c.bytesOut,
		c.tunnelDials,
		c.errorsTotal,
	)
	return c
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ── TLS metrics ──────────────────────────────────────────────────────

// ConnectorBuilt records a successfully built connector.
func (c *Collector) ConnectorBuilt(backend string) {
	if c == nil {
		return
	}
	c.connectorsBuilt.WithLabelValues(backend).Inc()
}

// HandshakeDone records a finished handshake and its latency.
func (c *Collector) HandshakeDone(backend string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	c.handshakes.WithLabelValues(backend, result).Inc()
	c.handshakeDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Inc()
	c.connectionsTotal.Inc()
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Dec()
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return int64(gaugeValue(c.connectionsActive))
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return int64(counterValue(c.connectionsTotal))
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n bytes read from the network.
func (c *Collector) BytesReceived(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.bytesIn.Add(float64(n))
}

// BytesSent records n bytes written to the network.
func (c *Collector) BytesSent(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.bytesOut.Add(float64(n))
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return int64(counterValue(c.bytesIn))
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return int64(counterValue(c.bytesOut))
}

// ── Tunnel metrics ───────────────────────────────────────────────────

// TunnelDial records a connection opened through the bastion.
func (c *Collector) TunnelDial() {
	if c == nil {
		return
	}
	c.tunnelDials.Inc()
}

// TunnelDials returns the number of bastion connections.
func (c *Collector) TunnelDials() int64 {
	if c == nil {
		return 0
	}
	return int64(counterValue(c.tunnelDials))
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter for kind and stores the
// message.
func (c *Collector) RecordError(kind, msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.WithLabelValues(kind).Inc()
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	var n int64
	for _, v := range c.byLabel("errors_total", "kind") {
		n += v
	}
	return n
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	ConnectorsBuilt   int64            `json:"connectors_built"`
	HandshakesOK      int64            `json:"handshakes_ok"`
	HandshakesFailed  int64            `json:"handshakes_failed"`
	HandshakeMeanMs   float64          `json:"handshake_mean_ms,omitempty"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	TunnelDials       int64            `json:"tunnel_dials,omitempty"`
	ErrorsTotal       int64            `json:"errors_total"`
	ErrorsByKind      map[string]int64 `json:"errors_by_kind,omitempty"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.ActiveConnections(),
		ConnectionsTotal:  c.TotalConnections(),
		BytesIn:           c.TotalBytesIn(),
		BytesOut:          c.TotalBytesOut(),
		TunnelDials:       c.TunnelDials(),
	}
	for _, v := range c.byLabel("connectors_built_total", "backend") {
		s.ConnectorsBuilt += v
	}
	results := c.byLabel("handshakes_total", "result")
	s.HandshakesOK = results[resultOK]
	s.HandshakesFailed = results[resultError]

	if count, sum := c.handshakeTotals(); count > 0 {
		s.HandshakeMeanMs = sum / float64(count) * 1000
	}

	if kinds := c.byLabel("errors_total", "kind"); len(kinds) > 0 {
		s.ErrorsByKind = kinds
		for _, v := range kinds {
			s.ErrorsTotal += v
		}
	}

	c.mu.RLock()
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	c.mu.RUnlock()
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

// ── Read-back helpers ────────────────────────────────────────────────

func counterValue(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}

func gaugeValue(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return 0
	}
	return out.GetGauge().GetValue()
}

// family gathers the registry and returns the named metric family.
func (c *Collector) family(name string) *dto.MetricFamily {
	families, err := c.registry.Gather()
	if err != nil {
		return nil
	}
	full := prometheus.BuildFQName(namespace, "", name)
	for _, f := range families {
		if f.GetName() == full {
			return f
		}
	}
	return nil
}

// byLabel sums a counter family grouped by the value of label.
func (c *Collector) byLabel(name, label string) map[string]int64 {
	f := c.family(name)
	if f == nil {
		return nil
	}
	out := make(map[string]int64)
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += int64(m.GetCounter().GetValue())
			}
		}
	}
	return out
}

func (c *Collector) handshakeTotals() (count uint64, sum float64) {
	f := c.family("handshake_duration_seconds")
	if f == nil {
		return 0, 0
	}
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		count += h.GetSampleCount()
		sum += h.GetSampleSum()
	}
	return count, sum
}

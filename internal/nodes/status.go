package nodes

import (
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Status is the transient indicator a node shows while it works. The zero
// value clears it.
type Status struct {
	Fill  string `json:"fill,omitempty"`
	Shape string `json:"shape,omitempty"`
	Text  string `json:"text,omitempty"`
}

// IsClear reports whether s clears the indicator.
func (s Status) IsClear() bool {
	return s == Status{}
}

// IsFailure reports whether s marks a failed operation.
func (s Status) IsFailure() bool {
	return s.Fill == "red"
}

// StatusRequesting is shown while a request is in flight.
var StatusRequesting = Status{Fill: "blue", Shape: "dot", Text: "Requesting..."}

// Failure returns a red status carrying text.
func Failure(text string) Status {
	return Status{Fill: "red", Shape: "dot", Text: text}
}

// StatusSink receives status changes of nodes. The host adapts it to its
// display; tests record it.
type StatusSink interface {
	SetStatus(node string, s Status)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(node string, s Status)

// SetStatus implements StatusSink.
func (f StatusFunc) SetStatus(node string, s Status) {
	f(node, s)
}

// NopStatus discards status changes.
type NopStatus struct{}

// SetStatus implements StatusSink.
func (NopStatus) SetStatus(string, Status) {}

// LogStatus writes status changes to a logger.
type LogStatus struct {
	Logger *slog.Logger
}

// NewLogStatus creates a sink that logs to logger, or slog.Default() if nil.
func NewLogStatus(logger *slog.Logger) *LogStatus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStatus{Logger: logger}
}

// SetStatus implements StatusSink.
func (l *LogStatus) SetStatus(node string, s Status) {
	switch {
	case s.IsClear():
		l.Logger.Debug("status cleared", "node", node)
	case s.IsFailure():
		l.Logger.Warn("status", "node", node, "fill", s.Fill, "text", s.Text)
	default:
		l.Logger.Debug("status", "node", node, "fill", s.Fill, "text", s.Text)
	}
}

// MultiStatus fans status changes out to several sinks.
type MultiStatus []StatusSink

// SetStatus implements StatusSink.
func (m MultiStatus) SetStatus(node string, s Status) {
	for _, sink := range m {
		sink.SetStatus(node, s)
	}
}

// MetricsStatus exposes the persistent failure indicator of every node as a
// gauge: 1 while the node's last invocation failed, 0 otherwise.
type MetricsStatus struct {
	Failed *prometheus.GaugeVec
}

// NewMetricsStatus creates the gauge and registers it with reg when non-nil.
func NewMetricsStatus(reg prometheus.Registerer) *MetricsStatus {
	m := &MetricsStatus{
		Failed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jira_node_failed",
				Help: "Whether the last invocation of a node failed (1) or not (0)",
			},
			[]string{"node"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Failed)
	}
	return m
}

// SetStatus implements StatusSink.
func (m *MetricsStatus) SetStatus(node string, s Status) {
	switch {
	case s.IsFailure():
		m.Failed.WithLabelValues(node).Set(1)
	case s.IsClear():
		m.Failed.WithLabelValues(node).Set(0)
	}
}

// indicator holds the current status of one node.
type indicator struct {
	mu      sync.Mutex
	current Status
}

func (i *indicator) set(s Status) {
	i.mu.Lock()
	i.current = s
	i.mu.Unlock()
}

func (i *indicator) get() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

package jira

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects request outcomes of an executor.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	IssuesEmitted   prometheus.Counter
	PagesFetched    prometheus.Counter
}

// NewMetrics creates the Jira metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jira_requests_total",
			Help: "Total number of Jira REST requests",
		},
		[]string{"operation", "outcome", "status"},
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jira_request_duration_seconds",
			Help:    "Duration of Jira REST requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.IssuesEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jira_search_issues_total",
			Help: "Total number of issues yielded by paginated searches",
		},
	)

	m.PagesFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jira_search_pages_total",
			Help: "Total number of search pages processed",
		},
	)

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.IssuesEmitted,
			m.PagesFetched,
		)
	}

	return m
}

func (m *Metrics) observe(op Operation, res Result, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(string(op), res.Kind.String(), statusLabel(res)).Inc()
	m.RequestDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

func (m *Metrics) page(issues int) {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
	m.IssuesEmitted.Add(float64(issues))
}

// Package prompush pushes run telemetry to a Prometheus Pushgateway.
//
// A run is a short lived batch job, so there is no scrape endpoint: the
// collectors live in a private registry that is pushed once when the run
// finishes.
package prompush

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJobName groups pushes when no job name is configured
const DefaultJobName = "salesstack"

const (
	statusOK    = "ok"
	statusError = "error"
)

// Backend is a Prometheus Pushgateway metrics backend
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // salesstack_stage_total
	stageDuration *prometheus.SummaryVec // salesstack_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // salesstack_rows_total
}

// NewBackend constructs a Pushgateway backend. gatewayURL is required; an
// empty jobName uses DefaultJobName.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, errors.New("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = DefaultJobName
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesstack_stage_total",
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "salesstack_stage_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesstack_rows_total",
			Help: "Rows handled by the run per kind (read, written, cleaned).",
		},
		[]string{"kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"stage counter": stageCounter,
		"stage summary": stageDuration,
		"row counter":   rowCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
	}, nil
}

// RecordStage counts one execution of stage and observes its duration
func (b *Backend) RecordStage(stage string, err error, d time.Duration) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	b.stageCounter.WithLabelValues(stage, status).Inc()
	b.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// AddRows adds n to the row counter for kind. Negative counts are ignored.
func (b *Backend) AddRows(kind string, n int64) {
	if n < 0 {
		return
	}
	b.rowCounter.WithLabelValues(kind).Add(float64(n))
}

// Flush pushes the current registry to the Pushgateway, replacing the
// previous push of the same job
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}

package metrics

import (
	"sync/atomic"
	"time"
)

// PipelineMetrics accumulates counters across pipeline runs.
type PipelineMetrics struct {
	LookupLatency *Histogram

	Runs         atomic.Uint64
	FailedRuns   atomic.Uint64
	Lookups      atomic.Uint64
	LookupErrors atomic.Uint64

	startTime time.Time
}

// NewPipelineMetrics creates an empty collector.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		LookupLatency: NewHistogram(defaultMaxSamples),
		startTime:     time.Now(),
	}
}

// RecordLookup records one catalog lookup.
func (m *PipelineMetrics) RecordLookup(d time.Duration, err error) {
	m.Lookups.Add(1)
	if err != nil {
		m.LookupErrors.Add(1)
	}
	m.LookupLatency.Record(d)
}

// RecordRun records the outcome of one run.
func (m *PipelineMetrics) RecordRun(err error) {
	m.Runs.Add(1)
	if err != nil {
		m.FailedRuns.Add(1)
	}
}

// PipelineStats is a point-in-time copy of PipelineMetrics.
type PipelineStats struct {
	LookupLatency LatencyStats `json:"lookup_latency"`
	Runs          uint64       `json:"runs"`
	FailedRuns    uint64       `json:"failed_runs"`
	Lookups       uint64       `json:"lookups"`
	LookupErrors  uint64       `json:"lookup_errors"`
	Uptime        string       `json:"uptime"`
}

// Stats returns a snapshot of the current counters.
func (m *PipelineMetrics) Stats() PipelineStats {
	return PipelineStats{
		LookupLatency: m.LookupLatency.Stats(),
		Runs:          m.Runs.Load(),
		FailedRuns:    m.FailedRuns.Load(),
		Lookups:       m.Lookups.Load(),
		LookupErrors:  m.LookupErrors.Load(),
		Uptime:        time.Since(m.startTime).Round(time.Second).String(),
	}
}

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistogram_Stats(t *testing.T) {
	h := NewHistogram(0)
	assert.Equal(t, LatencyStats{}, h.Stats())

	for i := 1; i <= 100; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	stats := h.Stats()
	assert.Equal(t, 100, stats.Count)
	assert.InDelta(t, 50.5, stats.Mean, 0.001)
	assert.InDelta(t, 50.5, stats.P50, 0.001)
	assert.InDelta(t, 95.05, stats.P95, 0.001)
	assert.InDelta(t, 100, stats.Max, 0.001)
}

func TestHistogram_DropsOldestWhenFull(t *testing.T) {
	h := NewHistogram(10)
	for i := 0; i < 11; i++ {
		h.Record(time.Duration(i) * time.Millisecond)
	}

	assert.Equal(t, 9, h.Count())
	assert.InDelta(t, 10, h.Stats().Max, 0.001)
}

func TestPipelineMetrics(t *testing.T) {
	m := NewPipelineMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if i%4 == 0 {
				err = errors.New("unavailable")
			}
			m.RecordLookup(time.Millisecond, err)
		}()
	}
	wg.Wait()

	m.RecordRun(nil)
	m.RecordRun(errors.New("not found"))

	stats := m.Stats()
	assert.Equal(t, uint64(20), stats.Lookups)
	assert.Equal(t, uint64(5), stats.LookupErrors)
	assert.Equal(t, uint64(2), stats.Runs)
	assert.Equal(t, uint64(1), stats.FailedRuns)
	assert.Equal(t, 20, stats.LookupLatency.Count)
}

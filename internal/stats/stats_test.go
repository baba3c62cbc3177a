package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/royalcat/polyreduce/labeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	sum := summarize([]Sample{
		{HeapAlloc: 10, CPUPercent: 50, NumGoroutine: 3, NumGC: 1},
		{HeapAlloc: 30, CPUPercent: 100, NumGoroutine: 8, NumGC: 4},
		{HeapAlloc: 20, CPUPercent: 0, NumGoroutine: 2, NumGC: 4},
	}, time.Second)

	assert.Equal(t, uint64(30), sum.PeakHeapAlloc)
	assert.Equal(t, 100.0, sum.PeakCPUPercent)
	assert.Equal(t, 50.0, sum.AvgCPUPercent)
	assert.Equal(t, 8, sum.PeakGoroutines)
	assert.Equal(t, uint32(4), sum.TotalGCCycles)
	assert.Equal(t, 3, sum.SampleCount)

	assert.Equal(t, 0, summarize(nil, time.Second).SampleCount)
}

func TestEvenly(t *testing.T) {
	samples := make([]Sample, 1000)
	for i := range samples {
		samples[i].NumGoroutine = i
	}
	out := evenly(samples, maxSamples)
	require.Len(t, out, maxSamples)
	assert.Equal(t, 0, out[0].NumGoroutine)
	assert.Equal(t, 999, out[maxSamples-1].NumGoroutine)
}

func TestCollector(t *testing.T) {
	c, err := NewCollector(10 * time.Millisecond)
	require.NoError(t, err)
	c.Start()
	time.Sleep(50 * time.Millisecond)
	rt := c.Stop()

	assert.GreaterOrEqual(t, len(rt.Samples), 2)
	assert.Equal(t, len(rt.Samples), rt.Summary.SampleCount)
	assert.Greater(t, rt.Summary.PeakHeapAlloc, uint64(0))
}

func TestReport(t *testing.T) {
	labels := labeler.Summary{
		Features:     1500,
		Labeled:      1200,
		Skipped:      300,
		Rounds:       6000,
		MaxRounds:    31,
		Terminations: map[string]int{"area_floor": 1100, "degenerate": 100},
		Duration:     2 * time.Second,
	}
	r := Report{
		Runtime: RuntimeStats{Samples: []Sample{{HeapAlloc: 2048}}, Summary: Summary{PeakHeapAlloc: 3 << 20}},
		Labels:  &labels,
	}

	var buf bytes.Buffer
	_, err := r.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "Labeled:      1,200")
	assert.Contains(t, out, "mean 5.00, max 31")
	assert.Contains(t, out, "area_floor")
	assert.Contains(t, out, "3.0 MiB")
	assert.Contains(t, out, "600 polygons/s")

	buf.Reset()
	_, err = Report{}.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "LABELS")

	path := filepath.Join(t.TempDir(), "stats.txt")
	require.NoError(t, r.SaveToFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "POLYREDUCE RUN REPORT")
}

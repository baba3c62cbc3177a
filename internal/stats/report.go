package stats

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/royalcat/polyreduce/labeler"
)

const (
	rule       = "--------------------------------------------------------------------------------\n"
	maxSamples = 100
)

// Report is the text file written by the batch commands.
type Report struct {
	Runtime RuntimeStats
	// Labels is nil for commands that do not label polygons.
	Labels *labeler.Summary
}

func (r Report) SaveToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer f.Close()

	if _, err := r.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return f.Close()
}

func (r Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	rt := r.Runtime

	sb.WriteString("POLYREDUCE RUN REPORT\n\n")

	sb.WriteString("TIME\n" + rule)
	fmt.Fprintf(&sb, "  Start:     %s\n", rt.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&sb, "  End:       %s\n", rt.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&sb, "  Duration:  %s\n\n", rt.TotalElapsed.Round(time.Millisecond))

	if l := r.Labels; l != nil {
		sb.WriteString("LABELS\n" + rule)
		fmt.Fprintf(&sb, "  Run:          %s\n", l.RunID)
		fmt.Fprintf(&sb, "  Features:     %s\n", humanize.Comma(int64(l.Features)))
		fmt.Fprintf(&sb, "  Labeled:      %s\n", humanize.Comma(int64(l.Labeled)))
		fmt.Fprintf(&sb, "  Skipped:      %s\n", humanize.Comma(int64(l.Skipped)))
		fmt.Fprintf(&sb, "  Failed:       %s\n", humanize.Comma(int64(l.Failed)))
		fmt.Fprintf(&sb, "  Deduplicated: %s\n", humanize.Comma(int64(l.Deduped)))
		fmt.Fprintf(&sb, "  Rounds:       mean %.2f, max %d\n", l.MeanRounds(), l.MaxRounds)
		if l.Duration > 0 && l.Labeled > 0 {
			fmt.Fprintf(&sb, "  Throughput:   %s polygons/s\n", humanize.CommafWithDigits(float64(l.Labeled)/l.Duration.Seconds(), 1))
		}

		reasons := make([]string, 0, len(l.Terminations))
		for k := range l.Terminations {
			reasons = append(reasons, k)
		}
		sort.Strings(reasons)
		for _, k := range reasons {
			fmt.Fprintf(&sb, "    %-12s %s\n", k, humanize.Comma(int64(l.Terminations[k])))
		}
		sb.WriteString("\n")
	}

	s := rt.Summary
	sb.WriteString("RESOURCES\n" + rule)
	fmt.Fprintf(&sb, "  Samples:         %d every %s\n", s.SampleCount, s.SampleInterval)
	fmt.Fprintf(&sb, "  Peak heap:       %s\n", humanize.IBytes(s.PeakHeapAlloc))
	fmt.Fprintf(&sb, "  Peak sys:        %s\n", humanize.IBytes(s.PeakSys))
	fmt.Fprintf(&sb, "  Peak RSS:        %s\n", humanize.IBytes(s.PeakProcessRSS))
	fmt.Fprintf(&sb, "  CPU:             peak %.1f%%, avg %.1f%%\n", s.PeakCPUPercent, s.AvgCPUPercent)
	fmt.Fprintf(&sb, "  Peak goroutines: %d\n", s.PeakGoroutines)
	fmt.Fprintf(&sb, "  GC cycles:       %d\n\n", s.TotalGCCycles)

	sb.WriteString("SAMPLES\n" + rule)
	samples := rt.Samples
	if len(samples) > maxSamples {
		fmt.Fprintf(&sb, "  (showing %d of %d samples)\n", maxSamples, len(samples))
		samples = evenly(samples, maxSamples)
	}
	fmt.Fprintf(&sb, "%-12s %-12s %-12s %-8s %-10s\n", "Elapsed", "Heap", "RSS", "CPU %", "Goroutines")
	for _, smp := range samples {
		fmt.Fprintf(&sb, "%-12s %-12s %-12s %-8.1f %-10d\n",
			smp.Elapsed.Round(100*time.Millisecond),
			humanize.IBytes(smp.HeapAlloc),
			humanize.IBytes(smp.ProcessRSS),
			smp.CPUPercent,
			smp.NumGoroutine)
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// evenly picks n samples spread over the whole run, first and last included.
func evenly(samples []Sample, n int) []Sample {
	out := make([]Sample, 0, n)
	step := float64(len(samples)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, samples[int(float64(i)*step)])
	}
	return out
}

package stats

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

// RuntimeStats holds the samples of one batch run.
type RuntimeStats struct {
	StartTime    time.Time
	EndTime      time.Time
	TotalElapsed time.Duration
	Samples      []Sample
	Summary      Summary
}

type Sample struct {
	Elapsed time.Duration

	HeapAlloc    uint64
	Sys          uint64
	NumGC        uint32
	ProcessRSS   uint64
	CPUPercent   float64
	SystemCPU    float64
	NumGoroutine int
}

type Summary struct {
	PeakHeapAlloc  uint64
	PeakSys        uint64
	PeakProcessRSS uint64
	PeakCPUPercent float64
	AvgCPUPercent  float64
	PeakGoroutines int
	TotalGCCycles  uint32
	SampleCount    int
	SampleInterval time.Duration
}

// Collector samples memory and CPU usage of the process in the background.
type Collector struct {
	mu       sync.Mutex
	stats    RuntimeStats
	stopChan chan struct{}
	doneChan chan struct{}
	interval time.Duration
	proc     *process.Process
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
		proc:     proc,
	}, nil
}

func (c *Collector) Start() {
	c.stats.StartTime = time.Now()
	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stopChan:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{
		Elapsed:      time.Since(c.stats.StartTime),
		HeapAlloc:    mem.HeapAlloc,
		Sys:          mem.Sys,
		NumGC:        mem.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
		s.ProcessRSS = info.RSS
	}
	if p, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = p
	}
	if total, err := cpu.Percent(0, false); err == nil && len(total) > 0 {
		s.SystemCPU = total[0]
	}

	c.mu.Lock()
	c.stats.Samples = append(c.stats.Samples, s)
	c.mu.Unlock()
}

// Stop ends sampling and returns the collected stats.
func (c *Collector) Stop() RuntimeStats {
	close(c.stopChan)
	<-c.doneChan

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.EndTime = time.Now()
	c.stats.TotalElapsed = c.stats.EndTime.Sub(c.stats.StartTime)
	c.stats.Summary = summarize(c.stats.Samples, c.interval)
	return c.stats
}

func summarize(samples []Sample, interval time.Duration) Summary {
	sum := Summary{
		SampleCount:    len(samples),
		SampleInterval: interval,
	}
	if len(samples) == 0 {
		return sum
	}

	var totalCPU float64
	for _, s := range samples {
		sum.PeakHeapAlloc = max(sum.PeakHeapAlloc, s.HeapAlloc)
		sum.PeakSys = max(sum.PeakSys, s.Sys)
		sum.PeakProcessRSS = max(sum.PeakProcessRSS, s.ProcessRSS)
		sum.PeakCPUPercent = max(sum.PeakCPUPercent, s.CPUPercent)
		sum.PeakGoroutines = max(sum.PeakGoroutines, s.NumGoroutine)
		sum.TotalGCCycles = max(sum.TotalGCCycles, s.NumGC)
		totalCPU += s.CPUPercent
	}
	sum.AvgCPUPercent = totalCPU / float64(len(samples))
	return sum
}

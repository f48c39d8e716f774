package system

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one reading of host and process load.
type Snapshot struct {
	Time          time.Time
	LogicalCPUs   int
	CPUPercent    float64 // whole host, since the previous call
	MemoryPercent float64 // whole host
	ProcessRSS    uint64  // bytes
}

// Sample reads the current load. Individual probes that fail leave their
// field zero; an error is returned only when nothing could be read.
func Sample(ctx context.Context) (Snapshot, error) {
	s := Snapshot{Time: time.Now()}
	var failures int

	if n, err := cpu.Counts(true); err == nil {
		s.LogicalCPUs = n
	} else {
		failures++
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	} else {
		failures++
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	} else {
		failures++
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.ProcessRSS = mi.RSS
		} else {
			failures++
		}
	} else {
		failures++
	}

	if failures == 4 {
		return s, fmt.Errorf("no host statistics available")
	}
	return s, nil
}

// Monitor samples load in the background while a preview runs.
type Monitor struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	mu      sync.Mutex
	samples []Snapshot
}

// StartMonitor begins sampling every interval until Stop.
func StartMonitor(ctx context.Context, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Monitor{interval: interval, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(m.done)
		m.record(ctx)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.record(ctx)
			}
		}
	}()
	return m
}

func (m *Monitor) record(ctx context.Context) {
	s, err := Sample(ctx)
	if err != nil {
		return
	}
	m.mu.Lock()
	m.samples = append(m.samples, s)
	m.mu.Unlock()
}

// Summary aggregates the samples collected so far.
type Summary struct {
	Samples     int
	LogicalCPUs int
	AvgCPU      float64
	PeakMemory  float64
	PeakRSS     uint64
}

func (s Summary) String() string {
	return fmt.Sprintf("CPU: %.1f%% avg of %d cores | RAM: %.1f%% peak | RSS: %.1f MiB peak",
		s.AvgCPU, s.LogicalCPUs, s.PeakMemory, float64(s.PeakRSS)/(1<<20))
}

// Stop ends sampling and returns the summary. It is safe to call twice.
func (m *Monitor) Stop() Summary {
	m.cancel()
	<-m.done

	m.mu.Lock()
	defer m.mu.Unlock()
	var sum Summary
	sum.Samples = len(m.samples)
	for _, s := range m.samples {
		sum.AvgCPU += s.CPUPercent
		sum.LogicalCPUs = max(sum.LogicalCPUs, s.LogicalCPUs)
		sum.PeakMemory = max(sum.PeakMemory, s.MemoryPercent)
		sum.PeakRSS = max(sum.PeakRSS, s.ProcessRSS)
	}
	if sum.Samples > 0 {
		sum.AvgCPU /= float64(sum.Samples)
	}
	return sum
}

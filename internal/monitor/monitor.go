// Package monitor samples the process while a session runs and logs the
// numbers, so resource creep shows up in the log instead of a UI.
package monitor

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

const defaultInterval = 10 * time.Second

type Monitor struct {
	proc     *process.Process
	interval time.Duration
}

func New(interval time.Duration) (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		proc:     proc,
		interval: interval,
	}, nil
}

func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logStats()
		}
	}
}

func (m *Monitor) logStats() {
	fields := log.Fields{
		"goroutines": runtime.NumGoroutine(),
	}

	if cpu, err := m.proc.CPUPercent(); err == nil {
		fields["cpu_pct"] = cpu
	}
	if mem, err := m.proc.MemoryInfo(); err == nil {
		fields["rss_mb"] = mem.RSS / 1024 / 1024
	}

	log.WithFields(fields).Debug("Process stats")
}

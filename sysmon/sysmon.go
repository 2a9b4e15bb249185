// Package sysmon samples disk I/O counters while a benchmark run is in
// flight and logs the deltas at debug level. It is a diagnostic aid for
// judging whether a read policy actually spread the load across devices; the
// reported bandwidth always comes from fio, never from here.
package sysmon

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
)

const sampleInterval = time.Second

// Monitor samples local disk counters in the background. It only works for
// benchmarks against the local machine; callers benchmarking over SSH skip
// it.
type Monitor struct {
	stop *atomic.Bool
	wg   *sync.WaitGroup
}

func New() *Monitor {
	return &Monitor{stop: &atomic.Bool{}, wg: &sync.WaitGroup{}}
}

func (m *Monitor) Start() {
	m.stop.Store(false)
	m.wg.Add(1)
	go m.run()
}

func (m *Monitor) Stop() {
	m.stop.Store(true)
	m.wg.Wait()
}

func (m *Monitor) run() {
	defer m.wg.Done()

	prev, err := disk.IOCounters()
	if err != nil {
		slog.Debug("disk counter sampling unavailable", slog.String("error", err.Error()))
		return
	}

	for !m.stop.Load() {
		time.Sleep(sampleInterval)

		cur, err := disk.IOCounters()
		if err != nil {
			slog.Debug("disk counter sample failed", slog.String("error", err.Error()))
			continue
		}
		for name, c := range cur {
			p, ok := prev[name]
			if !ok || c.ReadBytes == p.ReadBytes {
				continue
			}
			slog.Debug("disk read activity",
				slog.String("device", name),
				slog.Uint64("read_bytes", c.ReadBytes-p.ReadBytes),
				slog.Uint64("reads", c.ReadCount-p.ReadCount))
		}
		prev = cur
	}
}

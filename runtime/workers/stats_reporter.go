package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/abdullayevf/chat-app/contract"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/shirou/gopsutil/process"
)

// StatsReporterWorker periodically logs server counters together with the
// CPU and memory footprint of the chat process.
type StatsReporterWorker struct {
	log      *slog.Logger
	stats    *observability.Stats
	registry contract.IRegistry
	interval time.Duration
}

func NewStatsReporterWorker(
	log *slog.Logger,
	stats *observability.Stats,
	registry contract.IRegistry,
	interval time.Duration,
) *StatsReporterWorker {
	return &StatsReporterWorker{
		log:      log,
		stats:    stats,
		registry: registry,
		interval: interval,
	}
}

func (w *StatsReporterWorker) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stats reporter")
			return nil
		case <-ticker.C:
			w.report(proc)
		}
	}
}

func (w *StatsReporterWorker) report(proc *process.Process) {
	attrs := []any{"online", len(w.registry.Snapshot())}
	for key, value := range w.stats.Snapshot() {
		attrs = append(attrs, key, value)
	}

	if cpu, err := proc.CPUPercent(); err != nil {
		w.log.Debug("Error while finding process cpu usage", "err", err)
	} else {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	if mem, err := proc.MemoryInfo(); err != nil {
		w.log.Debug("Error while finding process ram usage", "err", err)
	} else {
		attrs = append(attrs, "rss_mb", mem.RSS/(1024*1024))
	}

	w.log.Info("Server stats", attrs...)
}

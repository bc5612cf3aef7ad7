package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// HostSampler snapshots the local host with gopsutil.
type HostSampler struct {
	diskPath string
	now      func() time.Time

	cpuPercent    func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage     func(ctx context.Context, path string) (*disk.UsageStat, error)
	netCounters   func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
}

// NewHostSampler samples disk usage of diskPath ("/" when empty).
func NewHostSampler(diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{
		diskPath:      diskPath,
		now:           time.Now,
		cpuPercent:    cpu.PercentWithContext,
		virtualMemory: mem.VirtualMemoryWithContext,
		diskUsage:     disk.UsageWithContext,
		netCounters:   net.IOCountersWithContext,
	}
}

func (h *HostSampler) Sample(ctx context.Context) (*domain.Sample, error) {
	// interval 0 compares against the previous call instead of blocking.
	cpuPct, err := h.cpuPercent(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	if len(cpuPct) == 0 {
		return nil, errors.New("cpu percent: no data")
	}

	vm, err := h.virtualMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	du, err := h.diskUsage(ctx, h.diskPath)
	if err != nil {
		return nil, fmt.Errorf("disk usage %s: %w", h.diskPath, err)
	}

	counters, err := h.netCounters(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("net io counters: %w", err)
	}
	if len(counters) == 0 {
		return nil, errors.New("net io counters: no data")
	}
	nio := counters[0]

	return &domain.Sample{
		Timestamp:  h.now().UTC(),
		CPUPercent: cpuPct[0],
		Memory: map[string]float64{
			"total":     float64(vm.Total),
			"available": float64(vm.Available),
			"percent":   vm.UsedPercent,
			"used":      float64(vm.Used),
			"free":      float64(vm.Free),
		},
		Disk: map[string]float64{
			"total":   float64(du.Total),
			"used":    float64(du.Used),
			"free":    float64(du.Free),
			"percent": du.UsedPercent,
		},
		NetIO: map[string]float64{
			"bytes_sent":   float64(nio.BytesSent),
			"bytes_recv":   float64(nio.BytesRecv),
			"packets_sent": float64(nio.PacketsSent),
			"packets_recv": float64(nio.PacketsRecv),
			"errin":        float64(nio.Errin),
			"errout":       float64(nio.Errout),
			"dropin":       float64(nio.Dropin),
			"dropout":      float64(nio.Dropout),
		},
	}, nil
}

var _ ports.Sampler = (*HostSampler)(nil)

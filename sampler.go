package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSampler reads host-wide CPU and memory usage.
type HostSampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
}

// psSampler samples through gopsutil. CPUPercent blocks for interval so
// the rate is measured rather than taken from the previous call.
type psSampler struct {
	interval time.Duration
}

func newPSSampler(interval time.Duration) *psSampler {
	return &psSampler{interval: interval}
}

func (s *psSampler) CPUPercent(ctx context.Context) (float64, error) {
	percent, err := cpu.PercentWithContext(ctx, s.interval, false)
	if err != nil {
		return 0, fmt.Errorf("sampling cpu: %w", err)
	}
	if len(percent) == 0 {
		return 0, errors.New("sampling cpu: no data")
	}
	return percent[0], nil
}

func (s *psSampler) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("sampling memory: %w", err)
	}
	return vm.UsedPercent, nil
}

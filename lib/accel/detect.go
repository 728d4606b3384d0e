package accel

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// DeviceInfo describes an accelerator for listing.
type DeviceInfo struct {
	Name          string `json:"name"`
	Backend       string `json:"backend"`
	Model         string `json:"model"`
	LogicalCores  int    `json:"logical_cores"`
	PhysicalCores int    `json:"physical_cores"`
	MemoryTotal   uint64 `json:"memory_total"`
}

// Detect lists the devices OpenDevice can produce on this machine.
func Detect(ctx context.Context) ([]DeviceInfo, error) {
	logical, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("counting logical cores: %w", err)
	}

	physical, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		physical = 0
	}

	info := DeviceInfo{
		Name:          BackendHost,
		Backend:       BackendHost,
		LogicalCores:  logical,
		PhysicalCores: physical,
	}

	if stats, err := cpu.InfoWithContext(ctx); err == nil && len(stats) > 0 {
		info.Model = stats[0].ModelName
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	}

	return []DeviceInfo{info}, nil
}

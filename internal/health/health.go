package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"ewaste-backend/internal/metrics"
)

// Pinger is implemented by both workflow stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db     Pinger
	driver string
	// sampleCPU is swapped out in tests; cpu.Percent blocks for the interval.
	sampleCPU func() (float64, error)
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
}

type DatabaseHealth struct {
	Driver       string `json:"driver"`
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
}

type DetailedStatus struct {
	HealthStatus
	Host HostStats `json:"host"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskUsed      uint64  `json:"disk_used_bytes"`
	DiskTotal     uint64  `json:"disk_total_bytes"`
}

func NewHealthChecker(db Pinger, driver string) *HealthChecker {
	return &HealthChecker{db: db, driver: driver, sampleCPU: sampleCPU}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

// CheckDetailed adds host resource usage to the basic check and refreshes
// the host gauges on /metrics.
func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	out := DetailedStatus{HealthStatus: h.CheckBasic(ctx)}

	if pct, err := h.sampleCPU(); err == nil {
		out.Host.CPUPercent = pct
		metrics.CPUPercent.Set(pct)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.Host.MemoryPercent = vm.UsedPercent
		out.Host.MemoryUsed = vm.Used
		out.Host.MemoryTotal = vm.Total
		metrics.MemoryPercent.Set(vm.UsedPercent)
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		out.Host.DiskPercent = du.UsedPercent
		out.Host.DiskUsed = du.Used
		out.Host.DiskTotal = du.Total
		metrics.DiskPercent.Set(du.UsedPercent)
	}
	return out
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Driver:       h.driver,
			Status:       "unhealthy",
			ResponseTime: responseTime,
			Error:        err.Error(),
		}
	}

	return DatabaseHealth{
		Driver:       h.driver,
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func sampleCPU() (float64, error) {
	pcts, err := cpu.Percent(200*time.Millisecond, false)
	if err != nil || len(pcts) == 0 {
		return 0, err
	}
	return pcts[0], nil
}

package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckBasic(t *testing.T) {
	ok := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), "sqlite")
	status := ok.CheckBasic(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "sqlite", status.Database.Driver)
	assert.Empty(t, status.Database.Error)

	down := NewHealthChecker(pingFunc(func(context.Context) error { return errors.New("connection refused") }), "postgres")
	status = down.CheckBasic(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "connection refused", status.Database.Error)
}

func TestCheckDetailed(t *testing.T) {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), "sqlite")
	h.sampleCPU = func() (float64, error) { return 12.5, nil }

	status := h.CheckDetailed(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.Host.CPUPercent)
	assert.GreaterOrEqual(t, status.Host.MemoryPercent, 0.0)
}

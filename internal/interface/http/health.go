package http

import (
	"context"
	"time"
)

// Pinger is satisfied by the postgres connection and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthChecker reports health based on pings to the backing stores.
type StoreHealthChecker struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewStoreHealthChecker creates a health checker over named stores.
func NewStoreHealthChecker(checks map[string]Pinger) *StoreHealthChecker {
	return &StoreHealthChecker{
		checks:  checks,
		timeout: 3 * time.Second,
	}
}

// Check pings every registered store. The service is healthy and ready
// only when all stores respond.
func (c *StoreHealthChecker) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status := HealthStatus{
		Healthy: true,
		Ready:   true,
		Checks:  make(map[string]string, len(c.checks)),
	}

	for name, pinger := range c.checks {
		if err := pinger.Ping(ctx); err != nil {
			status.Healthy = false
			status.Ready = false
			status.Message = name + " unreachable"
			status.Checks[name] = "down: " + err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	return status
}

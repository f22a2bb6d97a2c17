// Package health provides periodic health checks with auto-recovery.
// Checks run on an interval; failed checks get one recovery attempt.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is how often checks run when no interval is given.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Store is the storage surface the standard checks need.
type Store interface {
	Ping(ctx context.Context) error
	SchemaVersion() (int64, error)
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *zap.Logger
}

// NewChecker creates a checker with the storage checks followed by extra.
// minSchema is the lowest migration version the binary can run against.
func NewChecker(store Store, minSchema int64, interval time.Duration, log *zap.Logger, extra ...Check) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	checks := []Check{
		{
			Name:    "sqlite",
			CheckFn: store.Ping,
		},
		{
			Name: "schema",
			CheckFn: func(ctx context.Context) error {
				return checkSchema(store, minSchema)
			},
		},
	}
	return &Checker{
		interval: interval,
		checks:   append(checks, extra...),
		log:      log.Named("health"),
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check once and records the results.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			c.log.Warn("check failed", zap.String("check", check.Name), zap.Error(err))
			// Attempt recovery
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.Warn("recovery failed", zap.String("check", check.Name), zap.Error(rerr))
				}
			}
		} else {
			s.Healthy = true
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
	return statuses
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

func checkSchema(store Store, minSchema int64) error {
	v, err := store.SchemaVersion()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v < minSchema {
		return fmt.Errorf("schema version %d is older than required %d", v, minSchema)
	}
	return nil
}

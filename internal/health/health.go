// Package health watches a live session by re-running its connectivity
// probe on an interval.
package health

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

type CheckFunc func(ctx context.Context) error

type Config struct {
	Interval  time.Duration
	Threshold int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Threshold <= 0 {
		c.Threshold = 3
	}
	return c
}

// Checker invokes OnUnhealthy once after Threshold consecutive failures
// and OnRecovered on the next success. A single slow flake never trips
// it.
type Checker struct {
	cfg   Config
	check CheckFunc

	OnUnhealthy func(err error)
	OnRecovered func()

	failures  int
	unhealthy bool
}

func NewChecker(cfg Config, check CheckFunc) *Checker {
	return &Checker{
		cfg:   cfg.withDefaults(),
		check: check,
	}
}

// Run drives the checker until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CheckNow(ctx)
		}
	}
}

// CheckNow runs a single check immediately.
func (c *Checker) CheckNow(ctx context.Context) {
	err := c.check(ctx)
	if err == nil {
		if c.unhealthy && c.OnRecovered != nil {
			c.OnRecovered()
		}
		if c.failures > 0 {
			log.Debugf("Health check recovered after %d failures", c.failures)
		}
		c.failures = 0
		c.unhealthy = false
		return
	}

	c.failures++
	log.Warnf("Health check failed (%d/%d): %v", c.failures, c.cfg.Threshold, err)

	if c.failures >= c.cfg.Threshold && !c.unhealthy {
		c.unhealthy = true
		if c.OnUnhealthy != nil {
			c.OnUnhealthy(err)
		}
	}
}

package backend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/metrics"
)

// DefaultProbeTimeout bounds a single availability probe.
const DefaultProbeTimeout = 2 * time.Second

// HealthChecker is the part of Client the probe needs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Prober answers whether the backend is reachable within a hard timeout.
type Prober struct {
	checker HealthChecker
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewProber constructs a Prober. A non-positive timeout falls back to DefaultProbeTimeout.
func NewProber(checker HealthChecker, timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{checker: checker, timeout: timeout, metrics: m, logger: logger}
}

// Available fails open: any error, cancellation or timeout yields false.
func (p *Prober) Available(ctx context.Context) bool {
	start := time.Now()
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.checker.Health(probeCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-probeCtx.Done():
		err = probeCtx.Err()
	}

	available := err == nil
	p.metrics.ObserveProbe(available, time.Since(start))
	if !available {
		p.log().Debug("backend unavailable", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	}
	return available
}

// Timeout returns the configured probe bound.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

func (p *Prober) log() *zap.Logger {
	if p != nil && p.logger != nil {
		return p.logger
	}
	return zap.L()
}

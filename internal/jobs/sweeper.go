// Package jobs runs the platform's periodic maintenance.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// CheckInterval is how often the schedule is evaluated.
const CheckInterval = time.Minute

// Expirer moves overdue licenses to expired.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Sweeper runs the license expiry sweep whenever its cron expression is due.
type Sweeper struct {
	expirer Expirer
	expr    string
	logger  *slog.Logger
	expired prometheus.Counter

	Clock clock.Clock

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweeper validates expr and returns a stopped sweeper. expired may be nil.
func NewSweeper(expirer Expirer, expr string, logger *slog.Logger, expired prometheus.Counter) (*Sweeper, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("invalid cron expression %q", expr)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		expirer: expirer,
		expr:    expr,
		logger:  logger,
		expired: expired,
		Clock:   clock.New(),
	}, nil
}

// Tick runs the sweep if the schedule is due at now and returns how many
// licenses expired.
func (s *Sweeper) Tick(ctx context.Context, now time.Time) (int, error) {
	// Ticks drift off the minute boundary; gronx only matches second zero.
	due, err := gronx.New().IsDue(s.expr, now.UTC().Truncate(time.Minute))
	if err != nil {
		return 0, fmt.Errorf("evaluate schedule: %w", err)
	}
	if !due {
		return 0, nil
	}

	n, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("license sweep failed", "error", err)
		return n, err
	}
	if s.expired != nil {
		s.expired.Add(float64(n))
	}
	s.logger.Debug("license sweep finished", "expired", n)
	return n, nil
}

// Start checks the schedule every CheckInterval until Stop or ctx is done.
// The ticker is armed before Start returns.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	ticker := s.Clock.Ticker(CheckInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				_, _ = s.Tick(ctx, t)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("license sweeper started", "schedule", s.expr)
}

// Stop halts the loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

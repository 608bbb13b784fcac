package realtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/metrics"
)

// TickFunc is one cycle of a periodic task.
type TickFunc func(ctx context.Context) error

// Periodic runs a TickFunc on a fixed interval. The next timer is armed only
// after the current tick returns, so ticks never overlap. A failing or
// panicking tick is logged and the schedule continues.
type Periodic struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Tick     TickFunc
	NewRelic *newrelic.Application
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"task":     p.Name,
		"interval": p.Interval.String(),
	}).Info("periodic task started")

	timer := time.NewTimer(p.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("task", p.Name).Info("periodic task stopped")
			return
		case <-timer.C:
			p.RunOnce(ctx)
			timer.Reset(p.Interval)
		}
	}
}

// RunOnce executes a single guarded tick and reports its outcome.
func (p *Periodic) RunOnce(ctx context.Context) (err error) {
	txn := p.NewRelic.StartTransaction(p.Name)
	defer txn.End()

	tickCtx := newrelic.NewContext(ctx, txn)
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(tickCtx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			err = fmt.Errorf("%s: panic: %v", p.Name, r)
			logrus.WithFields(logrus.Fields{
				"task":  p.Name,
				"stack": string(debug.Stack()),
			}).Error(err)
		}
		if err != nil {
			txn.NoticeError(err)
		}
		metrics.TaskTicks.WithLabelValues(p.Name, outcome).Inc()
		metrics.TaskDuration.WithLabelValues(p.Name).Observe(time.Since(start).Seconds())
	}()

	if err = p.Tick(tickCtx); err != nil {
		outcome = "error"
		logrus.WithError(err).WithField("task", p.Name).Error("periodic task cycle skipped")
	}
	return err
}

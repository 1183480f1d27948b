// Package monitor runs the probe loop: probe, append, sleep, forever.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/probe"
	"github.com/hamed0406/wanuptime/internal/repo"
)

type Loop struct {
	Logger  *zap.Logger
	Prober  probe.Prober
	Records repo.RecordWriter
	Target  string
	Period  time.Duration
	Timeout time.Duration

	// Now and Sleep default to the wall clock. Sleep returns early with
	// ctx.Err() when ctx is cancelled.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	runID          string
	last           time.Time
	appendFailures int
}

func NewLoop(
	logger *zap.Logger,
	prober probe.Prober,
	records repo.RecordWriter,
	target string,
	period time.Duration,
	timeout time.Duration,
) *Loop {
	if timeout <= 0 || timeout > period {
		timeout = period
	}
	return &Loop{
		Logger:  logger,
		Prober:  prober,
		Records: records,
		Target:  target,
		Period:  period,
		Timeout: timeout,
		Now:     time.Now,
		Sleep:   sleepCtx,
		runID:   uuid.NewString(),
	}
}

// RunID identifies this run in the process log.
func (l *Loop) RunID() string { return l.runID }

// Run probes once per period until ctx is cancelled. Probe and store
// failures never stop it.
func (l *Loop) Run(ctx context.Context) error {
	if l.Period <= 0 {
		return fmt.Errorf("monitor: period must be positive, got %s", l.Period)
	}
	l.Logger.Info("monitor_start",
		zap.String("run_id", l.runID),
		zap.String("target", l.Target),
		zap.Duration("period", l.Period),
		zap.Duration("timeout", l.Timeout),
	)

	for {
		started := l.Now()
		l.iterate(ctx, started)
		if ctx.Err() != nil {
			break
		}

		wait := l.Period - l.Now().Sub(started)
		if wait < 0 {
			l.Logger.Debug("monitor_overrun", zap.Duration("over_by", -wait))
			wait = 0
		}
		if err := l.Sleep(ctx, wait); err != nil {
			break
		}
	}

	l.Logger.Info("monitor_stopped", zap.String("run_id", l.runID))
	return nil
}

func (l *Loop) iterate(ctx context.Context, started time.Time) {
	defer func() {
		if v := recover(); v != nil {
			l.Logger.Error("monitor_iteration_panic", zap.Any("panic", v), zap.Stack("stack"))
		}
	}()

	at := started.UTC()
	if at.Before(l.last) {
		l.Logger.Warn("monitor_clock_stepped_back",
			zap.Time("now", at),
			zap.Time("previous", l.last))
		at = l.last
	}

	rec := l.Prober.Probe(ctx, at, l.Timeout)
	if ctx.Err() != nil {
		// Interrupted by shutdown, not an observation of the target.
		return
	}
	rec.Timestamp = at
	l.last = at
	l.store(ctx, rec)
}

func (l *Loop) store(ctx context.Context, rec domain.ProbeRecord) {
	if err := l.Records.Append(ctx, rec); err != nil {
		l.appendFailures++
		l.Logger.Warn("append_failed",
			zap.Time("ts", rec.Timestamp),
			zap.Bool("ok", rec.Success),
			zap.Int("consecutive_failures", l.appendFailures),
			zap.Error(err),
		)
		return
	}
	if l.appendFailures > 0 {
		l.Logger.Info("append_recovered", zap.Int("failed_appends", l.appendFailures))
		l.appendFailures = 0
	}

	fields := []zap.Field{zap.Time("ts", rec.Timestamp), zap.Bool("ok", rec.Success)}
	if rec.Latency != nil {
		fields = append(fields, zap.Duration("latency", *rec.Latency))
	} else {
		fields = append(fields, zap.String("reason", rec.FailureReason))
	}
	l.Logger.Debug("probe_recorded", fields...)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

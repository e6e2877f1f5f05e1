// Package agent drives the tracking cycle: snapshot, filter, reconcile, emit,
// sleep. Cycles run strictly one after another on a single goroutine, and the
// accumulated state is owned by that goroutine.
package agent

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/internal/output"
	"github.com/kubesonde/netprobe/internal/proc"
	"github.com/kubesonde/netprobe/internal/telemetry"
	"github.com/kubesonde/netprobe/internal/tracker"
)

type Option func(*Agent)

func WithClock(c clock.Clock) Option {
	return func(a *Agent) { a.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

func WithTrackerOptions(o tracker.Options) Option {
	return func(a *Agent) { a.tracker = tracker.New(o) }
}

type Agent struct {
	source   proc.Source
	emitter  output.Emitter
	interval time.Duration

	clock   clock.Clock
	logger  *zap.Logger
	metrics *telemetry.Metrics
	tracker *tracker.Tracker
	cycle   int
}

func New(source proc.Source, emitter output.Emitter, interval time.Duration, opts ...Option) *Agent {
	a := &Agent{
		source:   source,
		emitter:  emitter,
		interval: interval,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		tracker:  tracker.New(tracker.Options{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = telemetry.NewMetrics()
	}
	return a
}

// Run executes cycles until ctx is done. The first cycle starts immediately.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting agent", zap.Duration("interval", a.interval), zap.String("emitter", a.emitter.Name()))
	for {
		a.RunOnce(ctx)

		select {
		case <-ctx.Done():
			a.logger.Info("stopping agent", zap.Int("cycles", a.cycle), zap.Int("tracked", a.tracker.State().Len()))
			return nil
		case <-a.clock.After(a.interval):
		}
	}
}

// RunOnce executes a single cycle and hands the resulting state to the
// emitter.
func (a *Agent) RunOnce(ctx context.Context) tracker.Result {
	start := a.clock.Now()

	snapshot, err := a.source.Snapshot(ctx)
	if err != nil {
		a.metrics.SnapshotErrors.Inc()
		a.logger.Warn("socket snapshot failed, keeping previous state", zap.Int("cycle", a.cycle+1), zap.Error(err))
	}
	res := a.tracker.Step(snapshot, err)
	a.cycle++

	a.metrics.Cycles.Inc()
	a.metrics.CycleDurationSec.Observe(a.clock.Since(start).Seconds())
	a.metrics.SnapshotRecords.Set(float64(res.Observed))
	a.metrics.ServingRecords.Set(float64(res.Serving))
	a.metrics.TrackedConns.Set(float64(res.State.Len()))

	a.logger.Debug("cycle complete",
		zap.Int("cycle", a.cycle),
		zap.Int("observed", res.Observed),
		zap.Int("serving", res.Serving),
		zap.Int("tracked", res.State.Len()),
		zap.Int("added", res.Added),
	)

	a.emit(ctx, res)
	return res
}

func (a *Agent) emit(ctx context.Context, res tracker.Result) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("emitter panicked", zap.String("emitter", a.emitter.Name()), zap.Any("panic", r))
		}
	}()
	a.emitter.Emit(ctx, res.State.Records())
}

// State returns the accumulated state. It must only be called from the
// goroutine running the agent, or after Run has returned.
func (a *Agent) State() tracker.State {
	return a.tracker.State()
}

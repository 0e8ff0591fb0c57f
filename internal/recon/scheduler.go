package recon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/pkg/models"
)

// State is the scheduler's current phase.
type State int32

const (
	StateIdle State = iota
	StatePreparing
	StateScanning
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateScanning:
		return "scanning"
	case StatePublishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Publisher receives each completed pass's snapshot.
type Publisher interface {
	Publish(snap *models.Snapshot)
}

// Notifier is told about every published snapshot. Notifier errors are
// logged and never affect the pass.
type Notifier interface {
	Notify(ctx context.Context, snap *models.Snapshot) error
}

// PassReport describes one completed pass.
type PassReport struct {
	ID            string
	Completed     time.Time
	Prep          time.Duration
	Scan          time.Duration
	Attempted     int
	Hosts         int
	FailedWorkers int
	Err           error
}

// Degraded reports whether any worker failed during the pass.
func (r PassReport) Degraded() bool { return r.FailedWorkers > 0 }

// SchedulerConfig is the static input of every pass.
type SchedulerConfig struct {
	Subnet    Subnet
	Local     models.HostRecord
	Workers   int
	ProbeRate float64
}

// Scheduler runs scan passes back to back and publishes each result.
type Scheduler struct {
	cfg       SchedulerConfig
	prober    Prober
	publisher Publisher
	notifiers []Notifier
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time

	state  atomic.Int32
	passes atomic.Uint64
}

// SchedulerOption configures optional Scheduler behaviour.
type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now for phase timing.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithNotifiers adds notifiers called after each publish.
func WithNotifiers(n ...Notifier) SchedulerOption {
	return func(s *Scheduler) { s.notifiers = append(s.notifiers, n...) }
}

// WithSchedulerMetrics records pass and probe metrics.
func WithSchedulerMetrics(m *Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a scheduler. It does nothing until Run or RunPass.
func NewScheduler(cfg SchedulerConfig, prober Prober, pub Publisher, logger *zap.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		prober:    prober,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current phase. Safe for concurrent use.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Passes returns the number of passes published so far.
func (s *Scheduler) Passes() uint64 { return s.passes.Load() }

func (s *Scheduler) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug("scheduler state", zap.Stringer("from", prev), zap.Stringer("to", st))
	}
}

// Run performs passes with no delay between them until ctx is cancelled.
// Worker failures never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scan scheduler started",
		zap.String("subnet", s.cfg.Subnet.String()),
		zap.Int("workers", s.cfg.Workers),
		zap.String("local_ip", s.cfg.Local.IPv4),
	)
	for {
		if ctx.Err() != nil {
			s.logger.Info("scan scheduler stopped", zap.Uint64("passes", s.Passes()))
			return nil
		}
		s.RunPass(ctx)
	}
}

// RunPass performs one full pass: prepare the address set and workers,
// scan, then aggregate and publish. A pass interrupted by ctx is not
// published.
func (s *Scheduler) RunPass(ctx context.Context) PassReport {
	defer s.setState(StateIdle)
	report := PassReport{ID: uuid.NewString()}
	logger := s.logger.With(zap.String("pass_id", report.ID))

	s.setState(StatePreparing)
	start := s.now()
	src := NewAddressSource(s.cfg.Subnet.Hosts())
	pool := NewPool(s.cfg.Workers, s.prober, logger,
		WithRateLimit(s.cfg.ProbeRate),
		WithMetrics(s.metrics),
	)
	run := pool.Start(ctx, src)
	spawned := s.now()

	s.setState(StateScanning)
	res := run.Wait()
	end := s.now()

	report.Prep = spawned.Sub(start)
	report.Scan = end.Sub(spawned)
	report.Attempted = res.Attempted
	report.FailedWorkers = res.Failed
	report.Err = res.Err

	if err := ctx.Err(); err != nil {
		logger.Info("scan pass interrupted", zap.Int("attempted", res.Attempted))
		if report.Err == nil {
			report.Err = err
		}
		return report
	}

	s.setState(StatePublishing)
	snap := BuildSnapshot(res.Records, s.cfg.Local, models.NewScanTime(end, report.Prep, report.Scan))
	s.publisher.Publish(snap)
	s.passes.Add(1)
	report.Completed = snap.Time.UTC
	report.Hosts = snap.Count

	for _, n := range s.notifiers {
		if err := n.Notify(ctx, snap); err != nil {
			logger.Warn("snapshot notification failed", zap.Error(err))
		}
	}
	s.metrics.observePass(report)

	fields := []zap.Field{
		zap.Int("hosts", report.Hosts),
		zap.Int("attempted", report.Attempted),
		zap.Float64("prep_sec", snap.Time.PrepSec),
		zap.Float64("scan_sec", snap.Time.ScanSec),
		zap.Float64("total_sec", snap.Time.TotalSec),
	}
	if report.Degraded() {
		logger.Warn("scan pass completed with worker failures",
			append(fields, zap.Int("failed_workers", report.FailedWorkers), zap.Error(report.Err))...)
	} else {
		logger.Info("scan pass completed", fields...)
	}
	return report
}

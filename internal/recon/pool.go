package recon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/lanscan/pkg/models"
)

// DefaultWorkers is the number of concurrent probe workers per pass.
const DefaultWorkers = 40

// PassResult is what a pool run produced. Records are unordered and may
// contain duplicates; Err combines every worker failure.
type PassResult struct {
	Records   []models.HostRecord
	Attempted int
	Failed    int
	Err       error
}

// Pool runs a fixed number of probe workers against an AddressSource.
type Pool struct {
	workers int
	prober  Prober
	limiter *rate.Limiter
	metrics *Metrics
	logger  *zap.Logger
}

// PoolOption configures optional Pool behaviour.
type PoolOption func(*Pool)

// WithRateLimit caps probes per second across all workers. A limit of
// zero or less leaves probing unlimited.
func WithRateLimit(perSecond float64) PoolOption {
	return func(p *Pool) {
		if perSecond <= 0 {
			p.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics records probe outcomes and worker failures.
func WithMetrics(m *Metrics) PoolOption {
	return func(p *Pool) { p.metrics = m }
}

// NewPool creates a pool of workers probing with prober. workers below one
// falls back to DefaultWorkers.
func NewPool(workers int, prober Prober, logger *zap.Logger, opts ...PoolOption) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	p := &Pool{
		workers: workers,
		prober:  prober,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the concurrency cap.
func (p *Pool) Workers() int { return p.workers }

// Run drains src and returns once every worker has exited. It is Start
// followed by Wait.
func (p *Pool) Run(ctx context.Context, src *AddressSource) PassResult {
	return p.Start(ctx, src).Wait()
}

// Start spawns the workers and returns without waiting for them. A worker
// exits when the source is exhausted, when ctx is cancelled, or on its
// first probe failure. Records collected by other workers are always kept.
func (p *Pool) Start(ctx context.Context, src *AddressSource) *PassRun {
	n := p.workers
	if l := src.Len(); l < n {
		n = l
	}

	run := &PassRun{pool: p, ctx: ctx, src: src}
	for id := 0; id < n; id++ {
		run.wg.Add(1)
		go func(id int) {
			defer run.wg.Done()
			if err := p.work(ctx, id, src, &run.attempted, run.collect); err != nil {
				p.metrics.observeWorkerFailure()
				p.logger.Error("probe worker failed",
					zap.Int("worker", id),
					zap.Error(err),
				)
				run.fail(err)
			}
		}(id)
	}
	return run
}

// PassRun is a pool run in progress.
type PassRun struct {
	pool *Pool
	ctx  context.Context
	src  *AddressSource
	wg   sync.WaitGroup

	attempted atomic.Int64

	mu      sync.Mutex
	records []models.HostRecord
	errs    error
	failed  int
}

func (r *PassRun) collect(rec models.HostRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *PassRun) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = multierr.Append(r.errs, err)
	r.failed++
}

// Wait blocks until every worker has exited and returns what they found.
func (r *PassRun) Wait() PassResult {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	if remaining := r.src.Remaining(); remaining > 0 && r.ctx.Err() == nil {
		r.pool.logger.Warn("pass ended with unclaimed addresses",
			zap.Int("remaining", remaining),
			zap.Int("failed_workers", r.failed),
		)
	}

	return PassResult{
		Records:   r.records,
		Attempted: int(r.attempted.Load()),
		Failed:    r.failed,
		Err:       r.errs,
	}
}

// work is one worker's loop. A panic inside a probe is converted to an
// error so it ends this worker only.
func (p *Pool) work(ctx context.Context, id int, src *AddressSource, attempted *atomic.Int64, collect func(models.HostRecord)) (err error) {
	var addr string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d panicked probing %s: %v", ErrProbeFailed, id, addr, r)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		var ok bool
		addr, ok = src.Next()
		if !ok {
			return nil
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		attempted.Add(1)
		rec, err := Probe(ctx, p.prober, addr)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.metrics.observeProbe(OutcomeError)
			return err
		}
		if rec == nil {
			p.metrics.observeProbe(OutcomeMiss)
			continue
		}

		p.metrics.observeProbe(OutcomeFound)
		p.logger.Debug("host found",
			zap.String("ip", rec.IPv4),
			zap.String("mac", rec.MAC),
		)
		collect(*rec)
	}
}

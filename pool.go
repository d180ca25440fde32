package wavez

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/wavez/internal/opt"
	"github.com/zoobzio/wavez/internal/ring"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for JobPool observability.
const (
	PoolJobsScheduledTotal = metricz.Key("pool.jobs.scheduled.total")
	PoolJobsDoneTotal      = metricz.Key("pool.jobs.done.total")
	PoolBackpressureTotal  = metricz.Key("pool.backpressure.total")
	PoolPendingGauge       = metricz.Key("pool.pending.current")
)

// Span names for JobPool.
const (
	PoolScheduleSpan = tracez.Key("pool.schedule")
	PoolJobSpan      = tracez.Key("pool.job")
)

// Span tags for JobPool.
const (
	PoolTagWorker  = tracez.Tag("pool.worker")
	PoolTagNodeID  = tracez.Tag("pool.node_id")
	PoolTagBlocked = tracez.Tag("pool.blocked")
)

// Hook event keys for JobPool.
const (
	PoolEventScheduled    = hookz.Key("pool.scheduled")
	PoolEventDone         = hookz.Key("pool.done")
	PoolEventBackpressure = hookz.Key("pool.backpressure")
)

// JobEvent is emitted via hooks at the three lifecycle edges a JobPool
// exposes: a job accepted, a job's result collected, and a schedule attempt
// rejected for backpressure.
type JobEvent struct {
	NodeID    Identifier
	JobID     int
	Worker    int
	Scheduled time.Time
	Started   time.Time
	Finished  time.Time
	Pending   int
}

// ErrPoolClosed is returned by ScheduleBlocking and ScheduleNonBlocking once
// the pool has been closed. The take calls do not return it: they report a
// closed, drained pool as an empty Optional.
var ErrPoolClosed = &poolError{"wavez: pool is closed"}

// ErrPoolFull is returned by ScheduleNonBlocking when pendingTasks is at
// capacity.
var ErrPoolFull = &poolError{"wavez: pool is at capacity"}

type poolError struct{ msg string }

func (e *poolError) Error() string { return e.msg }

// JobPool is a bounded worker pool: a fixed number of worker goroutines
// pull Jobs off a capacity-Q scheduled ring, run each Node, and push the
// completed Job onto a capacity-Q done ring for the caller to collect.
//
// Backpressure is gated on pendingTasks — the count of jobs that are
// scheduled, in flight, or finished but not yet synced via TryTakeDone/
// TakeDoneBlocking — rather than on the scheduled ring's own occupancy.
// Both rings share the same capacity Q, and pendingTasks never exceeds Q,
// so a worker's push onto the done ring cannot fail by construction: the
// number of jobs occupying scheduled+running+done can never exceed Q.
// JobPool is safe for concurrent use by multiple scheduling and
// taking goroutines.
type JobPool struct {
	mu        sync.Mutex
	notEmpty  *sync.Cond // scheduled ring has an item, or stopped
	notFull   *sync.Cond // pendingTasks has room, or stopped
	doneReady *sync.Cond // done ring has an item, or running+scheduled went idle, or stopped

	scheduled *ring.Ring[Job]
	done      *ring.Ring[Job]

	workers  int
	capacity int // Q: bound on pendingTasks
	pending  int // pendingTasks: scheduled + running + done (unsynced)
	running  int // jobs popped from scheduled, not yet pushed to done
	stopped  bool

	closeOnce sync.Once
	workerWG  sync.WaitGroup

	clock   clockz.Clock
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[JobEvent]
}

// NewJobPool creates a JobPool with the given number of workers and a
// scheduled/done ring capacity of queueSize each, then starts the worker
// goroutines. pendingTasks (scheduled+running+done-unsynced) is bounded by
// queueSize as well.
func NewJobPool(ctx context.Context, workers, queueSize int) *JobPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	registry := metricz.New()
	registry.Counter(PoolJobsScheduledTotal)
	registry.Counter(PoolJobsDoneTotal)
	registry.Counter(PoolBackpressureTotal)
	registry.Gauge(PoolPendingGauge)

	p := &JobPool{
		scheduled: ring.New[Job](queueSize),
		done:      ring.New[Job](queueSize),
		workers:   workers,
		capacity:  queueSize,
		clock:     clockz.RealClock,
		metrics:   registry,
		tracer:    tracez.New(),
		hooks:     hookz.New[JobEvent](),
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	p.doneReady = sync.NewCond(&p.mu)

	p.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		go p.runWorker(ctx, i)
	}
	return p
}

// WithClock sets a custom clock for testing.
func (p *JobPool) WithClock(clock clockz.Clock) *JobPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clock = clock
	return p
}

// Metrics returns the metrics registry for this pool.
func (p *JobPool) Metrics() *metricz.Registry { return p.metrics }

// Tracer returns the tracer for this pool.
func (p *JobPool) Tracer() *tracez.Tracer { return p.tracer }

// OnScheduled registers a listener fired every time a job is accepted.
func (p *JobPool) OnScheduled(fn func(context.Context, JobEvent) error) (func(), error) {
	return p.hooks.Hook(PoolEventScheduled, fn)
}

// OnDone registers a listener fired every time a job's result is collected.
func (p *JobPool) OnDone(fn func(context.Context, JobEvent) error) (func(), error) {
	return p.hooks.Hook(PoolEventDone, fn)
}

// OnBackpressure registers a listener fired every time a schedule attempt
// is rejected because pendingTasks is at capacity.
func (p *JobPool) OnBackpressure(fn func(context.Context, JobEvent) error) (func(), error) {
	return p.hooks.Hook(PoolEventBackpressure, fn)
}

func (p *JobPool) getClock() clockz.Clock {
	if p.clock == nil {
		return clockz.RealClock
	}
	return p.clock
}

// ScheduleBlocking enqueues n under jobID, blocking while pendingTasks is at
// capacity. It returns ErrPoolClosed if the pool has been closed while
// waiting.
func (p *JobPool) ScheduleBlocking(ctx context.Context, n Node, jobID int) error {
	_, span := p.tracer.StartSpan(ctx, PoolScheduleSpan)
	defer span.Finish()
	span.SetTag(PoolTagNodeID, formatID(n.ID()))
	span.SetTag(PoolTagBlocked, "true")

	p.mu.Lock()
	for p.pending >= p.capacity && !p.stopped {
		p.notFull.Wait()
	}
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.enqueueLocked(n, jobID)
	p.mu.Unlock()
	return nil
}

// ScheduleNonBlocking enqueues n under jobID if pendingTasks has room,
// returning ErrPoolFull immediately otherwise (after recording
// backpressure).
func (p *JobPool) ScheduleNonBlocking(ctx context.Context, n Node, jobID int) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if p.pending >= p.capacity {
		pending := p.pending
		p.mu.Unlock()

		p.metrics.Counter(PoolBackpressureTotal).Inc()
		if p.hooks.ListenerCount(PoolEventBackpressure) > 0 {
			_ = p.hooks.Emit(ctx, PoolEventBackpressure, JobEvent{ //nolint:errcheck
				NodeID:  n.ID(),
				JobID:   jobID,
				Pending: pending,
			})
		}
		return ErrPoolFull
	}
	p.enqueueLocked(n, jobID)
	p.mu.Unlock()
	return nil
}

// enqueueLocked must be called with p.mu held.
func (p *JobPool) enqueueLocked(n Node, jobID int) {
	job := Job{Node: n, JobID: jobID, Scheduled: p.getClock().Now()}
	p.scheduled.Push(job)
	p.pending++
	p.metrics.Counter(PoolJobsScheduledTotal).Inc()
	p.metrics.Gauge(PoolPendingGauge).Set(float64(p.pending))
	p.notEmpty.Signal()

	if p.hooks.ListenerCount(PoolEventScheduled) > 0 {
		_ = p.hooks.Emit(context.Background(), PoolEventScheduled, JobEvent{ //nolint:errcheck
			NodeID:    n.ID(),
			JobID:     jobID,
			Scheduled: job.Scheduled,
			Pending:   p.pending,
		})
	}
}

// runWorker is the body of each worker goroutine: take a scheduled job,
// run its node, push the finished job onto the done ring. A node callable
// that fails panics (see node.go); that panic is deliberately not
// recovered here, so it crashes the process per the engine's failure
// model.
func (p *JobPool) runWorker(ctx context.Context, worker int) {
	defer p.workerWG.Done()
	for {
		p.mu.Lock()
		for p.scheduled.Empty() && !p.stopped {
			p.notEmpty.Wait()
		}
		if p.scheduled.Empty() && p.stopped {
			p.mu.Unlock()
			return
		}
		job, _ := p.scheduled.Pop().Get()
		p.running++
		p.mu.Unlock()

		jobCtx, span := p.tracer.StartSpan(ctx, PoolJobSpan)
		span.SetTag(PoolTagNodeID, formatID(job.Node.ID()))
		span.SetTag(PoolTagWorker, formatID(uint64(worker)))

		job.Started = p.getClock().Now()
		job.Worker = worker
		job.Node.Run(jobCtx)
		job.Finished = p.getClock().Now()
		job.Node.SetDone()

		span.Finish()

		p.mu.Lock()
		p.running--
		// running+scheduled may have just gone idle; wake WaitIdle waiters
		// even though the job has not reached done yet.
		p.doneReady.Broadcast()

		// By the capacity invariant (pendingTasks <= capacity == done's own
		// capacity) this never actually blocks; the wait guards the
		// invariant rather than relying on it blindly.
		for p.done.Full() && !p.stopped {
			p.doneReady.Wait()
		}
		if p.stopped && p.done.Full() {
			// Shutting down with no room left to record this completion:
			// drop it rather than push past capacity, matching the
			// "queued/undeliverable work is discarded on shutdown" part of
			// the pool's failure model.
			p.pending--
			p.metrics.Gauge(PoolPendingGauge).Set(float64(p.pending))
			p.notFull.Signal()
			p.mu.Unlock()
			continue
		}

		p.done.Push(job)
		p.metrics.Counter(PoolJobsDoneTotal).Inc()
		pending := p.pending
		p.doneReady.Signal()
		p.mu.Unlock()

		if p.hooks.ListenerCount(PoolEventDone) > 0 {
			_ = p.hooks.Emit(ctx, PoolEventDone, JobEvent{ //nolint:errcheck
				NodeID:    job.Node.ID(),
				JobID:     job.JobID,
				Worker:    worker,
				Scheduled: job.Scheduled,
				Started:   job.Started,
				Finished:  job.Finished,
				Pending:   pending,
			})
		}
	}
}

// TryTakeDone pops a finished Job without blocking, returning an empty
// Optional if none is ready. Popping decrements pendingTasks and wakes one
// blocked scheduler.
func (p *JobPool) TryTakeDone() opt.Optional[Job] {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := p.done.Pop()
	job, ok := result.Get()
	if !ok {
		return opt.None[Job]()
	}
	job.Synced = p.getClock().Now()
	p.pending--
	p.metrics.Gauge(PoolPendingGauge).Set(float64(p.pending))
	p.notFull.Signal()
	return opt.Some(job)
}

// TakeDoneBlocking pops a finished Job, blocking until one is ready, the
// pool is closed with nothing left to drain, or ctx is canceled. The
// returned Optional is empty exactly when the pool was closed with no
// further completions to drain; ctx cancellation is reported as a distinct
// error, since (unlike the pool's own stop signal) it carries no meaning
// the caller could confuse with "nothing left to take." Popping decrements
// pendingTasks and wakes one blocked scheduler.
func (p *JobPool) TakeDoneBlocking(ctx context.Context) (opt.Optional[Job], error) {
	done := make(chan struct{})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.doneReady.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()
		defer close(done)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.done.Empty() {
		if ctx.Err() != nil {
			return opt.None[Job](), ctx.Err()
		}
		if p.stopped && p.pending == 0 {
			return opt.None[Job](), nil
		}
		p.doneReady.Wait()
	}
	job, _ := p.done.Pop().Get()
	job.Synced = p.getClock().Now()
	p.pending--
	p.metrics.Gauge(PoolPendingGauge).Set(float64(p.pending))
	p.notFull.Signal()
	return opt.Some(job), nil
}

// WaitIdle blocks until no jobs remain scheduled or in flight (running == 0
// && scheduled.Empty()). Unlike Shutdown, it does not require the done
// ring to be drained first — a wave runner may still be collecting
// completions.
func (p *JobPool) WaitIdle(ctx context.Context) error {
	done := make(chan struct{})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.doneReady.Broadcast()
				p.mu.Unlock()
			case <-done:
			}
		}()
		defer close(done)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.running > 0 || !p.scheduled.Empty() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.doneReady.Wait()
	}
	return nil
}

// Shutdown waits for in-flight work to drain and then closes the pool.
func (p *JobPool) Shutdown(ctx context.Context) error {
	if err := p.WaitIdle(ctx); err != nil {
		return err
	}
	return p.Close()
}

// Close stops accepting new work, wakes every waiting goroutine, and waits
// for worker goroutines to exit. Close is idempotent.
func (p *JobPool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.notEmpty.Broadcast()
		p.notFull.Broadcast()
		p.doneReady.Broadcast()
		p.mu.Unlock()
		p.workerWG.Wait()
	})
	return nil
}

func formatID(id uint64) string {
	return fmt.Sprintf("%d", id)
}

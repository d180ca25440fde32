package wavez

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for ParallelRunner observability.
const (
	ParallelWavesTotal = metricz.Key("parallel.waves.total")
	ParallelNodesTotal = metricz.Key("parallel.nodes.total")
	ParallelWaveGauge  = metricz.Key("parallel.wave.current")
)

// Span names for ParallelRunner.
const (
	ParallelWaveSpan = tracez.Key("parallel.wave")
)

// Span tags for ParallelRunner.
const (
	ParallelTagWave = tracez.Tag("parallel.wave")
)

// Hook event keys for ParallelRunner.
const (
	ParallelEventWaveComplete = hookz.Key("parallel.wave_complete")
)

// ParallelRunner executes a NodeList wave-by-wave by dispatching every
// ready node to a JobPool and draining completions as they arrive,
// repeating the dispatch+drain cycle until the whole wave is done. It owns
// no worker goroutines itself — all concurrency comes from the JobPool it
// was constructed with.
//
// Like SerialRunner, it resets every node at the start of every wave.
type ParallelRunner struct {
	pool       *JobPool
	profiler   Profiler
	waveNumber int
	clock      clockz.Clock
	metrics    *metricz.Registry
	tracer     *tracez.Tracer
	hooks      *hookz.Hooks[WaveEvent]
}

// NewParallelRunner creates a ParallelRunner dispatching onto pool. A nil
// profiler is treated as NullProfiler.
func NewParallelRunner(pool *JobPool, profiler Profiler) *ParallelRunner {
	if profiler == nil {
		profiler = NullProfiler{}
	}
	registry := metricz.New()
	registry.Counter(ParallelWavesTotal)
	registry.Counter(ParallelNodesTotal)
	registry.Gauge(ParallelWaveGauge)

	return &ParallelRunner{
		pool:     pool,
		profiler: profiler,
		clock:    clockz.RealClock,
		metrics:  registry,
		tracer:   tracez.New(),
		hooks:    hookz.New[WaveEvent](),
	}
}

// WithClock sets a custom clock for testing.
func (r *ParallelRunner) WithClock(clock clockz.Clock) *ParallelRunner {
	r.clock = clock
	return r
}

// Metrics returns the metrics registry for this runner.
func (r *ParallelRunner) Metrics() *metricz.Registry { return r.metrics }

// OnWaveComplete registers a listener fired after each wave.
func (r *ParallelRunner) OnWaveComplete(fn func(context.Context, WaveEvent) error) (func(), error) {
	return r.hooks.Hook(ParallelEventWaveComplete, fn)
}

func (r *ParallelRunner) getClock() clockz.Clock {
	if r.clock == nil {
		return clockz.RealClock
	}
	return r.clock
}

// RunOnce dispatches every node in nodes to the pool as it becomes ready
// and drains completions until every node is done or stop is observed
// true. Nodes the pool briefly refuses (ErrPoolFull) are retried on the
// next dispatch pass rather than dropped — the reference implementation
// ignored this failure mode.
func (r *ParallelRunner) RunOnce(ctx context.Context, nodes *NodeList, stop *atomic.Bool) {
	clock := r.getClock()
	waveStart := clock.Now()

	ctx, waveSpan := r.tracer.StartSpan(ctx, ParallelWaveSpan)
	waveSpan.SetTag(ParallelTagWave, formatID(uint64(r.waveNumber)))
	defer waveSpan.Finish()

	all := nodes.All()
	for _, n := range all {
		n.Reset()
	}

	done := make([]bool, len(all))
	scheduled := make([]bool, len(all))
	numDone := 0

	for numDone < len(all) {
		if stop != nil && stop.Load() {
			break
		}

		for i, n := range all {
			if stop != nil && stop.Load() {
				break
			}
			if done[i] || scheduled[i] || !n.IsReady() {
				continue
			}
			if err := r.pool.ScheduleNonBlocking(ctx, n, i); err == nil {
				scheduled[i] = true
			}
		}

		if stop != nil && stop.Load() {
			break
		}

		for {
			job, ok := r.pool.TryTakeDone().Get()
			if !ok {
				break
			}
			idx := job.JobID
			if idx < 0 || idx >= len(all) {
				continue
			}
			done[idx] = true
			numDone++
			r.metrics.Counter(ParallelNodesTotal).Inc()
			r.profiler.LogJob(job)
		}
	}

	duration := clock.Now().Sub(waveStart)
	r.profiler.LogWave(r.waveNumber, duration)
	r.metrics.Counter(ParallelWavesTotal).Inc()
	r.metrics.Gauge(ParallelWaveGauge).Set(float64(r.waveNumber))

	if r.hooks.ListenerCount(ParallelEventWaveComplete) > 0 {
		_ = r.hooks.Emit(ctx, ParallelEventWaveComplete, WaveEvent{ //nolint:errcheck
			WaveNumber: r.waveNumber,
			NodesRun:   numDone,
			Duration:   duration,
		})
	}

	r.waveNumber++
}

// RunN runs n waves back to back, stopping early if stop becomes true
// between waves. The total wall-clock time across all n waves is reported
// via Profiler.LogRun.
func (r *ParallelRunner) RunN(ctx context.Context, nodes *NodeList, stop *atomic.Bool, n int) {
	clock := r.getClock()
	runStart := clock.Now()

	for i := 0; i < n; i++ {
		if stop != nil && stop.Load() {
			break
		}
		r.RunOnce(ctx, nodes, stop)
	}

	r.profiler.LogRun(clock.Now().Sub(runStart))
}

// RunLoop runs waves until stop is observed true. stop must be non-nil.
// The total wall-clock time of the loop is reported via Profiler.LogRun.
func (r *ParallelRunner) RunLoop(ctx context.Context, nodes *NodeList, stop *atomic.Bool) {
	if stop == nil {
		panic("wavez: RunLoop requires a non-nil stop flag")
	}
	clock := r.getClock()
	runStart := clock.Now()

	for !stop.Load() {
		r.RunOnce(ctx, nodes, stop)
	}

	r.profiler.LogRun(clock.Now().Sub(runStart))
}

package wavez

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys for SerialRunner observability.
const (
	SerialWavesTotal  = metricz.Key("serial.waves.total")
	SerialNodesTotal  = metricz.Key("serial.nodes.total")
	SerialWaveGauge   = metricz.Key("serial.wave.current")
)

// Span names for SerialRunner.
const (
	SerialWaveSpan = tracez.Key("serial.wave")
	SerialNodeSpan = tracez.Key("serial.node")
)

// Span tags for SerialRunner.
const (
	SerialTagNodeID = tracez.Tag("serial.node_id")
	SerialTagWave   = tracez.Tag("serial.wave")
)

// Hook event keys for SerialRunner.
const (
	SerialEventWaveComplete = hookz.Key("serial.wave_complete")
)

// WaveEvent is emitted when a runner finishes a wave.
type WaveEvent struct {
	WaveNumber int
	NodesRun   int
	Duration   time.Duration
}

// SerialRunner executes every node in a NodeList on the calling goroutine,
// in list order, one wave at a time. It never resorts the list itself —
// callers are expected to have already called NodeList.Sort with an
// ordering (typically SortDepthOrPriority) that respects dependency order.
//
// Every wave starts by resetting every node (clearing ready/done), so
// SerialRunner's behavior across repeated waves matches ParallelRunner's —
// unifying a divergence the reference implementation left unresolved.
type SerialRunner struct {
	profiler   Profiler
	waveNumber int
	clock      clockz.Clock
	metrics    *metricz.Registry
	tracer     *tracez.Tracer
	hooks      *hookz.Hooks[WaveEvent]
}

// NewSerialRunner creates a SerialRunner. A nil profiler is treated as
// NullProfiler.
func NewSerialRunner(profiler Profiler) *SerialRunner {
	if profiler == nil {
		profiler = NullProfiler{}
	}
	registry := metricz.New()
	registry.Counter(SerialWavesTotal)
	registry.Counter(SerialNodesTotal)
	registry.Gauge(SerialWaveGauge)

	return &SerialRunner{
		profiler: profiler,
		clock:    clockz.RealClock,
		metrics:  registry,
		tracer:   tracez.New(),
		hooks:    hookz.New[WaveEvent](),
	}
}

// WithClock sets a custom clock for testing.
func (r *SerialRunner) WithClock(clock clockz.Clock) *SerialRunner {
	r.clock = clock
	return r
}

// Metrics returns the metrics registry for this runner.
func (r *SerialRunner) Metrics() *metricz.Registry { return r.metrics }

// OnWaveComplete registers a listener fired after each wave.
func (r *SerialRunner) OnWaveComplete(fn func(context.Context, WaveEvent) error) (func(), error) {
	return r.hooks.Hook(SerialEventWaveComplete, fn)
}

func (r *SerialRunner) getClock() clockz.Clock {
	if r.clock == nil {
		return clockz.RealClock
	}
	return r.clock
}

// RunOnce runs every node in nodes exactly once, in list order, stopping
// early if stop is observed true between nodes.
func (r *SerialRunner) RunOnce(ctx context.Context, nodes *NodeList, stop *atomic.Bool) {
	clock := r.getClock()
	waveStart := clock.Now()

	ctx, waveSpan := r.tracer.StartSpan(ctx, SerialWaveSpan)
	waveSpan.SetTag(SerialTagWave, formatID(uint64(r.waveNumber)))
	defer waveSpan.Finish()

	for _, n := range nodes.All() {
		n.Reset()
	}

	ran := 0
	for i, n := range nodes.All() {
		if stop != nil && stop.Load() {
			break
		}

		_, nodeSpan := r.tracer.StartSpan(ctx, SerialNodeSpan)
		nodeSpan.SetTag(SerialTagNodeID, formatID(n.ID()))

		scheduled := clock.Now()
		n.Run(ctx)
		finished := clock.Now()
		n.SetDone()
		ran++

		nodeSpan.Finish()
		r.metrics.Counter(SerialNodesTotal).Inc()

		r.profiler.LogJob(Job{
			Node:      n,
			JobID:     i,
			Scheduled: scheduled,
			Started:   scheduled,
			Finished:  finished,
			Synced:    finished,
			Worker:    0,
		})
	}

	duration := clock.Now().Sub(waveStart)
	r.profiler.LogWave(r.waveNumber, duration)
	r.metrics.Counter(SerialWavesTotal).Inc()
	r.metrics.Gauge(SerialWaveGauge).Set(float64(r.waveNumber))

	if r.hooks.ListenerCount(SerialEventWaveComplete) > 0 {
		_ = r.hooks.Emit(ctx, SerialEventWaveComplete, WaveEvent{ //nolint:errcheck
			WaveNumber: r.waveNumber,
			NodesRun:   ran,
			Duration:   duration,
		})
	}

	r.waveNumber++
}

// RunN runs n waves back to back, stopping early if stop becomes true
// between waves. The total wall-clock time across all n waves is reported
// via Profiler.LogRun.
func (r *SerialRunner) RunN(ctx context.Context, nodes *NodeList, stop *atomic.Bool, n int) {
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

// RunLoop runs waves until stop is observed true. stop must be non-nil —
// an unbounded loop needs an externally owned flag to ever terminate. The
// total wall-clock time of the loop is reported via Profiler.LogRun.
func (r *SerialRunner) RunLoop(ctx context.Context, nodes *NodeList, stop *atomic.Bool) {
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

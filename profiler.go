package wavez

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/zoobzio/wavez/internal/ring"

	"github.com/zoobzio/clockz"
)

// Profiler is the sink the wave runners report timing to. Implementations
// must be safe for concurrent use. Both runners call Log* from the
// goroutine running RunOnce/RunN/RunLoop; ParallelRunner logs each job as
// it drains the job from the pool.
type Profiler interface {
	// LogJob records one job's lifecycle: time spent queued, time spent
	// running, and time spent waiting in the done ring before collection.
	LogJob(job Job)
	// LogWave records the wall-clock duration of one wave.
	LogWave(waveNumber int, duration time.Duration)
	// LogRun records the wall-clock duration of an entire RunN/RunLoop
	// call, across all its waves.
	LogRun(duration time.Duration)
	// LogCustom records an arbitrary caller-identified duration, for
	// instrumenting code outside the job/wave/run lifecycle.
	LogCustom(identifier uint64, duration time.Duration)
	// TurnOn resumes recording.
	TurnOn()
	// TurnOff suspends recording; Log* calls become no-ops until TurnOn.
	TurnOff()
}

// NullProfiler discards everything. Use it when profiling overhead is not
// wanted; runners treat a nil Profiler the same way.
type NullProfiler struct{}

func (NullProfiler) LogJob(Job)                      {}
func (NullProfiler) LogWave(int, time.Duration)       {}
func (NullProfiler) LogRun(time.Duration)             {}
func (NullProfiler) LogCustom(uint64, time.Duration)  {}
func (NullProfiler) TurnOn()                          {}
func (NullProfiler) TurnOff()                         {}

// TimeCustom starts a stopwatch for a custom-identified span and returns a
// function that stops it and logs the elapsed duration via LogCustom. It
// is additive instrumentation sugar over LogCustom, for timing arbitrary
// caller code without hand-computing a duration at each call site.
func TimeCustom(p Profiler, identifier uint64, clock clockz.Clock) func() {
	start := clock.Now()
	return func() {
		p.LogCustom(identifier, clock.Now().Sub(start))
	}
}

func formatJobLine(job Job) string {
	scheduledTime := job.Started.Sub(job.Scheduled)
	runningTime := job.Finished.Sub(job.Started)
	waitingTime := job.Synced.Sub(job.Finished)
	return fmt.Sprintf("J, %d, %d, %d, %d, %d, %d\n",
		job.Node.ID(), job.JobID, job.Worker,
		scheduledTime.Microseconds(), runningTime.Microseconds(), waitingTime.Microseconds())
}

func formatWaveLine(waveNumber int, d time.Duration) string {
	return fmt.Sprintf("W, %d, %d\n", waveNumber, d.Microseconds())
}

func formatRunLine(d time.Duration) string {
	return fmt.Sprintf("R, %d\n", d.Microseconds())
}

func formatCustomLine(identifier uint64, d time.Duration) string {
	return fmt.Sprintf("C, %d, %d\n", identifier, d.Microseconds())
}

// SingleThreadedProfiler writes job/wave/run/custom lines directly to w on
// the calling goroutine, flushing every flushEvery jobs. Use it from a
// SerialRunner, or a ParallelRunner whose caller already serializes all
// Log* calls.
type SingleThreadedProfiler struct {
	mu         sync.Mutex
	w          *bufio.Writer
	on         bool
	flushEvery int
	counter    int
}

// NewSingleThreadedProfiler wraps w in a buffered writer, flushing every
// flushEvery job lines (flushEvery <= 0 means flush on every job).
func NewSingleThreadedProfiler(w io.Writer, flushEvery int, on bool) *SingleThreadedProfiler {
	return &SingleThreadedProfiler{w: bufio.NewWriter(w), flushEvery: flushEvery, on: on}
}

func (p *SingleThreadedProfiler) LogJob(job Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.w, formatJobLine(job)) //nolint:errcheck

	p.counter++
	if p.flushEvery <= 0 || p.counter >= p.flushEvery {
		p.counter = 0
		p.w.Flush() //nolint:errcheck
	}
}

func (p *SingleThreadedProfiler) LogWave(waveNumber int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.w, formatWaveLine(waveNumber, d)) //nolint:errcheck
	p.w.Flush()                                               //nolint:errcheck
}

func (p *SingleThreadedProfiler) LogRun(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.w, formatRunLine(d)) //nolint:errcheck
	p.w.Flush()                                  //nolint:errcheck
}

func (p *SingleThreadedProfiler) LogCustom(identifier uint64, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.w, formatCustomLine(identifier, d)) //nolint:errcheck
	p.w.Flush()                                                 //nolint:errcheck
}

func (p *SingleThreadedProfiler) TurnOn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = true
}

func (p *SingleThreadedProfiler) TurnOff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = false
}

// MultiThreadedProfiler decouples job logging from the caller: LogJob
// pushes onto a bounded ring drained by a dedicated logging goroutine, so
// worker goroutines never block on file I/O. LogWave/LogRun/LogCustom
// write directly under a mutex, matching the original design's choice to
// only buffer the high-frequency per-job line.
type MultiThreadedProfiler struct {
	mu      sync.Mutex
	notEmpty *sync.Cond // queue has an item, or stopped
	notFull  *sync.Cond // queue has room, or stopped
	out     *bufio.Writer
	on      bool

	queue   *ring.Ring[Job]
	stopped bool
	done    chan struct{}
}

// NewMultiThreadedProfiler starts a background goroutine draining job logs
// off a ring of the given capacity.
func NewMultiThreadedProfiler(w io.Writer, queueSize int, on bool) *MultiThreadedProfiler {
	p := &MultiThreadedProfiler{
		out:   bufio.NewWriter(w),
		on:    on,
		queue: ring.New[Job](queueSize),
		done:  make(chan struct{}),
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	go p.drain()
	return p
}

func (p *MultiThreadedProfiler) drain() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for p.queue.Empty() && !p.stopped {
			p.notEmpty.Wait()
		}
		if p.queue.Empty() && p.stopped {
			p.mu.Unlock()
			return
		}
		var lines []string
		for {
			job, ok := p.queue.Pop().Get()
			if !ok {
				break
			}
			lines = append(lines, formatJobLine(job))
		}
		p.mu.Unlock()
		p.notFull.Broadcast()

		for _, line := range lines {
			_, _ = io.WriteString(p.out, line) //nolint:errcheck
		}
		p.out.Flush() //nolint:errcheck
	}
}

// LogJob records job's lifecycle by pushing it onto the bounded queue for
// the draining goroutine to format and write. If the queue is full it
// blocks (honoring Shutdown) rather than dropping the line, so every
// synced job produces exactly one J line. Disabling via TurnOff still
// drops incoming events without blocking — a deliberately distinct,
// explicitly sanctioned no-op path.
func (p *MultiThreadedProfiler) LogJob(job Job) {
	p.mu.Lock()
	if !p.on {
		p.mu.Unlock()
		return
	}
	for p.queue.Full() && !p.stopped {
		p.notFull.Wait()
	}
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.queue.Push(job)
	p.mu.Unlock()
	p.notEmpty.Signal()
}

func (p *MultiThreadedProfiler) LogWave(waveNumber int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.out, formatWaveLine(waveNumber, d)) //nolint:errcheck
	p.out.Flush()                                               //nolint:errcheck
}

func (p *MultiThreadedProfiler) LogRun(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.out, formatRunLine(d)) //nolint:errcheck
	p.out.Flush()                                  //nolint:errcheck
}

func (p *MultiThreadedProfiler) LogCustom(identifier uint64, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.on {
		return
	}
	_, _ = io.WriteString(p.out, formatCustomLine(identifier, d)) //nolint:errcheck
	p.out.Flush()                                                 //nolint:errcheck
}

func (p *MultiThreadedProfiler) TurnOn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = true
}

func (p *MultiThreadedProfiler) TurnOff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = false
}

// Shutdown stops the draining goroutine once the queue is empty and waits
// for it to exit.
func (p *MultiThreadedProfiler) Shutdown() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.notEmpty.Broadcast()
	p.notFull.Broadcast()
	<-p.done
}

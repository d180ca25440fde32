// Package testing provides test utilities for wavez-based graphs: a
// configurable mock callable for building deterministic Node0 fixtures, a
// chaos callable for exercising the engine's panic-on-failure path, and a
// handful of assertion and timing helpers used across the package's own
// test suite.
//
// Example usage:
//
//	func TestMyGraph(t *testing.T) {
//		mock := wtesting.NewMockCallable[int](t, "mock-root")
//		mock.WithReturn(42, nil)
//
//		root := wavez.NewNode0(1, mock.Fn())
//		list := wavez.NewNodeList(1)
//		list.Add(root)
//		list.Sort(wavez.SortDepth, nil)
//
//		wavez.NewSerialRunner(nil).RunOnce(context.Background(), list, nil)
//		wtesting.AssertCallCount(t, mock, 1)
//	}
package testing

import (
	"context"
	"crypto/rand"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MockCall records a single invocation of a MockCallable.
type MockCall struct {
	Timestamp time.Time
	Context   context.Context //nolint:containedctx // recorded for later inspection, not used to derive cancellation
}

// MockCallable is a configurable stand-in for a leaf node's callable,
// wired through NewNode0 via Fn. It tracks invocation count and
// history and can be configured to return a fixed value, delay, or panic.
type MockCallable[O any] struct {
	t           *testing.T
	name        string
	callCount   int64
	returnVal   O
	returnErr   error
	delay       time.Duration
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall
	maxHistory  int
}

// NewMockCallable creates a mock callable for testing. The returned value
// tracks every call and returns whatever WithReturn/WithDelay/WithPanic
// last configured.
func NewMockCallable[O any](t *testing.T, name string) *MockCallable[O] {
	return &MockCallable[O]{
		t:          t,
		name:       name,
		maxHistory: 100,
	}
}

// WithReturn configures the value and error returned on every subsequent call.
func (m *MockCallable[O]) WithReturn(val O, err error) *MockCallable[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.returnErr = err
	return m
}

// WithDelay configures an artificial delay before the callable returns,
// honoring context cancellation.
func (m *MockCallable[O]) WithDelay(d time.Duration) *MockCallable[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithPanic configures the callable to panic with msg instead of returning.
// Useful for exercising recovery around RunOnce/RunN/RunLoop.
func (m *MockCallable[O]) WithPanic(msg string) *MockCallable[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize bounds how many calls are retained by CallHistory. Zero
// disables history tracking entirely.
func (m *MockCallable[O]) WithHistorySize(size int) *MockCallable[O] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Fn returns the closure to hand to NewNode0. It takes no inputs, so it
// does not fit the callable parameter of NewNode1..NewNode4.
func (m *MockCallable[O]) Fn() func(context.Context) (O, error) {
	return func(ctx context.Context) (O, error) {
		atomic.AddInt64(&m.callCount, 1)

		m.mu.Lock()
		if m.maxHistory > 0 {
			m.callHistory = append(m.callHistory, MockCall{Timestamp: time.Now(), Context: ctx})
			if len(m.callHistory) > m.maxHistory {
				m.callHistory = m.callHistory[1:]
			}
		}
		delay := m.delay
		val := m.returnVal
		err := m.returnErr
		panicMsg := m.panicMsg
		m.mu.Unlock()

		if panicMsg != "" {
			panic(panicMsg)
		}

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				var zero O
				return zero, ctx.Err()
			}
		}

		return val, err
	}
}

// CallCount returns how many times Fn's closure has been invoked.
func (m *MockCallable[O]) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// CallHistory returns a copy of the recorded calls.
func (m *MockCallable[O]) CallHistory() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]MockCall, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears call tracking back to its initial state.
func (m *MockCallable[O]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.callHistory = nil
}

// AssertCallCount verifies a mock callable was invoked exactly n times.
func AssertCallCount[O any](t *testing.T, mock *MockCallable[O], expected int) {
	t.Helper()
	if actual := mock.CallCount(); actual != expected {
		t.Errorf("expected %s to be called %d times, was called %d times", mock.name, expected, actual)
	}
}

// AssertNotCalled verifies a mock callable was never invoked.
func AssertNotCalled[O any](t *testing.T, mock *MockCallable[O]) {
	t.Helper()
	AssertCallCount(t, mock, 0)
}

// ChaosConfig configures a ChaosCallable's failure injection.
type ChaosConfig struct {
	FailureRate float64       // probability of returning an error instead of the wrapped result
	LatencyMin  time.Duration // minimum additional latency to inject
	LatencyMax  time.Duration // maximum additional latency to inject
	PanicRate   float64       // probability of panicking instead of returning
	Seed        int64         // random seed for reproducible chaos (0 picks one via crypto/rand)
}

// ChaosCallable wraps another callable and randomly injects latency,
// errors, or panics, grounded on the configured rates. A returned error
// or panic here exercises the engine's fatal-failure path (Run panics
// with *NodeCallableError on any non-nil error), so this is the fixture
// for testing recover()/IsFatal around a runner.
type ChaosCallable[O any] struct {
	name        string
	wrapped     func(context.Context) (O, error)
	failureRate float64
	latencyMin  time.Duration
	latencyMax  time.Duration
	panicRate   float64
	rng         *mathrand.Rand
	mu          sync.Mutex
	totalCalls  int64
	failedCalls int64
	panicCalls  int64
}

// NewChaosCallable wraps fn with the chaos behavior described by cfg.
func NewChaosCallable[O any](name string, fn func(context.Context) (O, error), cfg ChaosConfig) *ChaosCallable[O] {
	seed := cfg.Seed
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			seed = time.Now().UnixNano()
		} else {
			for _, b := range seedBytes {
				seed = seed<<8 | int64(b)
			}
		}
	}
	return &ChaosCallable[O]{
		name:        name,
		wrapped:     fn,
		failureRate: cfg.FailureRate,
		latencyMin:  cfg.LatencyMin,
		latencyMax:  cfg.LatencyMax,
		panicRate:   cfg.PanicRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // deterministic chaos, not cryptographic
	}
}

// Fn returns the closure to hand to a node constructor.
func (c *ChaosCallable[O]) Fn() func(context.Context) (O, error) {
	return func(ctx context.Context) (O, error) {
		atomic.AddInt64(&c.totalCalls, 1)

		c.mu.Lock()
		if c.rng.Float64() < c.panicRate {
			c.mu.Unlock()
			atomic.AddInt64(&c.panicCalls, 1)
			panic("chaos callable induced panic")
		}
		var latency time.Duration
		if c.latencyMax > c.latencyMin {
			latency = c.latencyMin + time.Duration(c.rng.Int63n(int64(c.latencyMax-c.latencyMin)))
		} else if c.latencyMin > 0 {
			latency = c.latencyMin
		}
		injectFailure := c.rng.Float64() < c.failureRate
		c.mu.Unlock()

		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-ctx.Done():
				var zero O
				return zero, ctx.Err()
			}
		}

		result, err := c.wrapped(ctx)
		if injectFailure && err == nil {
			atomic.AddInt64(&c.failedCalls, 1)
			var zero O
			return zero, errChaosInjected
		}
		return result, err
	}
}

// Stats reports counters accumulated since the ChaosCallable was created.
func (c *ChaosCallable[O]) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:  atomic.LoadInt64(&c.totalCalls),
		FailedCalls: atomic.LoadInt64(&c.failedCalls),
		PanicCalls:  atomic.LoadInt64(&c.panicCalls),
	}
}

// ChaosStats summarizes a ChaosCallable's observed behavior.
type ChaosStats struct {
	TotalCalls  int64
	FailedCalls int64
	PanicCalls  int64
}

var errChaosInjected = chaosError{}

type chaosError struct{}

func (chaosError) Error() string { return "chaos callable induced failure" }

// WaitForCallCount polls mock until it reaches expected calls or timeout
// elapses. Returns true if the expected count was reached.
func WaitForCallCount[O any](mock *MockCallable[O], expected int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if mock.CallCount() >= expected {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return mock.CallCount() >= expected
}

// ParallelTest runs testFunc concurrently across n goroutines, each given
// its own index, and waits for all of them to finish.
func ParallelTest(t *testing.T, n int, testFunc func(int)) {
	t.Helper()
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}
	wg.Wait()
}

// MeasureLatency returns how long fn took to run.
func MeasureLatency(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

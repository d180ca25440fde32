package wavez

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestNullProfilerIsNoop(t *testing.T) {
	var p NullProfiler
	p.LogJob(Job{})
	p.LogWave(1, time.Second)
	p.LogRun(time.Second)
	p.LogCustom(1, time.Second)
	p.TurnOn()
	p.TurnOff()
}

func TestSingleThreadedProfilerRespectsOnOff(t *testing.T) {
	var buf bytes.Buffer
	p := NewSingleThreadedProfiler(&buf, 1, false)
	p.LogWave(1, time.Millisecond)
	if buf.Len() != 0 {
		t.Fatalf("expected no output while off, got %q", buf.String())
	}

	p.TurnOn()
	p.LogWave(2, 5*time.Millisecond)
	if !strings.HasPrefix(buf.String(), "W, 2, 5000") {
		t.Fatalf("unexpected wave line: %q", buf.String())
	}
}

func TestSingleThreadedProfilerWritesJobLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewSingleThreadedProfiler(&buf, 1, true)

	base := time.Unix(0, 0)
	job := Job{
		Node:      NewNode0(5, func(context.Context) (int, error) { return 0, nil }),
		JobID:     3,
		Scheduled: base,
		Started:   base.Add(10 * time.Microsecond),
		Finished:  base.Add(60 * time.Microsecond),
		Synced:    base.Add(70 * time.Microsecond),
		Worker:    2,
	}
	p.LogJob(job)

	out := buf.String()
	if !strings.HasPrefix(out, "J, 5, 3, 2,") {
		t.Fatalf("unexpected job line: %q", out)
	}
}

func TestSingleThreadedProfilerLogRunAndCustom(t *testing.T) {
	var buf bytes.Buffer
	p := NewSingleThreadedProfiler(&buf, 1, true)
	p.LogRun(2 * time.Millisecond)
	p.LogCustom(42, 3*time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "R, 2000") {
		t.Fatalf("expected R line, got %q", out)
	}
	if !strings.Contains(out, "C, 42, 3000") {
		t.Fatalf("expected C line, got %q", out)
	}
}

func TestMultiThreadedProfilerDrainsJobs(t *testing.T) {
	var buf bytes.Buffer
	p := NewMultiThreadedProfiler(&buf, 8, true)

	base := time.Unix(0, 0)
	job := Job{
		Node:      NewNode0(9, func(context.Context) (int, error) { return 0, nil }),
		JobID:     4,
		Scheduled: base,
		Started:   base.Add(time.Microsecond),
		Finished:  base.Add(2 * time.Microsecond),
		Synced:    base.Add(3 * time.Microsecond),
		Worker:    1,
	}
	p.LogJob(job)
	p.Shutdown()

	if !strings.Contains(buf.String(), "J, 9, 4, 1,") {
		t.Fatalf("expected job line for node 9, got %q", buf.String())
	}
}

func TestMultiThreadedProfilerNeverDropsUnderPressure(t *testing.T) {
	var buf bytes.Buffer
	p := NewMultiThreadedProfiler(&buf, 1, true)

	const jobs = 50
	var wg sync.WaitGroup
	wg.Add(jobs)
	for i := 0; i < jobs; i++ {
		go func(id int) {
			defer wg.Done()
			p.LogJob(Job{
				Node:  NewNode0(Identifier(id), func(context.Context) (int, error) { return 0, nil }),
				JobID: id,
			})
		}(i)
	}
	wg.Wait()
	p.Shutdown()

	if got := strings.Count(buf.String(), "J, "); got != jobs {
		t.Fatalf("expected %d job lines with a capacity-1 ring, got %d", jobs, got)
	}
}

func TestTimeCustomRecordsElapsed(t *testing.T) {
	var buf bytes.Buffer
	p := NewSingleThreadedProfiler(&buf, 1, true)
	clock := clockz.NewFakeClock()

	stop := TimeCustom(p, 7, clock)
	clock.Advance(5 * time.Millisecond)
	stop()

	if !strings.HasPrefix(buf.String(), "C, 7, 5000") {
		t.Fatalf("expected 5ms custom line, got %q", buf.String())
	}
}

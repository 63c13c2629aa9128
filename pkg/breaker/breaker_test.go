package breaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int64) (*Breaker, *fakeClock) {
	clk := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	b := New("room-service", Settings{
		FailureThreshold: threshold,
		Window:           10 * time.Second,
		Cooldown:         30 * time.Second,
	}, WithClock(clk.Now))
	return b, clk
}

func fail(t *testing.T, b *Breaker) {
	t.Helper()
	p, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	p.Failure()
}

func TestOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)

	fail(t, b)
	fail(t, b)
	if b.State() != Closed {
		t.Fatalf("state = %s after 2 failures, want CLOSED", b.State())
	}
	fail(t, b)
	if b.State() != Open {
		t.Fatalf("state = %s after 3 failures, want OPEN", b.State())
	}

	if _, err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow while open = %v, want ErrOpen", err)
	}
}

func TestFailuresOutsideWindowDoNotAccumulate(t *testing.T) {
	b, clk := newTestBreaker(3)

	fail(t, b)
	fail(t, b)
	clk.Advance(11 * time.Second)
	fail(t, b)

	if b.State() != Closed {
		t.Fatalf("state = %s, want CLOSED once the window rolled over", b.State())
	}
	if got := b.Snapshot().FailureCount; got != 1 {
		t.Fatalf("failure count = %d, want 1", got)
	}
}

func TestSuccessWhileClosedKeepsCount(t *testing.T) {
	b, _ := newTestBreaker(2)

	fail(t, b)
	p, _ := b.Allow()
	p.Success()
	fail(t, b)

	if b.State() != Open {
		t.Fatalf("state = %s, want OPEN", b.State())
	}
}

func TestHalfOpenAdmitsSingleProbe(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)

	clk.Advance(29 * time.Second)
	if _, err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow before cooldown = %v, want ErrOpen", err)
	}

	clk.Advance(time.Second)
	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow after cooldown: %v", err)
	}
	if !probe.Probe() {
		t.Fatal("first permit after cooldown should be the probe")
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", b.State())
	}
	if _, err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("second Allow during probe = %v, want ErrOpen", err)
	}

	probe.Success()
	if b.State() != Closed {
		t.Fatalf("state = %s after successful probe, want CLOSED", b.State())
	}
	if got := b.Snapshot().FailureCount; got != 0 {
		t.Fatalf("failure count = %d after close, want 0", got)
	}
}

func TestFailedProbeReopens(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)
	clk.Advance(30 * time.Second)

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	probe.Done(errors.New("connection refused"))

	if b.State() != Open {
		t.Fatalf("state = %s after failed probe, want OPEN", b.State())
	}
	if _, err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow right after failed probe = %v, want ErrOpen", err)
	}

	clk.Advance(30 * time.Second)
	if _, err := b.Allow(); err != nil {
		t.Fatalf("Allow after second cooldown: %v", err)
	}
}

func TestConcurrentProbeRace(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)
	clk.Advance(time.Minute)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Allow(); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Fatalf("admitted %d probes, want exactly 1", got)
	}
}

func TestConcurrentFailuresAggregate(t *testing.T) {
	b, _ := newTestBreaker(50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := b.Allow()
			if err != nil {
				return
			}
			p.Failure()
		}()
	}
	wg.Wait()

	if b.State() != Open {
		t.Fatalf("state = %s after 50 concurrent failures, want OPEN", b.State())
	}
}

func TestStateChangeHook(t *testing.T) {
	var got []string
	clk := &fakeClock{now: time.Unix(0, 0)}
	b := New("user-service", Settings{FailureThreshold: 1, Cooldown: time.Second},
		WithClock(clk.Now),
		OnStateChange(func(name string, from, to State) {
			got = append(got, name+":"+from.String()+"->"+to.String())
		}))

	fail(t, b)
	clk.Advance(time.Second)
	p, _ := b.Allow()
	p.Success()

	want := []string{
		"user-service:CLOSED->OPEN",
		"user-service:OPEN->HALF_OPEN",
		"user-service:HALF_OPEN->CLOSED",
	}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transition %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStaleOpenReadCannotSkipCooldown(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)
	clk.Advance(30 * time.Second)

	// A caller that read OPEN after the cooldown but was descheduled before swapping.
	stale := b.cur.Load()

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	probe.Failure()
	if b.State() != Open {
		t.Fatalf("state = %s after failed trial, want OPEN", b.State())
	}

	if b.tryHalfOpen(stale) {
		t.Fatal("stale OPEN status moved the breaker to HALF_OPEN")
	}
	if _, err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow right after failed trial = %v, want ErrOpen", err)
	}
}

func TestLosingTransitionKeepsTimestamp(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)
	opened := b.Snapshot().LastTransitionTime

	clk.Advance(10 * time.Second)
	if b.transition(HalfOpen, Closed) {
		t.Fatal("transition from a state the breaker is not in succeeded")
	}
	if got := b.Snapshot().LastTransitionTime; !got.Equal(opened) {
		t.Fatalf("last transition = %v, want %v", got, opened)
	}

	clk.Advance(20 * time.Second)
	if _, err := b.Allow(); err != nil {
		t.Fatalf("Allow after cooldown measured from opening: %v", err)
	}
}

func TestReleasedTrialFreesSlot(t *testing.T) {
	b, clk := newTestBreaker(1)
	fail(t, b)
	clk.Advance(30 * time.Second)

	first, err := b.Allow()
	if err != nil || !first.Probe() {
		t.Fatalf("Allow = %v, trial %v", err, first.Probe())
	}
	first.Release()
	if b.State() != HalfOpen {
		t.Fatalf("state = %s after release, want HALF_OPEN", b.State())
	}

	second, err := b.Allow()
	if err != nil || !second.Probe() {
		t.Fatalf("Allow after release = %v, trial %v", err, second.Probe())
	}
	second.Success()
	if b.State() != Closed {
		t.Fatalf("state = %s, want CLOSED", b.State())
	}
}

func TestReleaseLeavesCountUntouched(t *testing.T) {
	b, _ := newTestBreaker(3)
	for i := 0; i < 3; i++ {
		p, err := b.Allow()
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		p.Release()
	}
	if s := b.Snapshot(); s.State != Closed || s.FailureCount != 0 {
		t.Fatalf("snapshot = %+v, want CLOSED with no failures", s)
	}
}

// Package breaker implements a per-dependency circuit breaker whose state is shared by every
// concurrent caller of that dependency.
//
// A Breaker starts CLOSED. Failures are counted in a fixed window; when the count reaches the
// threshold inside one window the breaker opens. While OPEN every call is rejected with ErrOpen.
// The first call after the cooldown moves the breaker to HALF_OPEN and is let through as the single
// probe; its outcome closes the breaker (count reset) or re-opens it (cooldown restarted). Calls that
// arrive while the probe is in flight are rejected.
//
// All counters are sync/atomic values. The state and the time it was entered live together in one
// immutable status swapped by compare-and-swap, so failures reported from many goroutines aggregate
// into one count and only one goroutine performs any given transition.
package breaker

import (
	"errors"
	"sync/atomic"
	"time"
)

var ErrOpen = errors.New("circuit breaker is open")

type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "CLOSED":
		*s = Closed
	case "OPEN":
		*s = Open
	case "HALF_OPEN":
		*s = HalfOpen
	default:
		return errors.New("breaker: unknown state " + string(text))
	}
	return nil
}

type Settings struct {
	FailureThreshold int64
	Window           time.Duration
	Cooldown         time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Window:           10 * time.Second,
		Cooldown:         30 * time.Second,
	}
}

type Option func(*Breaker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// OnStateChange registers a hook called after every transition, outside any lock.
func OnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onChange = fn }
}

type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time
	onChange func(name string, from, to State)

	cur         atomic.Pointer[status]
	failures    atomic.Int64
	windowStart atomic.Int64
	probing     atomic.Bool
}

// status is never mutated once published; a transition swaps in a new one.
type status struct {
	state State
	since int64
}

func New(name string, s Settings, opts ...Option) *Breaker {
	def := DefaultSettings()
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = def.FailureThreshold
	}
	if s.Window <= 0 {
		s.Window = def.Window
	}
	if s.Cooldown <= 0 {
		s.Cooldown = def.Cooldown
	}
	b := &Breaker{name: name, settings: s, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	now := b.now().UnixNano()
	b.windowStart.Store(now)
	b.cur.Store(&status{state: Closed, since: now})
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State { return b.cur.Load().state }

// Permit is handed out by Allow and must be settled exactly once with Success, Failure or Release.
type Permit struct {
	b     *Breaker
	probe bool
}

// Probe reports whether this permit is the single HALF_OPEN trial call.
func (p Permit) Probe() bool { return p.probe }

func (p Permit) Success() { p.b.onSuccess(p.probe) }

func (p Permit) Failure() { p.b.onFailure(p.probe) }

// Release settles a call whose outcome says nothing about the dependency, such as one abandoned by
// its caller. Counters are untouched; a probe frees the HALF_OPEN slot for the next caller.
func (p Permit) Release() {
	if p.probe {
		p.b.probing.Store(false)
	}
}

// Done settles the permit from an error value; nil is success.
func (p Permit) Done(err error) {
	if err != nil {
		p.Failure()
		return
	}
	p.Success()
}

// Allow asks to make one call. It returns ErrOpen when the call must not be attempted.
func (b *Breaker) Allow() (Permit, error) {
	for {
		s := b.cur.Load()
		switch s.state {
		case Closed:
			return Permit{b: b}, nil
		case Open:
			if b.now().UnixNano()-s.since < int64(b.settings.Cooldown) {
				return Permit{}, ErrOpen
			}
			// Whoever wins the swap, the state has moved on; loop and re-read it.
			b.tryHalfOpen(s)
		case HalfOpen:
			if b.probing.CompareAndSwap(false, true) {
				return Permit{b: b, probe: true}, nil
			}
			return Permit{}, ErrOpen
		}
	}
}

func (b *Breaker) onSuccess(probe bool) {
	if !probe {
		return
	}
	if b.transition(HalfOpen, Closed) {
		b.failures.Store(0)
		b.windowStart.Store(b.now().UnixNano())
	}
	b.probing.Store(false)
}

func (b *Breaker) onFailure(probe bool) {
	if probe {
		b.transition(HalfOpen, Open)
		b.probing.Store(false)
		return
	}
	if b.State() != Closed {
		// A call admitted before the breaker opened; its outcome no longer matters.
		return
	}

	now := b.now().UnixNano()
	ws := b.windowStart.Load()
	if now-ws >= int64(b.settings.Window) && b.windowStart.CompareAndSwap(ws, now) {
		b.failures.Store(0)
	}
	if b.failures.Add(1) >= b.settings.FailureThreshold {
		b.transition(Closed, Open)
	}
}

// transition moves the breaker from one state to another. The probe flag is cleared by the settling
// permit only after its swap, so a second probe cannot slip in.
func (b *Breaker) transition(from, to State) bool {
	for {
		s := b.cur.Load()
		if s.state != from {
			return false
		}
		if b.swap(s, to) {
			return true
		}
	}
}

// tryHalfOpen leaves OPEN only if opened is still the current status. A caller holding a status
// read before a failed probe re-opened the breaker loses the swap and cannot skip the new cooldown.
func (b *Breaker) tryHalfOpen(opened *status) bool {
	return b.swap(opened, HalfOpen)
}

func (b *Breaker) swap(old *status, to State) bool {
	if !b.cur.CompareAndSwap(old, &status{state: to, since: b.now().UnixNano()}) {
		return false
	}
	if b.onChange != nil {
		b.onChange(b.name, old.state, to)
	}
	return true
}

// Snapshot is the observable state of one breaker.
type Snapshot struct {
	Name               string    `json:"name"`
	State              State     `json:"state"`
	FailureCount       int64     `json:"failureCount"`
	LastTransitionTime time.Time `json:"lastTransitionTime"`
}

func (b *Breaker) Snapshot() Snapshot {
	s := b.cur.Load()
	return Snapshot{
		Name:               b.name,
		State:              s.state,
		FailureCount:       b.failures.Load(),
		LastTransitionTime: time.Unix(0, s.since).UTC(),
	}
}

// Package clock provides a time abstraction for the environment engine.
// Use RealClock in the daemon and MockClock in tests so tick-driven state can be
// advanced deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock is the host time source consumed by the engine.
type Clock interface {
	// Now returns the current wall-clock time in the host zone
	Now() time.Time

	// NewTicker returns a Ticker that delivers the time every d
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped
type Ticker interface {
	// C returns the channel on which ticks are delivered
	C() <-chan time.Time

	// Stop turns off the ticker. No more ticks are sent after Stop returns.
	Stop()
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// realTicker wraps time.Ticker to implement our Ticker interface
type realTicker struct {
	ticker *time.Ticker
}

// NewRealClock creates a new RealClock instance
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// NewTicker starts a standard library ticker
func (c *RealClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}

// MockClock is a Clock implementation for testing that allows manual time control
type MockClock struct {
	mu      sync.Mutex
	current time.Time
	tickers []*mockTicker
}

type mockTicker struct {
	mu       sync.Mutex
	ch       chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

// NewMockClock creates a new MockClock starting at the given time
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{
		current: start,
		tickers: make([]*mockTicker, 0),
	}
}

// Now returns the mock current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires as Advance moves time past its deadlines
func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTicker{
		// Buffer of one mirrors time.Ticker: slow readers miss ticks instead of blocking
		ch:       make(chan time.Time, 1),
		interval: d,
		next:     c.current.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves the mock clock forward by d and fires every ticker whose deadline passed
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	active := c.tickers[:0]
	for _, t := range c.tickers {
		t.mu.Lock()
		if !t.stopped {
			active = append(active, t)
		}
		t.mu.Unlock()
	}
	c.tickers = active
	fire := make([]*mockTicker, len(active))
	copy(fire, active)
	c.mu.Unlock()

	for _, t := range fire {
		t.fire(now)
	}
}

// Set moves the clock to t. Moving backwards does not fire tickers.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if t.After(current) {
		c.Advance(t.Sub(current))
		return
	}

	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// fire delivers at most one tick per Advance, like a real ticker with a lagging reader
func (t *mockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.next.After(now) {
		return
	}
	for !t.next.After(now) {
		t.next = t.next.Add(t.interval)
	}

	select {
	case t.ch <- now:
	default:
	}
}

func (t *mockTicker) C() <-chan time.Time {
	return t.ch
}

func (t *mockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

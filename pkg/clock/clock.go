package clock

import (
	"sync"
	"time"
)

// Clock is the node's millisecond time base.
//
// Milliseconds are a free-running uint32 counter. Callers compare instants with
// unsigned subtraction (now - then), which stays correct across the counter's
// wrap-around roughly every 49.7 days.
type Clock interface {
	NowMillis() uint32
	Sleep(d time.Duration)
}

// Ensure System implements Clock.
var _ Clock = (*System)(nil)

// Ensure Manual implements Clock.
var _ Clock = (*Manual)(nil)

// System counts milliseconds since it was created using the monotonic clock.
type System struct {
	start time.Time
}

// NewSystem creates a System clock starting at zero.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// NowMillis returns milliseconds elapsed since NewSystem, truncated to 32 bits.
func (c *System) NowMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Sleep blocks for d.
func (c *System) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Manual is a Clock that only moves when told to. Sleep advances it instead of
// blocking, which makes timing-dependent loops deterministic in tests.
type Manual struct {
	mu  sync.Mutex
	now uint32
}

// NewManual creates a Manual clock reading start.
func NewManual(start uint32) *Manual {
	return &Manual{now: start}
}

// NowMillis returns the current manual time.
func (c *Manual) NowMillis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d (rounded down to whole milliseconds, minimum 1).
func (c *Manual) Sleep(d time.Duration) {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	c.Advance(uint32(ms))
}

// Advance moves the clock forward by ms milliseconds, wrapping like a hardware counter.
func (c *Manual) Advance(ms uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
}

// Set jumps the clock to an absolute value.
func (c *Manual) Set(ms uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

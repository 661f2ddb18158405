package filter

// Float is the set of element types a MovingAverage can hold.
type Float interface {
	~float32 | ~float64
}

// MovingAverage is a fixed-capacity circular buffer that maintains the running
// mean of the most recent N values.
//
// The buffer is allocated once in New and never grows. Add overwrites the oldest
// slot once the buffer is full and adjusts the running sum incrementally, so
// neither Add nor Get rescans the window.
type MovingAverage[T Float] struct {
	buf    []T
	next   int // slot that the next Add writes to
	filled int // number of valid slots, capped at len(buf)
	sum    T   // sum of the filled slots
}

// New creates a MovingAverage with the given window capacity.
// Capacity below 1 is treated as 1 (no smoothing).
func New[T Float](capacity int) *MovingAverage[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &MovingAverage[T]{
		buf: make([]T, capacity),
	}
}

// Add pushes a value into the window, evicting the oldest one once the window is full.
func (m *MovingAverage[T]) Add(v T) {
	// Unfilled slots are still zero, so subtracting them is a no-op.
	m.sum += v - m.buf[m.next]
	m.buf[m.next] = v

	m.next++
	if m.next == len(m.buf) {
		m.next = 0
	}
	if m.filled < len(m.buf) {
		m.filled++
	}
}

// Get returns the mean of the values currently in the window.
// An empty window yields 0.
func (m *MovingAverage[T]) Get() T {
	if m.filled == 0 {
		return 0
	}
	return m.sum / T(m.filled)
}

// IsEmpty reports whether no value has been added since construction or the last Reset.
func (m *MovingAverage[T]) IsEmpty() bool {
	return m.filled == 0
}

// Len returns the number of values currently contributing to the mean.
func (m *MovingAverage[T]) Len() int {
	return m.filled
}

// Cap returns the window capacity.
func (m *MovingAverage[T]) Cap() int {
	return len(m.buf)
}

// Reset empties the window without releasing the buffer.
func (m *MovingAverage[T]) Reset() {
	clear(m.buf)
	m.next = 0
	m.filled = 0
	m.sum = 0
}

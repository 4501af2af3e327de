package sample

// Integer is the set of element types a Window can average.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Window is a fixed-capacity FIFO buffer. Pushing into a full window evicts
// the oldest elements so that the length never exceeds the capacity.
//
// A Window is not safe for concurrent use; it is owned by a single goroutine.
type Window[T Integer] struct {
	buf []T
	cap int
}

// NewWindow creates an empty window holding at most capacity elements.
// Capacities below 1 are treated as 1.
func NewWindow[T Integer](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{
		buf: make([]T, 0, capacity),
		cap: capacity,
	}
}

// Push appends v, evicting from the front until there is room for it.
func (w *Window[T]) Push(v T) {
	if n := len(w.buf) - w.cap + 1; n > 0 {
		// Shift in place so the backing array never grows
		copy(w.buf, w.buf[n:])
		w.buf = w.buf[:len(w.buf)-n]
	}
	w.buf = append(w.buf, v)
}

// Average returns the truncated arithmetic mean of the contents, or 0 when empty.
func (w *Window[T]) Average() T {
	if len(w.buf) == 0 {
		return 0
	}

	var sum int64
	for _, v := range w.buf {
		sum += int64(v)
	}
	return T(sum / int64(len(w.buf)))
}

// Len returns the number of elements currently held.
func (w *Window[T]) Len() int {
	return len(w.buf)
}

// Cap returns the fixed capacity.
func (w *Window[T]) Cap() int {
	return w.cap
}

// Full reports whether the window holds Cap elements.
func (w *Window[T]) Full() bool {
	return len(w.buf) >= w.cap
}

// Values returns a copy of the contents, oldest first.
func (w *Window[T]) Values() []T {
	result := make([]T, len(w.buf))
	copy(result, w.buf)
	return result
}

// All calls fn for each element, oldest first, stopping when fn returns false.
func (w *Window[T]) All(fn func(v T) bool) {
	for _, v := range w.buf {
		if !fn(v) {
			return
		}
	}
}

// Reset empties the window, keeping its capacity.
func (w *Window[T]) Reset() {
	w.buf = w.buf[:0]
}

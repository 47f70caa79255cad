package trace

import "errors"

var (
	errBufferIsEmpty = errors.New("buffer is empty")
	errBufferIsFull  = errors.New("buffer is full")
)

const defaultBufferSz = 4096

// Ring is a fixed capacity FIFO. Writes fail once it is full.
type Ring[T any] struct {
	buffer []T
	begin  int
	end    int
	full   bool
}

func NewRing[T any](sz int) *Ring[T] {
	if sz <= 0 {
		sz = defaultBufferSz
	}
	return &Ring[T]{buffer: make([]T, sz)}
}

func (r *Ring[T]) Push(v T) error {
	if r.full {
		return errBufferIsFull
	}

	r.buffer[r.end] = v
	r.end = (r.end + 1) % len(r.buffer)

	// Check if the next slot is the begin iterator
	if r.end == r.begin {
		r.full = true
	}
	return nil
}

func (r *Ring[T]) Pop() (T, error) {
	var zero T
	if !r.full && r.end == r.begin {
		return zero, errBufferIsEmpty
	}

	v := r.buffer[r.begin]
	r.buffer[r.begin] = zero
	r.begin = (r.begin + 1) % len(r.buffer)
	r.full = false
	return v, nil
}

func (r *Ring[T]) Len() int {
	if r.full {
		return len(r.buffer)
	} else if r.end >= r.begin {
		return r.end - r.begin
	}
	return len(r.buffer) - r.begin + r.end
}

func (r *Ring[T]) Cap() int {
	return len(r.buffer)
}

// Items returns the buffered values, oldest first, without consuming them.
func (r *Ring[T]) Items() []T {
	items := make([]T, 0, r.Len())
	for i, n := r.begin, r.Len(); n > 0; n-- {
		items = append(items, r.buffer[i])
		i = (i + 1) % len(r.buffer)
	}
	return items
}

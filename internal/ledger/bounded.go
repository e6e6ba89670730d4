package ledger

// Bounded is a fixed-capacity FIFO. Pushing onto a full buffer evicts the
// oldest item. It is not safe for concurrent use.
type Bounded[T any] struct {
	items    []T
	capacity int
}

// NewBounded creates an empty buffer. Capacities below 1 are raised to 1.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{items: make([]T, 0, capacity), capacity: capacity}
}

// Push appends v and returns the evicted item, if any.
func (b *Bounded[T]) Push(v T) (evicted T, ok bool) {
	if len(b.items) == b.capacity {
		evicted, ok = b.items[0], true
		copy(b.items, b.items[1:])
		b.items = b.items[:len(b.items)-1]
	}
	b.items = append(b.items, v)
	return evicted, ok
}

// Items returns the contents oldest first. The slice is a copy; the items are not.
func (b *Bounded[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Each calls fn on every item oldest first.
func (b *Bounded[T]) Each(fn func(T)) {
	for _, v := range b.items {
		fn(v)
	}
}

// Replace swaps the contents, keeping only the newest capacity items.
func (b *Bounded[T]) Replace(items []T) {
	if len(items) > b.capacity {
		items = items[len(items)-b.capacity:]
	}
	b.items = append(b.items[:0], items...)
}

// Len returns the number of items held.
func (b *Bounded[T]) Len() int {
	return len(b.items)
}

// Cap returns the capacity.
func (b *Bounded[T]) Cap() int {
	return b.capacity
}

// Reset empties the buffer.
func (b *Bounded[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.items = b.items[:0]
}

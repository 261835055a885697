// Package batch accumulates items into fixed-size batches.
package batch

// A Buffer collects items until it holds size of them, then hands the whole
// run back to the caller and starts over. Every appended item comes out in
// exactly one batch, in append order.
//
// A Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	size  int
	items []T
}

// NewBuffer returns a Buffer that emits batches of size items. Sizes below
// one are treated as one.
func NewBuffer[T any](size int) *Buffer[T] {
	if size < 1 {
		size = 1
	}

	return &Buffer[T]{
		size:  size,
		items: make([]T, 0, size),
	}
}

// Append adds item and, if that fills the buffer, returns the full batch
func (b *Buffer[T]) Append(item T) ([]T, bool) {
	b.items = append(b.items, item)
	if len(b.items) < b.size {
		return nil, false
	}

	return b.take(), true
}

// Finalize returns whatever partial batch is left. An empty buffer returns
// nothing.
func (b *Buffer[T]) Finalize() ([]T, bool) {
	if len(b.items) == 0 {
		return nil, false
	}

	return b.take(), true
}

// Len returns the number of items waiting in the buffer
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Size returns the configured batch size
func (b *Buffer[T]) Size() int {
	return b.size
}

// take gives away the current slice and replaces it with a fresh one, so the
// returned batch is never aliased by later appends.
func (b *Buffer[T]) take() []T {
	out := b.items
	b.items = make([]T, 0, b.size)
	return out
}

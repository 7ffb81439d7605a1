// Package queue provides a small FIFO used to replay prepared request lists.
package queue

import "sync"

// Queue is a thread-safe FIFO backed by a growable ring buffer.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int
	n    int
}

// New creates a queue holding items in order.
func New[T any](items ...T) *Queue[T] {
	q := &Queue[T]{}
	q.Push(items...)
	return q
}

// Push appends items at the tail.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range items {
		if q.n == len(q.buf) {
			q.grow()
		}
		q.buf[(q.head+q.n)%len(q.buf)] = it
		q.n++
	}
}

func (q *Queue[T]) grow() {
	size := max(4, 2*len(q.buf))
	buf := make([]T, size)
	for i := range q.n {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}

// Pop removes the head item. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return item, false
	}
	item = q.buf[q.head]
	var zero T
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return item, true
}

// Peek returns the head item without removing it.
func (q *Queue[T]) Peek() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return item, false
	}
	return q.buf[q.head], true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Drain removes and returns all items in order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, q.n)
	for i := range q.n {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	clear(q.buf)
	q.head, q.n = 0, 0
	return out
}

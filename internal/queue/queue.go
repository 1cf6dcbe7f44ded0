// Package queue is the FIFO behind pending collisions and batched storage
// writes. It is safe for concurrent use.
package queue

import "sync"

// Queue holds items in arrival order. Taken items are sliced off the head;
// the backing array is compacted once more than half of it is dead.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	head  int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items at the tail.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Requeue puts items back at the head, ahead of anything pushed since
// they were taken.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(items) {
		q.head -= len(items)
		copy(q.items[q.head:], items)
		return
	}
	live := q.items[q.head:]
	merged := make([]T, 0, len(items)+len(live))
	merged = append(merged, items...)
	q.items = append(merged, live...)
	q.head = 0
}

// Take removes up to n items from the head; n <= 0 takes everything.
// The returned slice does not alias the queue.
func (q *Queue[T]) Take(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	live := len(q.items) - q.head
	if live == 0 {
		return nil
	}
	if n <= 0 || n > live {
		n = live
	}
	out := make([]T, n)
	copy(out, q.items[q.head:q.head+n])
	q.advance(n)
	return out
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	return q.Take(0)
}

// advance drops n items from the head. Caller holds mu.
func (q *Queue[T]) advance(n int) {
	var zero T
	for i := q.head; i < q.head+n; i++ {
		q.items[i] = zero
	}
	q.head += n
	switch {
	case q.head == len(q.items):
		q.items, q.head = q.items[:0], 0
	case q.head > len(q.items)/2:
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Package channel hands tick records from the simulation loop to the
// recording pipeline. Release builds buffer them; builds tagged debug use
// an unbuffered pipe so every record is consumed before the next tick.
package channel

import "sync"

// Receiver is the consuming end.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender is the producing end.
type Sender[T any] interface {
	Send(T)
	// TrySend delivers v only if it would not block.
	TrySend(T) bool
}

type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	// Close ends Receive once queued values are consumed. It may be called
	// more than once.
	Close()
}

type pipe[T any] struct {
	ch   chan T
	once sync.Once
}

func newPipe[T any](size int) *pipe[T] {
	return &pipe[T]{ch: make(chan T, max(size, 0))}
}

func (p *pipe[T]) Send(v T) { p.ch <- v }

func (p *pipe[T]) TrySend(v T) bool {
	select {
	case p.ch <- v:
		return true
	default:
		return false
	}
}

func (p *pipe[T]) Receive() <-chan T { return p.ch }

// Len is always 0 for an unbuffered pipe.
func (p *pipe[T]) Len() int { return len(p.ch) }

func (p *pipe[T]) Close() {
	p.once.Do(func() { close(p.ch) })
}

package runtime

import (
	"sync"
)

// SubQueue decouples a producer from a slow subscriber. Events are queued
// in memory and forwarded to Chan by a dispatch goroutine. When the
// backlog exceeds its bound the oldest queued events are dropped, so the
// producer never blocks.
type SubQueue[T any] struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []T
	maxBacklog int
	dropped    int
	closed     bool

	outCh  chan T // consumer reads from this
	done   chan struct{}
	paused bool // gate dispatch until snapshot is primed
}

// NewSubQueue returns a paused queue. maxBacklog <= 0 means unbounded.
func NewSubQueue[T any](outBuf, maxBacklog int) *SubQueue[T] {
	sq := &SubQueue[T]{
		outCh:      make(chan T, outBuf),
		done:       make(chan struct{}),
		maxBacklog: maxBacklog,
		paused:     true,
	}
	sq.cond = sync.NewCond(&sq.mu)
	go sq.dispatch()
	return sq
}

// Chan is the channel exposed to the subscriber.
func (sq *SubQueue[T]) Chan() <-chan T { return sq.outCh }

// Enqueue appends to the in-memory queue and wakes the dispatcher.
func (sq *SubQueue[T]) Enqueue(ev T) {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed {
		return
	}
	sq.queue = append(sq.queue, ev)
	sq.trim()
	sq.cond.Signal()
}

// Prime places snapshot events ahead of anything already queued. It is
// meant to be called while the queue is still paused.
func (sq *SubQueue[T]) Prime(evs ...T) {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	if sq.closed || len(evs) == 0 {
		return
	}
	sq.queue = append(append(make([]T, 0, len(evs)+len(sq.queue)), evs...), sq.queue...)
	sq.trim()
	sq.cond.Signal()
}

// Dropped returns how many events were discarded due to the backlog bound.
func (sq *SubQueue[T]) Dropped() int {
	sq.mu.Lock()
	defer sq.mu.Unlock()
	return sq.dropped
}

// SetPaused gates dispatching.
func (sq *SubQueue[T]) SetPaused(v bool) {
	sq.mu.Lock()
	sq.paused = v
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

// Close stops the dispatcher and closes the out channel.
func (sq *SubQueue[T]) Close() {
	sq.mu.Lock()
	if !sq.closed {
		sq.closed = true
		close(sq.done)
	}
	sq.cond.Broadcast()
	sq.mu.Unlock()
}

// trim must be called with mu held.
func (sq *SubQueue[T]) trim() {
	if sq.maxBacklog <= 0 || len(sq.queue) <= sq.maxBacklog {
		return
	}
	n := len(sq.queue) - sq.maxBacklog
	sq.queue = append(sq.queue[:0], sq.queue[n:]...)
	sq.dropped += n
}

func (sq *SubQueue[T]) dispatch() {
	for {
		sq.mu.Lock()
		for !sq.closed && (sq.paused || len(sq.queue) == 0) {
			sq.cond.Wait()
		}
		if sq.closed {
			sq.mu.Unlock()
			close(sq.outCh)
			return
		}
		ev := sq.queue[0]
		sq.queue = sq.queue[1:]
		sq.mu.Unlock()

		select {
		case sq.outCh <- ev:
		case <-sq.done:
			close(sq.outCh)
			return
		}
	}
}

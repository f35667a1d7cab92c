package pipeline

import (
	"sync"

	"github.com/scribelab/duoscribe/internal/audio"
)

// Queue is the hand-off between capture and the streaming engine: a
// single producer publishes buffers without ever blocking, a single
// consumer drains them in FIFO order from Out. Close signals end of
// input; remaining items are still delivered before Out closes.
//
// The buffering is unbounded on purpose: stalling the capture thread is
// worse than growing memory under a slow consumer. Len exposes the depth
// so callers can log when it runs away.
type Queue struct {
	mu     sync.Mutex
	items  []*audio.Buffer
	wake   chan struct{}
	closed bool
	out    chan *audio.Buffer
}

// NewQueue creates an open queue and starts its delivery loop.
func NewQueue() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
		out:  make(chan *audio.Buffer),
	}
	go q.pump()
	return q
}

// Push publishes one buffer. Never blocks. Pushing after Close drops the
// buffer.
func (q *Queue) Push(buf *audio.Buffer) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, buf)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close marks end of input. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Out is the consumer side. It closes after Close once every queued
// buffer has been delivered.
func (q *Queue) Out() <-chan *audio.Buffer {
	return q.out
}

// Len returns the number of undelivered buffers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pump moves items to the out channel, blocking only on the consumer.
func (q *Queue) pump() {
	defer close(q.out)
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		buf := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- buf
	}
}

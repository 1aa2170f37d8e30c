// File: voice/backlog.go
// Author: momentics <momentics@gmail.com>
//
// Bounded FIFO between the frame loop and the notifier goroutine.

package voice

import (
	"sync"

	"github.com/eapache/queue"
)

// DefaultBacklog is the number of undelivered messages kept before the
// oldest is dropped.
const DefaultBacklog = 64

type backlog struct {
	mu    sync.Mutex
	q     *queue.Queue
	limit int

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newBacklog(limit int) *backlog {
	if limit <= 0 {
		limit = DefaultBacklog
	}
	return &backlog{
		q:     queue.New(),
		limit: limit,
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// push appends m. When the backlog is full the oldest message is evicted
// and returned.
func (b *backlog) push(m Message) (evicted Message, dropped bool) {
	b.mu.Lock()
	if b.q.Length() >= b.limit {
		evicted, dropped = b.q.Remove().(Message), true
	}
	b.q.Add(m)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
	return evicted, dropped
}

func (b *backlog) pop() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.q.Length() == 0 {
		return Message{}, false
	}
	return b.q.Remove().(Message), true
}

func (b *backlog) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.q.Length()
}

// run delivers messages until close, then drains what is left.
func (b *backlog) run(deliver func(Message)) {
	defer close(b.done)
	for {
		for {
			m, ok := b.pop()
			if !ok {
				break
			}
			deliver(m)
		}
		select {
		case <-b.wake:
		case <-b.stop:
			for m, ok := b.pop(); ok; m, ok = b.pop() {
				deliver(m)
			}
			return
		}
	}
}

func (b *backlog) close() {
	close(b.stop)
	<-b.done
}

package engine

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
)

// delivery is one step of one run waiting for a worker.
type delivery struct {
	handle  string
	chain   Chain
	index   int
	payload []byte
	attempt int
	bo      backoff.BackOff
}

// queue is an unbounded FIFO. Workers enqueue the next step of a chain
// themselves, so a bounded channel could deadlock a fully busy pool.
type queue struct {
	mu     sync.Mutex
	items  []delivery
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(d delivery) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks until a delivery is available or ctx is done.
func (q *queue) pop(ctx context.Context) (delivery, bool) {
	for {
		if ctx.Err() != nil {
			return delivery{}, false
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			d := q.items[0]
			q.items[0] = delivery{}
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				// Wake another idle worker for the rest.
				q.signal()
			}
			return d, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return delivery{}, false
		case <-q.notify:
		}
	}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

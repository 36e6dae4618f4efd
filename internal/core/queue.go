package core

import (
	"sync"
	"time"
)

// Queue is the unbounded FIFO shared by the transport goroutines, the cron
// scheduler and the core loop. Enqueue never blocks; Dequeue is meant for a
// single consumer. It is the only structure shared across those threads.
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Enqueue(item WorkItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue returns the oldest item, waiting up to timeout for one to arrive.
// The timeout is a cooperative-cancellation point for the consumer, not a
// correctness requirement.
func (q *Queue) Dequeue(timeout time.Duration) (WorkItem, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = WorkItem{}
			q.items = q.items[1:]
			if len(q.items) == 0 {
				q.items = nil
			}
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-deadline.C:
			return WorkItem{}, false
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

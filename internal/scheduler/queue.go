package scheduler

import (
	"sync"
	"time"

	"github.com/mdouchement/logger"
)

// A Queue runs deferred tasks on a single goroutine, one tick after they were deferred.
// Tasks never run concurrently with each other.
type Queue struct {
	log  logger.Logger
	tick time.Duration

	mu      sync.Mutex
	pending []func()
	running sync.Mutex

	shutdown chan struct{}
	finished chan struct{}
}

// NewQueue returns a stopped Queue ticking every tick.
func NewQueue(log logger.Logger, tick time.Duration) *Queue {
	return &Queue{
		log:  log.WithPrefix("[queue]"),
		tick: tick,
	}
}

// Defer schedules fn for the next tick.
func (q *Queue) Defer(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, fn)
}

// Len returns the number of tasks waiting for the next tick.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Advance runs one tick: every task deferred before the call is run in order.
// Tasks deferred by a running task wait for the next tick.
func (q *Queue) Advance() int {
	q.running.Lock()
	defer q.running.Unlock()

	q.mu.Lock()
	tasks := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		q.run(fn)
	}
	return len(tasks)
}

func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf("Task panicked: %v", r)
		}
	}()

	fn()
}

// Start ticks the queue in background until Stop is called.
func (q *Queue) Start() {
	q.shutdown = make(chan struct{})
	q.finished = make(chan struct{})

	go func() {
		defer close(q.finished)

		ticker := time.NewTicker(q.tick)
		defer ticker.Stop()

		for {
			select {
			case <-q.shutdown:
				return
			case <-ticker.C:
				q.Advance()
			}
		}
	}()
	q.log.Infof("Ticking every %s", q.tick)
}

// Stop halts the ticker and runs the remaining tasks.
func (q *Queue) Stop() {
	if q.shutdown == nil {
		return
	}

	close(q.shutdown)
	<-q.finished
	q.shutdown = nil

	q.Advance()
}

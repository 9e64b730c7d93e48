// Package host runs the server's heartbeat: a single tick loop that owns
// session state transitions, and a dispatcher that keeps slow LLM calls off
// that loop.
package host

import (
	"sync"

	"github.com/thereallemon/colonychat/internal/logging"
)

// Dispatcher is a fixed-size worker pool for blocking work, primarily LLM
// completions. Submit never blocks the caller; if every worker is busy and
// the queue is full, the task runs on its own goroutine instead.
type Dispatcher struct {
	tasks chan func()
	wg    sync.WaitGroup
	log   *logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts a pool with the given number of workers.
func NewDispatcher(workers int, log *logging.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		tasks: make(chan func(), workers*4),
		log:   log.Sub("dispatch"),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	d.log.Debug().Int("workers", workers).Msg("dispatcher started")
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.tasks {
		task()
	}
}

// Submit queues a task for a worker. Returns false after Close.
func (d *Dispatcher) Submit(task func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	select {
	case d.tasks <- task:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		d.log.Debug().Msg("dispatch queue full, spilling to goroutine")
		go task()
	}
	return true
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()
	d.wg.Wait()
}

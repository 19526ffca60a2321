// Package pipeline schedules background request processing. Runner exists so
// tests can execute pipelines inline instead of depending on real time.
package pipeline

import "sync"

// Runner executes units of work the submitter does not wait on.
type Runner interface {
	Submit(task func())
}

// PoolRunner fans tasks out to a fixed number of workers. Submit never
// blocks: when the queue is saturated the task runs in its own goroutine
// rather than stalling the caller.
type PoolRunner struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPoolRunner starts workers goroutines draining the task queue.
func NewPoolRunner(workers int) *PoolRunner {
	if workers <= 0 {
		workers = 1
	}
	r := &PoolRunner{tasks: make(chan func(), 256)}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for task := range r.tasks {
				task()
			}
		}()
	}
	return r
}

// Submit enqueues a task for background execution.
func (r *PoolRunner) Submit(task func()) {
	if task == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	select {
	case r.tasks <- task:
		r.mu.Unlock()
	default:
		r.mu.Unlock()
		// Queue saturated; overflow into a dedicated goroutine so request
		// creation stays non-blocking.
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			task()
		}()
	}
}

// Close stops accepting work and waits for in-flight tasks to finish.
func (r *PoolRunner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()
	r.wg.Wait()
}

// SyncRunner executes tasks inline. Tests use it to observe pipeline results
// deterministically.
type SyncRunner struct{}

func (SyncRunner) Submit(task func()) {
	if task != nil {
		task()
	}
}

var (
	_ Runner = (*PoolRunner)(nil)
	_ Runner = SyncRunner{}
)

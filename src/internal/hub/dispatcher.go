package hub

import "sync"

// serialExecutor runs tasks FIFO per key while keeping distinct keys
// concurrent. Instructions for one transfer must apply in arrival order, but
// unrelated transfers must not wait on each other.
type serialExecutor struct {
	mu      sync.Mutex
	queues  map[string][]func()
	running map[string]bool
	wg      sync.WaitGroup
}

func newSerialExecutor() *serialExecutor {
	return &serialExecutor{
		queues:  make(map[string][]func()),
		running: make(map[string]bool),
	}
}

// Submit enqueues the task behind any pending work for the same key and
// returns immediately.
func (e *serialExecutor) Submit(key string, task func()) {
	e.mu.Lock()
	e.queues[key] = append(e.queues[key], task)
	if !e.running[key] {
		e.running[key] = true
		e.wg.Add(1)
		go e.drain(key)
	}
	e.mu.Unlock()
}

func (e *serialExecutor) drain(key string) {
	defer e.wg.Done()
	for {
		e.mu.Lock()
		queue := e.queues[key]
		if len(queue) == 0 {
			delete(e.queues, key)
			delete(e.running, key)
			e.mu.Unlock()
			return
		}
		task := queue[0]
		e.queues[key] = queue[1:]
		e.mu.Unlock()

		task()
	}
}

// Wait blocks until every queue submitted so far has drained.
func (e *serialExecutor) Wait() {
	e.wg.Wait()
}

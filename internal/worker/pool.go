package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of detached background work.
type Task func(ctx context.Context) error

// Pool runs tasks on a fixed set of goroutines with a per-task error
// boundary. Tasks always receive a fresh background context: work handed to
// the pool must not be aborted when the originating request is cancelled.
type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers with a queue of depth pending tasks.
func NewPool(size, depth int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if depth < 0 {
		depth = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		tasks:  make(chan Task, depth),
		logger: logger,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
	return p
}

// Submit enqueues a task, blocking while the queue is full.
// Returns false if the pool has been closed.
func (p *Pool) Submit(t Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.tasks <- t
	return true
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		p.exec(id, t)
	}
}

func (p *Pool) exec(id int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker.task.panic", "worker", id, "panic", r)
		}
	}()
	if err := t(context.Background()); err != nil {
		p.logger.Error("worker.task.failed", "worker", id, "error", err)
	}
}

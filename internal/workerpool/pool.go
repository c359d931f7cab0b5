// Package workerpool provides a bounded goroutine pool for one-shot
// parallel work, like parsing a directory of capture files.
package workerpool

import (
	"runtime/debug"
	"sync"

	"github.com/netriage/netriage/internal/logging"
)

var log = logging.L("workerpool")

// Task is a unit of work submitted to the pool.
type Task func()

// Pool runs tasks on at most maxWorkers goroutines at a time.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New creates a pool allowing maxWorkers concurrent tasks.
func New(maxWorkers int) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	log.Debug("worker pool started", "workers", maxWorkers)
	return &Pool{sem: make(chan struct{}, maxWorkers)}
}

// Submit starts task on a worker, blocking while all workers are busy.
// wg.Add is called here (before the goroutine launches) so a Wait that
// follows the last Submit observes every task.
func (p *Pool) Submit(task Task) {
	p.wg.Add(1)
	p.sem <- struct{}{}
	go p.runTask(task)
}

// Wait blocks until every submitted task has completed. The pool is
// reusable afterwards.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// runTask executes a single task with panic recovery. wg.Done is called
// here to match the wg.Add in Submit.
func (p *Pool) runTask(task Task) {
	defer p.wg.Done()
	defer func() { <-p.sem }()
	defer func() {
		if r := recover(); r != nil {
			log.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	task()
}

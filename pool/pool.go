// Package pool runs CPU-heavy work on a fixed set of worker goroutines.
package pool

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("worker pool is closed")

// PanicError reports a task that panicked on a worker.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker panicked: %v", e.Value)
}

type task struct {
	fn   func()
	done chan error
}

// Pool is a fixed-size set of workers.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers (at least one).
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{tasks: make(chan task)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		t.done <- run(t.fn)
	}
}

func run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}

// Do runs fn on a worker and waits for it. A panic in fn is returned as
// *PanicError instead of crashing the process.
func (p *Pool) Do(fn func()) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	t := task{fn: fn, done: make(chan error, 1)}
	p.tasks <- t
	p.mu.RUnlock()
	return <-t.done
}

// Close stops accepting work and waits for running tasks to finish.
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

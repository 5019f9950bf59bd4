package pool

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrQueueFull  = errors.New("translation queue is full")
	ErrJobTimeout = errors.New("translation job timed out")
	ErrClosed     = errors.New("worker pool is shutting down")
)

// WorkerPool caps how many jobs run at once and how many may wait for a slot.
type WorkerPool struct {
	sem     chan struct{}
	admit   chan struct{}
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(maxWorkers, queueSize int, timeout time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &WorkerPool{
		sem:     make(chan struct{}, maxWorkers),
		admit:   make(chan struct{}, maxWorkers+queueSize),
		timeout: timeout,
	}
}

// Do runs fn once a worker slot is free and blocks until it returns.
// fn receives a context bounded by the job timeout and by ctx.
func (p *WorkerPool) Do(ctx context.Context, fn func(context.Context) error) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	select {
	case p.admit <- struct{}{}:
	default:
		p.mu.RUnlock()
		return ErrQueueFull
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	defer p.wg.Done()
	defer func() { <-p.admit }()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()

	jobCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := fn(jobCtx)
	if err != nil && ctx.Err() == nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrJobTimeout, err)
	}
	return err
}

// Running reports how many jobs hold a worker slot.
func (p *WorkerPool) Running() int {
	return len(p.sem)
}

// Pending reports admitted jobs still waiting for a slot.
func (p *WorkerPool) Pending() int {
	n := len(p.admit) - len(p.sem)
	if n < 0 {
		return 0
	}
	return n
}

// Close stops admitting new jobs and waits for admitted ones to finish.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}


// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/domain"
	"telegram-vpn-shop/internal/infra/metrics"
)

type Task = func(ctx context.Context) error

// Pool is the fulfillment scheduling primitive: webhook handlers submit
// delivery tasks from their request goroutines and return immediately, the
// pool's workers run them on the long-lived side. Submit never blocks; a
// stopped pool or a full queue is reported as an error so the caller can make
// the drop observable instead of silent.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	quit chan struct{}
	n    int

	mu      sync.Mutex
	running bool
	stopped bool

	log *zerolog.Logger
}

func NewPool(workers, depth int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if depth <= 0 {
		depth = workers * 4
	}
	plog := logger.With().Str("component", "FulfillmentPool").Logger()
	return &Pool{
		jobs: make(chan Task, depth),
		quit: make(chan struct{}),
		n:    workers,
		log:  &plog,
	}
}

// Start launches the workers. A pool that has been stopped stays stopped:
// its quit channel is closed, so restarted workers would exit at once and
// Submit would accept tasks nobody runs.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					metrics.SetFulfillmentQueueDepth(len(p.jobs))
					if err := task(ctx); err != nil {
						p.log.Error().Err(err).Int("worker", id).Msg("task failed")
					}
				}
			}
		}(i)
	}
	p.log.Info().Int("workers", p.n).Int("depth", cap(p.jobs)).Msg("started")
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	p.mu.Unlock()

	close(p.quit)
	p.wg.Wait()
}

// Running reports whether workers are consuming the queue.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return domain.ErrInvalidArgument
	}
	if !p.Running() {
		return domain.ErrNotRunning
	}
	select {
	case p.jobs <- task:
		metrics.SetFulfillmentQueueDepth(len(p.jobs))
		return nil
	default:
		return domain.ErrQueueFull
	}
}

package transcode

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("transcode pool closed")

type job struct {
	ctx    context.Context
	input  string
	result chan<- jobResult
}

type jobResult struct {
	output string
	err    error
}

// Pool runs transcodes on a fixed set of worker goroutines so long-running
// conversions are kept off the goroutines that handle messages.
type Pool struct {
	inner  Transcoder
	jobs   chan job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines backed by inner. workers <= 0 means 1.
func NewPool(inner Transcoder, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		inner:  inner,
		jobs:   make(chan job),
		logger: logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}
	logger.Info("transcode pool started", "workers", workers)
	return p
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		out, err := p.inner.Transcode(j.ctx, j.input)
		if err != nil {
			p.logger.Debug("transcode job failed", "worker", id, "input", j.input, "err", err)
		}
		j.result <- jobResult{output: out, err: err}
	}
}

// Transcode hands input to a free worker and waits for the result.
// It returns early with ctx.Err() if ctx ends while waiting for a worker.
func (p *Pool) Transcode(ctx context.Context, input string) (string, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return "", ErrPoolClosed
	}
	result := make(chan jobResult, 1)
	select {
	case p.jobs <- job{ctx: ctx, input: input, result: result}:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return "", ctx.Err()
	}

	r := <-result
	return r.output, r.err
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	e "github.com/gartstein/hr/internal/hr/errors"
	"go.uber.org/zap"
)

// QueueObserver is told the queue depth after every change.
type QueueObserver interface {
	QueueChanged(depth int)
}

// Pool runs jobs on a fixed number of in-process workers.
type Pool struct {
	exec     Executor
	queue    chan Job
	observer QueueObserver
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewPool(exec Executor, workers, queueSize int, observer QueueObserver, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		exec:     exec,
		queue:    make(chan Job, queueSize),
		observer: observer,
		logger:   logger.Named("import_pool"),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Submit(_ context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- job:
		p.observe()
		return nil
	default:
		p.logger.Warn("import queue full, rejecting job", zap.String("job_id", job.ID.String()))
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for the workers. Once ctx is done the
// running jobs are cancelled and jobs still queued are left for the next
// start.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.queue {
		p.observe()
		if p.ctx.Err() != nil {
			p.logger.Info("pool stopping, leaving job queued", zap.String("job_id", job.ID.String()))
			continue
		}
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	logger := p.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("company_id", job.CompanyID.String()),
	)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("import job panicked", zap.Error(fmt.Errorf("%v", r)))
		}
	}()

	_, err := p.exec.Run(p.ctx, job.ID)
	switch {
	case errors.Is(err, e.ErrInterrupted):
		logger.Info("import job interrupted by shutdown, it resumes on the next start")
	case err != nil:
		logger.Error("import job failed", zap.Error(err))
	}
}

func (p *Pool) observe() {
	if p.observer != nil {
		p.observer.QueueChanged(len(p.queue))
	}
}

package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// Job is a unit of CPU-bound work executed by the pool.
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	job  Job
	done func(error)
}

// Pool runs jobs on a fixed number of goroutines so codec work stays bounded
// under upload bursts. Run must not be called after Close.
type Pool struct {
	logger      *zlog.Zerolog
	tasks       chan task
	concurrency int
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func NewPool(concurrency int, logger *zlog.Zerolog) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}

	p := &Pool{
		logger:      logger,
		tasks:       make(chan task, concurrency*2),
		concurrency: concurrency,
	}

	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.processWorker(id)
		}(i)
	}

	logger.Info().Int("concurrency", concurrency).Msg("Worker pool started")
	return p
}

// Run submits jobs and blocks until every one of them has finished.
// errs[i] holds the outcome of jobs[i].
func (p *Pool) Run(ctx context.Context, jobs []Job) []error {
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	wg.Add(len(jobs))

	for i, job := range jobs {
		t := task{
			ctx: ctx,
			job: job,
			done: func(err error) {
				errs[i] = err
				wg.Done()
			},
		}

		select {
		case p.tasks <- t:
		case <-ctx.Done():
			t.done(ctx.Err())
		}
	}

	wg.Wait()
	return errs
}

func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Close stops accepting work and waits for running jobs to finish.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		p.logger.Info().Msg("Worker pool stopped")
	})
}

func (p *Pool) processWorker(id int) {
	for t := range p.tasks {
		if err := t.ctx.Err(); err != nil {
			t.done(err)
			continue
		}

		startTime := time.Now()
		err := p.safeRun(id, t)
		if err != nil {
			p.logger.Debug().Err(err).Int("worker_id", id).Msg("Job failed")
		} else {
			p.logger.Debug().
				Int("worker_id", id).
				Dur("duration", time.Since(startTime)).
				Msg("Job completed")
		}
		t.done(err)
	}
}

func (p *Pool) safeRun(workerID int, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Msg("Panic recovered while running job")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.job(t.ctx)
}

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fintlabs/lending-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

// Worker manages fire-and-forget jobs and scheduled tasks. Repayment
// calculation audits and the overdue scan run through it so read paths never
// block on bookkeeping writes.
type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan Job
	asyncSem chan struct{}
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Job, 100),
		asyncSem: make(chan struct{}, asyncLimit),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool
func (w *Worker) Enqueue(job Job) {
	select {
	case w.queue <- job:
	default:
		logger.Warn("[Worker] Queue full, running job synchronously")
		if err := job(w.ctx); err != nil {
			logger.Error(fmt.Sprintf("[Worker] Job error: %v", err))
		}
	}
}

// EnqueueAsync runs a job in a new goroutine (fire-and-forget), bounded by semaphore
func (w *Worker) EnqueueAsync(job Job) {
	go func() {
		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.wg.Add(1)
		defer w.wg.Done()

		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf("[Worker] Async job panic: %v", r))
			}
		}()

		if err := job(w.ctx); err != nil {
			logger.Error(fmt.Sprintf("[Worker] Async job error: %v", err))
		}
	}()
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			start := time.Now()
			if err := job(w.ctx); err != nil {
				logger.Error(fmt.Sprintf("[Worker %d] Job error: %v", workerID, err))
			} else {
				logger.Info(fmt.Sprintf("[Worker %d] Job completed in %v", workerID, time.Since(start)))
			}
		}
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after
// the interval, not at startup.
func (w *Worker) ScheduleEvery(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runScheduledJob(job)
			}
		}
	}()
}

func (w *Worker) runScheduledJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("[Scheduler] Job panic: %v", r))
		}
	}()
	start := time.Now()
	if err := job(w.ctx); err != nil {
		logger.Error(fmt.Sprintf("[Scheduler] Job error: %v", err))
	} else {
		logger.Info(fmt.Sprintf("[Scheduler] Job completed in %v", time.Since(start)))
	}
}

// Shutdown gracefully stops all workers
func (w *Worker) Shutdown() {
	w.cancel()
	close(w.queue)
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

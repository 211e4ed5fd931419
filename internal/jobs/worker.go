package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/comisiones-api/internal/metrics"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

type namedJob struct {
	name string
	run  Job
}

// Worker runs queued one-off jobs on a fixed pool and recurring jobs on their own tickers
type Worker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	queue   chan namedJob
	size    int
	stats   WorkerStats
	statsMu sync.RWMutex
}

// WorkerStats holds statistics about the worker. CompletedJobs counts every finished
// run; FailedJobs is the subset that returned an error or panicked.
type WorkerStats struct {
	ActiveJobs    int       `json:"active_jobs"`
	CompletedJobs int64     `json:"completed_jobs"`
	FailedJobs    int64     `json:"failed_jobs"`
	QueueLength   int       `json:"queue_length"`
	PoolSize      int       `json:"pool_size"`
	LastRun       time.Time `json:"last_run,omitempty"`
	LastJob       string    `json:"last_job,omitempty"`
}

// NewWorker creates a worker with N queue processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan namedJob, 100),
		size:   numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}
	return w
}

// Enqueue adds a job to the pool. A full queue runs the job on the caller's goroutine.
func (w *Worker) Enqueue(name string, job Job) {
	select {
	case <-w.ctx.Done():
		logger.Warn("Worker stopped, job dropped", "job", name)
	case w.queue <- namedJob{name: name, run: job}:
	default:
		logger.Warn("Worker queue full, running job synchronously", "job", name)
		w.run(name, job)
	}
}

func (w *Worker) process(workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-w.queue:
			if !ok {
				return
			}
			logger.Debug("Worker picked job", "worker", workerID, "job", j.name)
			w.run(j.name, j.run)
		}
	}
}

// ScheduleEvery runs a job at fixed intervals. The first run happens after the interval.
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, false)
}

// ScheduleEveryImmediate runs a job once at startup, then at fixed intervals, so a
// restarted process does not wait a whole interval.
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, true)
}

func (w *Worker) schedule(name string, interval time.Duration, job Job, immediate bool) {
	if interval <= 0 {
		logger.Warn("Job not scheduled: interval must be positive", "job", name, "interval", interval)
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.run(name, job)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run(name, job)
			}
		}
	}()
	logger.Info("Job scheduled", "job", name, "interval", interval.String(), "immediate", immediate)
}

// run executes one job with panic recovery, stats and metrics
func (w *Worker) run(name string, job Job) {
	w.trackJobStart(name)
	start := time.Now()
	result := "ok"
	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			logger.Error("Job panicked", "job", name, "panic", fmt.Sprint(r))
		}
		w.trackJobEnd(result != "ok")
		metrics.JobRuns.WithLabelValues(name, result).Inc()
	}()

	if err := job(w.ctx); err != nil {
		result = "failed"
		logger.Error("Job failed", "job", name, "duration", time.Since(start).String(), "error", err)
		return
	}
	logger.Info("Job completed", "job", name, "duration", time.Since(start).String())
}

// Shutdown cancels running schedules and waits for in-flight jobs
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

// Context returns the worker's context for checking cancellation
func (w *Worker) Context() context.Context {
	return w.ctx
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.PoolSize = w.size
	return stats
}

func (w *Worker) trackJobStart(name string) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
	w.stats.LastJob = name
	w.stats.LastRun = time.Now()
}

func (w *Worker) trackJobEnd(failed bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
	if failed {
		w.stats.FailedJobs++
	}
}

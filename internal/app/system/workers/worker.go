// internal/app/system/workers/worker.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/catalog/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Worker runs a job on a ticker. At most one run is in flight: a tick that
// fires while the previous run is still going is skipped.
type Worker struct {
	job     tasks.Job
	log     *zap.Logger
	timeout time.Duration

	running sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New creates a worker for job.
//
// Parameters:
//   - job: the work and its interval
//   - logger: zap logger for logging
//   - timeout: upper bound of a single run (e.g., 30 minutes)
func New(job tasks.Job, logger *zap.Logger, timeout time.Duration) *Worker {
	return &Worker{
		job:     job,
		log:     logger.With(zap.String("job", job.Name)),
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
}

// NewPostponement creates the worker of the scheduled year postponement.
func NewPostponement(job tasks.Job, logger *zap.Logger) *Worker {
	return New(job, logger, 30*time.Minute)
}

// Start begins the background loop.
func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("worker started", zap.Duration("interval", w.job.Interval))
}

// Stop signals the worker to stop, cancels a run in flight and waits for it
// to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// Trigger runs the job now unless a run is already in flight. It reports
// whether the job ran.
func (w *Worker) Trigger(ctx context.Context) (bool, error) {
	if !w.running.TryLock() {
		w.log.Debug("run skipped, previous run still in flight")
		return false, nil
	}
	defer w.running.Unlock()

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	start := time.Now()
	err := w.job.Run(ctx)
	if err != nil {
		w.log.Error("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return true, err
	}
	w.log.Debug("job finished", zap.Duration("elapsed", time.Since(start)))
	return true, nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				_, _ = w.Trigger(ctx)
			}()
		}
	}
}

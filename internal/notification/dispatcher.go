package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/lab-borrowing/internal"
	"github.com/sethvargo/go-retry"
)

type EmailJob struct {
	Kind    Type
	Message Message
}

type Worker struct {
	ID         int
	WorkerPool chan chan EmailJob
	JobChannel chan EmailJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan EmailJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan EmailJob),
		Logger:     logger,
	}
}

// Start runs the worker until quit is closed or ctx is cancelled. quit is
// closed only once the queue has been drained.
func (w *Worker) Start(ctx context.Context, quit <-chan struct{}, wg *sync.WaitGroup, processFunc func(EmailJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-quit:
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			case <-ctx.Done():
				w.Logger.Debug("mail worker cancelled", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("mail worker processing job", "worker_id", w.ID, "kind", job.Kind)
				processFunc(job)
			case <-quit:
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			case <-ctx.Done():
				w.Logger.Debug("mail worker cancelled", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Dispatcher sends mail from a fixed pool of workers. Send failures are
// retried with exponential backoff and then dropped with a log line.
// Shutdown delivers what is already queued before the workers stop.
type Dispatcher struct {
	mailer       Mailer
	logger       *slog.Logger
	maxAttempts  uint64
	retryBase    time.Duration
	sendTimeout  time.Duration
	drainTimeout time.Duration

	mu         sync.RWMutex
	stopped    bool
	jobQueue   chan EmailJob
	workerPool chan chan EmailJob
	quit       chan struct{}
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	stopOnce   sync.Once
}

func NewDispatcher(mailer Mailer, cfg internal.NotificationConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 500 * time.Millisecond
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	drainTimeout := cfg.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}

	d := &Dispatcher{
		mailer:       mailer,
		logger:       logger,
		maxAttempts:  maxAttempts,
		retryBase:    retryBase,
		sendTimeout:  sendTimeout,
		drainTimeout: drainTimeout,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan EmailJob, queueSize),
		workerPool: make(chan chan EmailJob, maxWorkers),
		quit:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, d.quit, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("mail dispatcher started",
			"workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

// dispatch feeds queued jobs to idle workers until the queue is closed and
// empty, then releases the workers.
func (d *Dispatcher) dispatch() {
	defer d.wg.Done()
	defer close(d.quit)

	for job := range d.jobQueue {
		select {
		case jobChannel := <-d.workerPool:
			select {
			case jobChannel <- job:
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Warn("mail dispatcher cancelled", "dropped_jobs", len(d.jobQueue)+1)
			return
		}
	}
}

// Enqueue hands a job to the pool without blocking. A full queue is an error
// for the caller to log; it is never shown to the end user.
func (d *Dispatcher) Enqueue(job EmailJob) error {
	if len(job.Message.To) == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return fmt.Errorf("mail dispatcher is stopped")
	}

	select {
	case d.jobQueue <- job:
		return nil
	default:
		d.logger.Warn("mail queue full, dropping job", "kind", job.Kind, "queue_capacity", cap(d.jobQueue))
		return fmt.Errorf("mail queue full")
	}
}

func (d *Dispatcher) process(job EmailJob) {
	backoff := retry.WithMaxRetries(d.maxAttempts-1, retry.NewExponential(d.retryBase))

	attempt := 0
	err := retry.Do(d.ctx, backoff, func(ctx context.Context) error {
		attempt++
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()

		if err := d.mailer.Send(sendCtx, job.Message); err != nil {
			d.logger.Warn("mail send failed", "kind", job.Kind, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("mail delivery abandoned", "kind", job.Kind, "attempts", attempt, "error", err)
		return
	}
	d.logger.Info("mail sent", "kind", job.Kind, "recipients", len(job.Message.To), "attempts", attempt)
}

// Shutdown stops accepting jobs, waits for the queue to drain and for
// in-flight sends to finish, and only then cancels. Sends still running
// after the drain timeout are cancelled. Safe to call more than once.
func (d *Dispatcher) Shutdown() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down mail dispatcher", "pending_jobs", len(d.jobQueue))

		d.mu.Lock()
		d.stopped = true
		close(d.jobQueue)
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		timer := time.NewTimer(d.drainTimeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			d.logger.Warn("mail queue drain timed out", "pending_jobs", len(d.jobQueue))
			d.cancel()
			<-done
		}
		d.cancel()
		d.logger.Info("mail dispatcher shutdown complete")
	})
}

// Package writequeue runs document writes in the background so request
// handlers never wait on persistence. Jobs are retried with exponential
// backoff and jitter; a job that exhausts its attempts is handed to the
// failure callback.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers     = 4
	defaultCapacity    = 256
	defaultMaxAttempts = 5
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxBackoff  = 30 * time.Second
	defaultJobTimeout  = 15 * time.Second
)

var (
	ErrQueueFull = errors.New("write queue is full")
	ErrClosed    = errors.New("write queue is closed")
)

// Job is a unit of background work.
type Job struct {
	// Key identifies the written resource, e.g. the document path. Used by Pending.
	Key string
	// Kind labels metrics and logs, e.g. "order".
	Kind string
	// Fields are attached to log lines for this job.
	Fields map[string]any
	Run    func(ctx context.Context) error
	// OnFailure, when set, runs before the queue-wide handler once the job
	// will not be retried again.
	OnFailure func(ctx context.Context, err error)
}

// FailureHandler is called once for a job that will not be retried again.
type FailureHandler func(ctx context.Context, job Job, err error)

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Options configures a Queue. Zero values fall back to defaults.
type Options struct {
	Workers     int
	Capacity    int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      time.Duration
	JobTimeout  time.Duration
	Logger      *logger.Logger
	Metrics     *metrics.WriteQueueMetrics
	OnFailure   FailureHandler
}

// OptionsFromConfig maps environment configuration onto Options.
func OptionsFromConfig(cfg config.WriteQueueConfig) Options {
	return Options{
		Workers:     cfg.Workers,
		Capacity:    cfg.Capacity,
		MaxAttempts: cfg.MaxAttempts,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
		Jitter:      cfg.Jitter,
	}
}

// Queue is a bounded worker pool for background writes.
type Queue struct {
	opts Options
	logg *logger.Logger
	jobs chan Job

	mu        sync.Mutex
	closed    bool
	started   bool
	pending   map[string]int
	onFailure FailureHandler

	group  *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxBackoff < opts.BaseBackoff {
		opts.MaxBackoff = opts.BaseBackoff
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Queue{
		opts:      opts,
		logg:      logg,
		jobs:      make(chan Job, opts.Capacity),
		pending:   map[string]int{},
		onFailure: opts.OnFailure,
		done:      make(chan struct{}),
	}
}

// OnFailure sets the terminal failure callback. It must be called before Start.
func (q *Queue) OnFailure(fn FailureHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailure = fn
}

// Start launches the workers. The queue keeps running until Shutdown; ctx only
// carries values for logging.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	group, gctx := errgroup.WithContext(workerCtx)
	q.group = group
	for i := 0; i < q.opts.Workers; i++ {
		worker := i
		group.Go(func() error {
			return q.work(q.logg.WithField(gctx, "worker", worker))
		})
	}
	go func() {
		_ = group.Wait()
		close(q.done)
	}()
	q.logg.Info(q.logg.WithField(ctx, "workers", q.opts.Workers), "write queue started")
}

// Enqueue hands job to the workers without blocking. Only backpressure and
// shutdown are reported; the job's own outcome never reaches the caller.
func (q *Queue) Enqueue(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("write job %q has no run func", job.Key)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
	default:
		return ErrQueueFull
	}
	if job.Key != "" {
		q.pending[job.Key]++
	}
	q.opts.Metrics.IncEnqueued(job.Kind)
	return nil
}

// Pending reports whether a job for key is queued or running.
func (q *Queue) Pending(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[key] > 0
}

// Shutdown stops accepting jobs and waits for queued jobs to finish. When ctx
// expires first, in-flight retries are abandoned and reported as failures.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	started := q.started
	q.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-q.done:
		return q.group.Wait()
	case <-ctx.Done():
		q.cancel()
		<-q.done
		return multierr.Combine(
			fmt.Errorf("write queue drain: %w", ctx.Err()),
			q.group.Wait(),
		)
	}
}

func (q *Queue) work(ctx context.Context) error {
	for job := range q.jobs {
		q.process(ctx, job)
	}
	return nil
}

func (q *Queue) process(ctx context.Context, job Job) {
	ctx = q.logg.WithFields(ctx, job.Fields)
	ctx = q.logg.WithFields(ctx, map[string]any{"job_key": job.Key, "job_kind": job.Kind})
	start := time.Now()
	defer q.release(job.Key)

	var (
		err     error
		backoff time.Duration
	)
	for attempt := 1; attempt <= q.opts.MaxAttempts; attempt++ {
		err = q.runOnce(ctx, job)
		if err == nil {
			q.opts.Metrics.ObserveSuccess(job.Kind, time.Since(start))
			if attempt > 1 {
				q.logg.Info(q.logg.WithField(ctx, "attempts", attempt), "write job succeeded after retry")
			}
			return
		}
		if IsPermanent(err) || attempt == q.opts.MaxAttempts {
			break
		}

		q.opts.Metrics.IncRetried(job.Kind)
		backoff = nextBackoff(backoff, q.opts.BaseBackoff, q.opts.MaxBackoff)
		wait := withJitter(backoff, q.opts.Jitter)
		q.logg.Warn(q.logg.WithFields(ctx, map[string]any{
			"attempt":  attempt,
			"retry_in": wait.String(),
			"error":    err.Error(),
		}), "write job failed; retrying")
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			err = multierr.Append(err, sleepErr)
			break
		}
	}

	q.opts.Metrics.ObserveFailure(job.Kind, time.Since(start))
	q.logg.Error(ctx, "write job failed permanently", err)

	failCtx := context.WithoutCancel(ctx)
	if job.OnFailure != nil {
		job.OnFailure(failCtx, err)
	}
	q.mu.Lock()
	handler := q.onFailure
	q.mu.Unlock()
	if handler != nil {
		handler(failCtx, job, err)
	}
}

func (q *Queue) runOnce(ctx context.Context, job Job) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, q.opts.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("write job panicked: %v", r))
		}
	}()
	return job.Run(runCtx)
}

func (q *Queue) release(key string) {
	if key == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[key] <= 1 {
		delete(q.pending, key)
		return
	}
	q.pending[key]--
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		return base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d, window time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if window <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(int64(window)))
}

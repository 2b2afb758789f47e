package pipeline

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Start when the queue has no free slot.
	ErrQueueFull = errors.New("pipeline queue is full")
	// ErrAlreadyRunning is returned by Start when the story is queued or running.
	ErrAlreadyRunning = errors.New("story is already being processed")
	// ErrRunnerClosed is returned by Start after Shutdown.
	ErrRunnerClosed = errors.New("runner is shut down")
)

// Executor runs one story to completion.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Run, error)
}

type job struct {
	req    Request
	ctx    context.Context
	cancel context.CancelFunc
}

// Runner executes pipeline runs in the background with a bounded queue and
// a fixed number of concurrent runs. At most one run per story id is queued
// or running at any time.
type Runner struct {
	exec  Executor
	queue chan job
	sem   chan struct{}

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	closed   bool

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
	done chan struct{}
	log  *zap.Logger
}

// NewRunner starts a runner with concurrency workers and room for
// queueSize waiting runs.
func NewRunner(exec Executor, concurrency, queueSize int, log *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if log == nil {
		log = zap.NewNop()
	}

	base, stop := context.WithCancel(context.Background())
	r := &Runner{
		exec:     exec,
		queue:    make(chan job, queueSize),
		sem:      make(chan struct{}, concurrency),
		inflight: make(map[string]context.CancelFunc),
		base:     base,
		stop:     stop,
		done:     make(chan struct{}),
		log:      log.Named("runner"),
	}

	// Observed only when scraped.
	meter := otel.Meter("storyweaver-runner")
	_, err := meter.Int64ObservableGauge("storyweaver.runner.inflight",
		metric.WithDescription("Stories queued or running"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(r.InFlight()))
			return nil
		}),
	)
	if err != nil {
		r.log.Warn("failed to register inflight gauge", zap.Error(err))
	}

	go r.dispatch()
	return r
}

// Start queues req and returns immediately.
func (r *Runner) Start(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRunnerClosed
	}
	if _, ok := r.inflight[req.StoryID]; ok {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(r.base)
	select {
	case r.queue <- job{req: req, ctx: ctx, cancel: cancel}:
		r.inflight[req.StoryID] = cancel
		r.log.Debug("run queued", zap.String("story_id", req.StoryID))
		return nil
	default:
		cancel()
		return ErrQueueFull
	}
}

// Cancel cancels the queued or running run for id. The run ends failed with
// reason "canceled". It reports whether a run was found.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.inflight[id]
	r.mu.Unlock()

	if ok {
		cancel()
		r.log.Info("run canceled", zap.String("story_id", id))
	}
	return ok
}

// Running reports whether id is queued or running.
func (r *Runner) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[id]
	return ok
}

// InFlight returns the number of queued and running runs.
func (r *Runner) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Done returns a channel that is closed when every run has finished after
// Shutdown.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Shutdown stops accepting runs and waits for queued and running ones to
// finish. When ctx expires first, the remaining runs are canceled and
// ctx's error is returned.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.log.Warn("shutdown timed out, canceling runs", zap.Int("inflight", r.InFlight()))
		r.stop()
		return ctx.Err()
	}
}

func (r *Runner) dispatch() {
	for j := range r.queue {
		// Acquire semaphore slot
		r.sem <- struct{}{}

		r.wg.Add(1)
		go func(j job) {
			defer r.wg.Done()
			defer func() { <-r.sem }()
			r.process(j)
		}(j)
	}

	r.wg.Wait()
	r.stop()
	close(r.done)
}

func (r *Runner) process(j job) {
	defer r.release(j.req.StoryID)
	defer j.cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("run panicked", zap.String("story_id", j.req.StoryID), zap.Any("panic", rec))
		}
	}()

	if _, err := r.exec.Execute(j.ctx, j.req); err != nil {
		r.log.Warn("run ended with error", zap.String("story_id", j.req.StoryID), zap.Error(err))
	}
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

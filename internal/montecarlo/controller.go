package montecarlo

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"combat-mc/internal/engine"
	"combat-mc/internal/logging"
)

// Controller sequences the trials of one batch at a time. Each Controller owns its own batch
// state, so independent controllers never interfere.
type Controller struct {
	exec       *Executor
	yielder    Yielder
	trialPause time.Duration
	metrics    *Metrics

	mu              sync.Mutex
	running         bool
	cancelRequested bool
	current         *Job
	results         []TrialResult
}

// Option configures a Controller.
type Option func(*Controller)

// WithYielder replaces the suspension primitive used between chunks and between trials.
func WithYielder(y Yielder) Option { return func(c *Controller) { c.yielder = y } }

// WithTrialPause sets the pause between trials. Zero still yields the scheduler.
func WithTrialPause(d time.Duration) Option { return func(c *Controller) { c.trialPause = d } }

// WithMetrics records batch and trial metrics.
func WithMetrics(m *Metrics) Option { return func(c *Controller) { c.metrics = m } }

// WithEventHook observes every engagement event as it is emitted.
func WithEventHook(fn func(trial int, ev EngagementEvent)) Option {
	return func(c *Controller) { c.exec.OnEvent = fn }
}

// NewController returns an idle controller building trial instances with b.
func NewController(b engine.Builder, opts ...Option) *Controller {
	c := &Controller{
		exec:       &Executor{Builder: b},
		yielder:    SchedulerYielder{},
		trialPause: DefaultTrialPause,
	}
	for _, o := range opts {
		o(c)
	}
	c.exec.Yielder = c.yielder
	c.exec.Metrics = c.metrics
	return c
}

// Job is the handle of one started batch.
type Job struct {
	id    string
	total int
	done  chan struct{}

	mu        sync.Mutex
	completed int
	results   []TrialResult
	err       error
}

func newJob(total int) *Job {
	return &Job{id: uuid.NewString(), total: total, done: make(chan struct{})}
}

// ID returns the unique batch identifier.
func (j *Job) ID() string { return j.id }

// Done is closed once the batch completed, was cancelled or was rejected.
func (j *Job) Done() <-chan struct{} { return j.done }

// Progress returns the number of completed trials and the batch size.
func (j *Job) Progress() (completed, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed, j.total
}

// Wait blocks until the batch finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) ([]TrialResult, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.results, j.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (j *Job) advance(n int) {
	j.mu.Lock()
	j.completed = n
	j.mu.Unlock()
}

func (j *Job) finish(results []TrialResult, err error) {
	j.mu.Lock()
	j.results, j.err = results, err
	j.mu.Unlock()
	close(j.done)
}

// Start begins a batch and returns its job. When a batch is already running the returned job
// has already failed with ErrBatchRunning and the running batch is left alone. Trials run on
// their own goroutine; ctx carries the logger and, when cancelled, stops the batch like Cancel.
func (c *Controller) Start(ctx context.Context, cfg BatchConfig) *Job {
	cfg = cfg.withDefaults()
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		j := newJob(cfg.NumRuns)
		j.finish(nil, ErrBatchRunning)
		c.metrics.batchFinished("rejected")
		return j
	}
	j := newJob(cfg.NumRuns)
	c.running = true
	c.cancelRequested = false
	c.current = j
	c.mu.Unlock()

	c.metrics.batchStarted()
	go c.run(ctx, j, cfg)
	return j
}

func (c *Controller) run(ctx context.Context, j *Job, cfg BatchConfig) {
	logger := logging.FromContext(ctx).With("batch", j.id)
	logger.Info("batch started", "runs", cfg.NumRuns, "base_seed", cfg.BaseSeed, "max_sim_time", cfg.MaxSimTime)
	started := time.Now()
	if cfg.OnStart != nil {
		cfg.OnStart(j.id, started, cfg.NumRuns)
	}

	results := make([]TrialResult, 0, cfg.NumRuns)
	for i := 0; i < cfg.NumRuns; i++ {
		if c.cancelled() || ctx.Err() != nil {
			c.abort(j, logger, i, cfg.NumRuns)
			return
		}

		res, err := c.exec.RunTrial(logging.NewContext(ctx, logger), cfg.Scenario, TrialSpec{
			Index:     i,
			Seed:      Seed(cfg.BaseSeed, i),
			Horizon:   cfg.MaxSimTime,
			StepSize:  cfg.StepSize,
			ChunkSize: cfg.ChunkSize,
		})
		if err != nil {
			// The interrupted trial is incomplete and is dropped with the rest of the batch.
			c.abort(j, logger, i, cfg.NumRuns)
			return
		}
		results = append(results, res)
		completed := len(results)
		j.advance(completed)
		pct := int(math.Round(100 * float64(completed) / float64(cfg.NumRuns)))
		c.metrics.batchProgress(pct)
		if cfg.OnTrial != nil {
			cfg.OnTrial(res)
		}
		if cfg.OnProgress != nil {
			cfg.OnProgress(completed, cfg.NumRuns, pct)
		}

		if completed < cfg.NumRuns {
			// Errors only come from ctx, which the next iteration observes.
			_ = c.yielder.Yield(ctx, c.trialPause)
		}
	}

	if cfg.OnComplete != nil {
		cfg.OnComplete(results)
	}
	c.finish(j, results)
	c.metrics.batchFinished("completed")
	logger.Info("batch completed", "runs", len(results), "elapsed", time.Since(started))
	j.finish(results, nil)
}

// abort ends a cancelled batch after completed trials without publishing any results.
func (c *Controller) abort(j *Job, logger *slog.Logger, completed, total int) {
	c.finish(j, nil)
	c.metrics.batchFinished("cancelled")
	logger.Info("batch cancelled", "completed", completed, "total", total)
	j.finish(nil, &CancellationError{Completed: completed, Total: total})
}

// finish returns the controller to idle, keeping results when they are non-nil.
func (c *Controller) finish(j *Job, results []TrialResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if results != nil {
		c.results = results
	}
	c.running = false
	c.cancelRequested = false
	if c.current == j {
		c.current = nil
	}
}

func (c *Controller) cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRequested
}

// Cancel asks the running batch to stop before its next trial. It is a no-op when idle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.cancelRequested = true
	}
}

// IsRunning reports whether a batch is in progress.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Current returns the running job, or nil.
func (c *Controller) Current() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Results returns the results of the most recent completed batch.
func (c *Controller) Results() []TrialResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TrialResult{}, c.results...)
}

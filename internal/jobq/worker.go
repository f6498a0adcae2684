package jobq

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zcomx/zcomix/internal/platform/constants"
)

// Pool is the fixed-size worker pool. Each worker claims one job at a
// time and runs it to completion before polling again.
type Pool struct {
	repo         Repository
	registry     *Registry
	size         int
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewPool constructs a [Pool] of the given size.
func NewPool(repo Repository, registry *Registry, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		repo:         repo,
		registry:     registry,
		size:         size,
		pollInterval: constants.JobPollInterval,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled. In-flight jobs finish before their
// worker exits; queued work simply waits for the next process.
func (pool *Pool) Run(ctx context.Context) error {
	pool.logger.Info("worker_pool_started", slog.Int("workers", pool.size))

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < pool.size; i++ {
		worker := i
		group.Go(func() error {
			return pool.loop(ctx, worker)
		})
	}
	return group.Wait()
}

func (pool *Pool) loop(ctx context.Context, worker int) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		j, err := pool.repo.Dequeue(ctx, time.Now().UTC())
		if err != nil {
			pool.logger.Error("dequeue_failed",
				slog.Int("worker", worker),
				slog.String("error", err.Error()),
			)
			pool.sleep(ctx)
			continue
		}
		if j == nil {
			pool.sleep(ctx)
			continue
		}

		pool.runJob(ctx, j)
	}
}

// runJob executes one claimed job. Success deletes the row; failure
// disables it so an operator can inspect and re-queue by hand.
func (pool *Pool) runJob(ctx context.Context, j *Job) {
	cmd, err := pool.registry.get(j.Command)
	if err != nil {
		pool.logger.Error("job_unknown_command",
			slog.Int64("job_id", j.ID),
			slog.String("command", j.Command),
		)
		pool.fail(ctx, j)
		return
	}

	if cmd.descriptor.Ignorable != nil && cmd.descriptor.Ignorable(ctx, j.Args) {
		pool.logger.Info("job_ignored",
			slog.Int64("job_id", j.ID),
			slog.String("command", j.Command),
		)
		pool.finish(ctx, j)
		return
	}

	started := time.Now()
	if err := cmd.run(ctx, j.Args); err != nil {
		pool.logger.Error("job_failed",
			slog.Int64("job_id", j.ID),
			slog.String("command", j.Command),
			slog.Any("args", j.Args),
			slog.Int("attempts", j.Attempts),
			slog.String("error", err.Error()),
		)
		pool.fail(ctx, j)
		return
	}

	pool.logger.Info("job_done",
		slog.Int64("job_id", j.ID),
		slog.String("command", j.Command),
		slog.Duration("elapsed", time.Since(started)),
	)
	pool.finish(ctx, j)
}

// RunCommand executes one command inline, bypassing the table. It backs
// the one-shot CLI mode.
func (pool *Pool) RunCommand(ctx context.Context, command string, args []string) error {
	cmd, err := pool.registry.get(command)
	if err != nil {
		return err
	}
	return cmd.run(ctx, args)
}

func (pool *Pool) finish(ctx context.Context, j *Job) {
	// Cleanup must survive a cancelled run context.
	if err := pool.repo.Delete(context.WithoutCancel(ctx), j.ID); err != nil {
		pool.logger.Error("job_delete_failed",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (pool *Pool) fail(ctx context.Context, j *Job) {
	if err := pool.repo.Disable(context.WithoutCancel(ctx), j.ID); err != nil {
		pool.logger.Error("job_disable_failed",
			slog.Int64("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (pool *Pool) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(pool.pollInterval):
	}
}

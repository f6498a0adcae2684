package jobq

import (
	"context"
	"log/slog"
	"time"
)

// Queue is the enqueue facade handed to domain services. It applies the
// registered descriptor: priority and, for fingerprinted commands, the
// at-most-one-active-per-fingerprint guarantee.
type Queue struct {
	repo     Repository
	registry *Registry
	logger   *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewQueue constructs a [Queue].
func NewQueue(repo Repository, registry *Registry, logger *slog.Logger) *Queue {
	return &Queue{repo: repo, registry: registry, logger: logger, now: time.Now}
}

/*
Enqueue schedules a job for the worker pool.

Description: Unknown commands are refused, keeping the command set
closed. For fingerprinted commands an already queued or in-progress job
with the same logical arguments absorbs the request; the duplicate is
dropped and nothing is inserted.

Parameters:
  - command: string (One of the registered command names)
  - args: []string (Positional arguments, plus optional requeue flags)
*/
func (queue *Queue) Enqueue(ctx context.Context, command string, args ...string) error {
	descriptor, err := queue.registry.Descriptor(command)
	if err != nil {
		return err
	}

	if descriptor.Fingerprinted {
		exists, err := queue.repo.HasActive(ctx, command, fingerprintArgs(args))
		if err != nil {
			return err
		}
		if exists {
			queue.logger.Debug("job_deduped",
				slog.String("command", command),
				slog.String("fingerprint", Fingerprint(command, args)),
			)
			return nil
		}
	}

	j := &Job{
		Command:    command,
		Args:       args,
		Priority:   descriptor.Priority,
		StartAfter: queue.now().UTC(),
	}
	if err := queue.repo.Insert(ctx, j); err != nil {
		return err
	}

	queue.logger.Debug("job_enqueued",
		slog.Int64("job_id", j.ID),
		slog.String("command", command),
	)
	return nil
}

// EnqueueAt schedules a job that must not start before the given time.
func (queue *Queue) EnqueueAt(ctx context.Context, startAfter time.Time, command string, args ...string) error {
	descriptor, err := queue.registry.Descriptor(command)
	if err != nil {
		return err
	}

	j := &Job{
		Command:    command,
		Args:       args,
		Priority:   descriptor.Priority,
		StartAfter: startAfter.UTC(),
	}
	return queue.repo.Insert(ctx, j)
}

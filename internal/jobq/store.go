package jobq

import (
	"context"
	"time"
)

// Repository is the data-access boundary for the job table.
type Repository interface {
	Insert(ctx context.Context, j *Job) error

	// HasActive reports whether a non-disabled job with the same logical
	// fingerprint already exists.
	HasActive(ctx context.Context, command string, args []string) (bool, error)

	// Dequeue atomically claims the next runnable job: status queued,
	// start_after due, highest priority first, then insertion order. It
	// returns nil when the queue is empty.
	Dequeue(ctx context.Context, now time.Time) (*Job, error)

	Delete(ctx context.Context, id int64) error
	Disable(ctx context.Context, id int64) error

	// List returns jobs for operator inspection, newest first.
	List(ctx context.Context, limit int) ([]*Job, error)
}

package jobq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zcomx/zcomix/internal/platform/database/schema"
	"github.com/zcomx/zcomix/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func jobColumns() string {
	t := schema.Job
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		t.ID, t.Command, t.Args, t.Priority, t.Status, t.StartAfter,
		t.Attempts, t.CreatedAt, t.UpdatedAt)
}

func scanJob(row pgx.Row) (*Job, error) {
	j := &Job{}
	err := row.Scan(
		&j.ID, &j.Command, &j.Args, &j.Priority, &j.Status, &j.StartAfter,
		&j.Attempts, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (repository *PostgresRepository) Insert(ctx context.Context, j *Job) error {
	t := schema.Job
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s, %s, %s
	`,
		t.Table, t.Command, t.Args, t.Priority, t.Status, t.StartAfter,
		t.ID, t.CreatedAt, t.UpdatedAt,
	)

	err := repository.db.QueryRow(ctx, query,
		j.Command, j.Args, j.Priority, StatusQueued, j.StartAfter,
	).Scan(&j.ID, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "insert_job")
	}

	j.Status = StatusQueued
	return nil
}

// HasActive reports whether a queued or in-progress job for command shares
// the fingerprint of args (already stripped by the caller). Stored rows may
// carry requeue flags, so their args are stripped before comparing rather
// than matched raw in SQL.
func (repository *PostgresRepository) HasActive(ctx context.Context, command string, args []string) (bool, error) {
	t := schema.Job
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s != $2`,
		t.Args, t.Table, t.Command, t.Status)

	rows, err := repository.db.Query(ctx, query, command, StatusDisabled)
	if err != nil {
		return false, dberr.Wrap(err, "job_has_active")
	}
	defer rows.Close()

	for rows.Next() {
		var stored []string
		if err := rows.Scan(&stored); err != nil {
			return false, dberr.Wrap(err, "job_has_active")
		}
		if matchesFingerprint(stored, args) {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (repository *PostgresRepository) Dequeue(ctx context.Context, now time.Time) (*Job, error) {
	t := schema.Job
	// SKIP LOCKED lets concurrent workers claim disjoint jobs without
	// serializing on the head of the queue.
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = %s + 1, %s = now()
		WHERE %s = (
			SELECT %s FROM %s
			WHERE %s = $2 AND %s <= $3
			ORDER BY %s DESC, %s
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING %s
	`,
		t.Table,
		t.Status, t.Attempts, t.Attempts, t.UpdatedAt,
		t.ID,
		t.ID, t.Table,
		t.Status, t.StartAfter,
		t.Priority, t.ID,
		jobColumns(),
	)

	j, err := scanJob(repository.db.QueryRow(ctx, query, StatusInProgress, StatusQueued, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dberr.Wrap(err, "dequeue_job")
	}
	return j, nil
}

func (repository *PostgresRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Job.Table, schema.Job.ID)

	if _, err := repository.db.Exec(ctx, query, id); err != nil {
		return dberr.Wrap(err, "delete_job")
	}
	return nil
}

func (repository *PostgresRepository) Disable(ctx context.Context, id int64) error {
	t := schema.Job
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
		t.Table, t.Status, t.UpdatedAt, t.ID)

	if _, err := repository.db.Exec(ctx, query, StatusDisabled, id); err != nil {
		return dberr.Wrap(err, "disable_job")
	}
	return nil
}

func (repository *PostgresRepository) List(ctx context.Context, limit int) ([]*Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s DESC LIMIT $1`,
		jobColumns(), schema.Job.Table, schema.Job.ID)

	rows, err := repository.db.Query(ctx, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "list_jobs")
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "list_jobs")
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

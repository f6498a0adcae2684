package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/internal/platform/constants"
)

// CreatorMarker flags a creator's torrent stale after content changes.
type CreatorMarker interface {
	MarkRebuildTorrent(ctx context.Context, id int64, rebuild bool) error
}

// ActivityRecorder records the completed event when a book releases.
type ActivityRecorder interface {
	Completed(ctx context.Context, bookID, pageID int64) error
}

// Enqueuer schedules background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, command string, args ...string) error
}

// Driver walks a book through the release pipeline.
//
// The pipeline is cooperative and re-entrant: each release_book job run
// inspects the current state, performs the one outstanding step, and
// re-queues itself up to a bounded maximum. Every step is idempotent, so
// a job that dies mid-way is simply re-done by the next run.
type Driver struct {
	books       book.Repository
	pages       book.PageRepository
	gate        *Gate
	creators    CreatorMarker
	activity    ActivityRecorder
	jobs        Enqueuer
	archiveRoot string
	logger      *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewDriver constructs a [Driver].
func NewDriver(
	books book.Repository,
	pages book.PageRepository,
	gate *Gate,
	creators CreatorMarker,
	activity ActivityRecorder,
	jobs Enqueuer,
	archiveRoot string,
	logger *slog.Logger,
) *Driver {
	return &Driver{
		books:       books,
		pages:       pages,
		gate:        gate,
		creators:    creators,
		activity:    activity,
		jobs:        jobs,
		archiveRoot: archiveRoot,
		logger:      logger,
		now:         time.Now,
	}
}

/*
RequestRelease begins the transition from ongoing to released.

Description: The gate is evaluated eagerly so the caller sees every
triggered barrier at once. When the gate passes, the releasing flag is
set atomically and a release_book job is queued; the heavy work happens
on the worker pool.

Returns:
  - []Barrier: Triggered barriers; non-empty means the transition was
    refused and no job was queued
  - error: Conflict when a release is already in flight
*/
func (driver *Driver) RequestRelease(ctx context.Context, bookID int64) ([]Barrier, error) {
	b, err := driver.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if b.Released() {
		return nil, apperr.Conflict("Book is already released")
	}

	barriers, err := driver.gate.Evaluate(ctx, b, Eager)
	if err != nil {
		return nil, err
	}
	if len(barriers) > 0 {
		return barriers, nil
	}

	ok, err := driver.books.BeginReleasing(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("A release is already in progress")
	}

	if err := driver.enqueueStep(ctx, bookID, 0); err != nil {
		// Leave no stranded flag behind a failed enqueue.
		_ = driver.books.ClearReleasing(ctx, bookID)
		return nil, err
	}

	driver.logger.Info("release_requested", slog.Int64("book_id", bookID))
	return nil, nil
}

// RequestUnrelease queues the reverse transition for a released book.
func (driver *Driver) RequestUnrelease(ctx context.Context, bookID int64) error {
	b, err := driver.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if !b.Released() {
		return apperr.Conflict("Book is not released")
	}

	if err := driver.jobs.Enqueue(ctx, "release_book", strconv.FormatInt(bookID, 10), "--reverse"); err != nil {
		return err
	}

	driver.logger.Info("unrelease_requested", slog.Int64("book_id", bookID))
	return nil
}

/*
Step performs the one outstanding release step for a book.

Description: This is the release_book job body. The sequence is

	gate re-check -> optimize derivatives -> build archive -> build
	torrent -> stamp release_date

with a re-queue between steps whose artifacts are produced by other
jobs. A failing gate check disables the job and clears the releasing
flag; the book stays ongoing.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - requeues: int (How many times this job has re-queued itself)

Returns:
  - error: *BarrierError on a refused transition; other errors are
    transient and retried by re-queue
*/
func (driver *Driver) Step(ctx context.Context, bookID int64, requeues int) error {
	b, err := driver.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	// Re-entry after completion is a no-op.
	if b.Released() && b.Archive != nil && b.Torrent != nil {
		if b.Releasing {
			return driver.books.ClearReleasing(ctx, bookID)
		}
		return nil
	}

	if !b.Releasing {
		if _, err := driver.books.BeginReleasing(ctx, bookID); err != nil {
			return err
		}
	}

	barriers, err := driver.gate.Evaluate(ctx, b, Eager)
	if err != nil {
		return err
	}
	if len(barriers) > 0 {
		if clearErr := driver.books.ClearReleasing(ctx, bookID); clearErr != nil {
			return clearErr
		}
		return &BarrierError{Barriers: barriers}
	}

	// First pass: queue lossless optimization of the release derivatives.
	// The optimize jobs are fingerprinted, so re-entry will not duplicate
	// them.
	if requeues == 0 {
		pages, err := driver.pages.ListPages(ctx, bookID)
		if err != nil {
			return err
		}
		for _, page := range pages {
			if err := driver.jobs.Enqueue(ctx, "optimize_img_for_release", page.Image); err != nil {
				return err
			}
		}
	}

	if b.Archive == nil {
		if err := driver.jobs.Enqueue(ctx, "create_cbz", strconv.FormatInt(bookID, 10)); err != nil {
			return err
		}
		return driver.requeue(ctx, bookID, requeues)
	}

	if b.Torrent == nil {
		if err := driver.jobs.Enqueue(ctx, "create_torrent", "book", strconv.FormatInt(bookID, 10)); err != nil {
			return err
		}
		return driver.requeue(ctx, bookID, requeues)
	}

	return driver.finalize(ctx, b)
}

// Reverse un-releases a book: the archive and torrent files are removed
// and the release state reverts to ongoing. The page ledger is untouched.
func (driver *Driver) Reverse(ctx context.Context, bookID int64) error {
	b, err := driver.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if !b.Released() {
		return nil
	}

	if err := driver.removeArtifact(b.Archive); err != nil {
		return err
	}
	if err := driver.removeArtifact(b.Torrent); err != nil {
		return err
	}

	if err := driver.books.ClearRelease(ctx, bookID); err != nil {
		return err
	}

	if err := driver.creators.MarkRebuildTorrent(ctx, b.CreatorID, true); err != nil {
		return err
	}
	if err := driver.jobs.Enqueue(ctx, "purge_torrents"); err != nil {
		return err
	}

	driver.logger.Info("book_unreleased", slog.Int64("book_id", bookID))
	return nil
}

// DeleteBook is the delete_book job body. The book row stays, disabled;
// its artifacts, pages, and page images are removed. Activity logs are
// left for the coalescer to rewrite against the now-deleted pages.
func (driver *Driver) DeleteBook(ctx context.Context, bookID int64) error {
	b, err := driver.books.GetByID(ctx, bookID)
	if err != nil {
		return err
	}

	deleted, err := driver.pages.Renumber(ctx, bookID, nil)
	if err != nil {
		return err
	}
	for _, page := range deleted {
		if err := driver.jobs.Enqueue(ctx, "delete_img", page.Image); err != nil {
			return err
		}
	}

	if err := driver.removeArtifact(b.Archive); err != nil {
		return err
	}
	if err := driver.removeArtifact(b.Torrent); err != nil {
		return err
	}
	if err := driver.books.ClearRelease(ctx, bookID); err != nil {
		return err
	}

	if err := driver.creators.MarkRebuildTorrent(ctx, b.CreatorID, true); err != nil {
		return err
	}
	if err := driver.jobs.Enqueue(ctx, "purge_torrents"); err != nil {
		return err
	}
	if err := driver.jobs.Enqueue(ctx, "process_activity_logs"); err != nil {
		return err
	}

	driver.logger.Warn("book_assets_deleted",
		slog.Int64("book_id", bookID),
		slog.Int("pages", len(deleted)),
	)
	return nil
}

// RecoverStale clears releasing flags older than the TTL, left behind by
// workers that died between flag-set and first job run.
func (driver *Driver) RecoverStale(ctx context.Context) error {
	cutoff := driver.now().Add(-constants.ReleasingFlagTTL)
	stale, err := driver.books.StaleReleasing(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, b := range stale {
		if err := driver.books.ClearReleasing(ctx, b.ID); err != nil {
			return err
		}
		driver.logger.Warn("stale_releasing_cleared", slog.Int64("book_id", b.ID))
	}
	return nil
}

// finalize fires the building -> released transition once both artifact
// refs are set.
func (driver *Driver) finalize(ctx context.Context, b *book.Book) error {
	if err := driver.books.SetReleased(ctx, b.ID, driver.now().UTC()); err != nil {
		return err
	}

	cover, err := driver.pages.FirstPage(ctx, b.ID)
	if err != nil {
		return err
	}
	if err := driver.activity.Completed(ctx, b.ID, cover.ID); err != nil {
		return err
	}

	if err := driver.creators.MarkRebuildTorrent(ctx, b.CreatorID, true); err != nil {
		return err
	}
	if err := driver.jobs.Enqueue(ctx, "purge_torrents"); err != nil {
		return err
	}

	driver.logger.Info("book_released",
		slog.Int64("book_id", b.ID),
		slog.Int64("creator_id", b.CreatorID),
	)
	return nil
}

// requeue schedules the next pipeline step, bounded by MaxJobRequeues.
func (driver *Driver) requeue(ctx context.Context, bookID int64, requeues int) error {
	if requeues+1 > constants.MaxJobRequeues {
		if err := driver.books.ClearReleasing(ctx, bookID); err != nil {
			return err
		}
		return fmt.Errorf("release of book %d exceeded %d requeues", bookID, constants.MaxJobRequeues)
	}
	return driver.enqueueStep(ctx, bookID, requeues+1)
}

func (driver *Driver) enqueueStep(ctx context.Context, bookID int64, requeues int) error {
	return driver.jobs.Enqueue(ctx, "release_book",
		strconv.FormatInt(bookID, 10),
		"--requeues", strconv.Itoa(requeues),
		"--max-requeues", strconv.Itoa(constants.MaxJobRequeues),
	)
}

// removeArtifact deletes a file referenced relative to the archive root.
// Missing files are fine; the step may be re-done after a partial run.
func (driver *Driver) removeArtifact(ref *string) error {
	if ref == nil {
		return nil
	}
	path := filepath.Join(driver.archiveRoot, filepath.FromSlash(*ref))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release: remove artifact %s: %w", *ref, err)
	}
	return nil
}

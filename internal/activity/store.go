package activity

import (
	"context"
	"time"
)

// Repository is the data-access boundary for activity logs.
type Repository interface {
	// InsertTentative records one micro-edit.
	InsertTentative(ctx context.Context, t *Tentative) error
	// BooksWithTentativeOlderThan returns ids of books holding at least one
	// tentative log older than the cutoff.
	BooksWithTentativeOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error)
	// ListTentativeByBook returns all of a book's tentative logs, oldest
	// first.
	ListTentativeByBook(ctx context.Context, bookID int64) ([]*Tentative, error)

	// Coalesce inserts the log with its page associations and deletes the
	// absorbed tentative logs, all in one transaction.
	Coalesce(ctx context.Context, log *Log, absorbedIDs []int64) error

	// ListByBook returns a book's logs newer than since, newest first.
	ListByBook(ctx context.Context, bookID int64, since time.Time) ([]*Log, error)
	// ListByCreator returns logs for all of a creator's books.
	ListByCreator(ctx context.Context, creatorID int64, since time.Time) ([]*Log, error)
	// ListAll returns site-wide logs newer than since, newest first.
	ListAll(ctx context.Context, since time.Time) ([]*Log, error)

	// PageNumbers resolves current page numbers for page ids. Ids whose
	// page no longer exists are absent from the map.
	PageNumbers(ctx context.Context, pageIDs []int64) (map[int64]int, error)

	// MarkDeletedPages flips association rows whose page no longer exists
	// to deleted=true. Returns the number of rows rewritten.
	MarkDeletedPages(ctx context.Context) (int64, error)
	// PruneEmpty removes logs whose every page association is deleted.
	PruneEmpty(ctx context.Context) (int64, error)
	// DeleteByBook removes a book's logs and tentative logs.
	DeleteByBook(ctx context.Context, bookID int64) error
}

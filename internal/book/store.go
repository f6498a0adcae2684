package book

import (
	"context"
	"time"

	"github.com/zcomx/zcomix/pkg/pagination"
)

// Repository is the data-access boundary for books.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id int64) (*Book, error)
	Update(ctx context.Context, b *Book) error
	// Delete removes the book row; pages, metadata, links, and activity
	// logs cascade at the database level.
	Delete(ctx context.Context, id int64) error

	// Search matches the query as a case-insensitive substring of the
	// title among active books.
	Search(ctx context.Context, query string, params pagination.Params) ([]*Book, int, error)

	ListByCreator(ctx context.Context, creatorID int64, onlyReleased bool) ([]*Book, error)
	ListReleased(ctx context.Context) ([]*Book, error)

	// ReleasedDupes returns released books by the creator whose folded
	// title equals titleFold, excluding excludeID.
	ReleasedDupes(ctx context.Context, creatorID int64, titleFold string, excludeID int64) ([]*Book, error)

	// BeginReleasing atomically sets releasing=true. It returns false when
	// the flag was already set (a release is in flight).
	BeginReleasing(ctx context.Context, id int64) (bool, error)
	// ClearReleasing clears the in-flight flag.
	ClearReleasing(ctx context.Context, id int64) error
	// SetReleased stamps release_date and clears releasing.
	SetReleased(ctx context.Context, id int64, at time.Time) error
	// ClearRelease reverses a release: release_date, archive, and torrent
	// all become null.
	ClearRelease(ctx context.Context, id int64) error

	SetArchive(ctx context.Context, id int64, archive *string) error
	SetTorrent(ctx context.Context, id int64, torrent *string) error
	SetStatus(ctx context.Context, id int64, status Status) error

	// StaleReleasing returns books whose releasing flag was set before the
	// cutoff; used to recover from workers that died mid-release.
	StaleReleasing(ctx context.Context, cutoff time.Time) ([]*Book, error)
}

// PageRepository is the data-access boundary for the page ledger.
type PageRepository interface {
	InsertPage(ctx context.Context, p *Page) error
	GetPage(ctx context.Context, id int64) (*Page, error)
	DeletePage(ctx context.Context, id int64) error

	// ListPages returns all pages of a book ordered by page number.
	ListPages(ctx context.Context, bookID int64) ([]*Page, error)
	CountPages(ctx context.Context, bookID int64) (int, error)
	MaxPageNo(ctx context.Context, bookID int64) (int, error)
	FirstPage(ctx context.Context, bookID int64) (*Page, error)
	LastPage(ctx context.Context, bookID int64) (*Page, error)

	// Renumber assigns page numbers 1..N following orderedIDs and deletes
	// the book's pages not present in the list, returning the deleted
	// pages. The whole operation is one transaction.
	Renumber(ctx context.Context, bookID int64, orderedIDs []int64) (deleted []*Page, err error)
}

// MetadataRepository is the data-access boundary for the publication
// metadata document.
type MetadataRepository interface {
	GetMetadata(ctx context.Context, bookID int64) (*Metadata, error)
	HasMetadata(ctx context.Context, bookID int64) (bool, error)
	// ReplaceMetadata rewrites the whole document (record, serials,
	// derivative) in one transaction.
	ReplaceMetadata(ctx context.Context, bookID int64, m *Metadata) error
	DeleteMetadata(ctx context.Context, bookID int64) error
}

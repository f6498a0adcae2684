package book

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/internal/platform/validate"
	"github.com/zcomx/zcomix/pkg/pagination"
)

// Field names used in validation errors.
const (
	FieldTitle   = "title"
	FieldKind    = "kind"
	FieldNumber  = "number"
	FieldYear    = "year"
	FieldLicense = "license"
)

// ImageStore ingests uploads and produces derivative images.
type ImageStore interface {
	Store(field, path, filename string) (image.Ref, error)
}

// ActivityRecorder inserts tentative activity logs. Insertion is cheap and
// synchronous; coalescing into reader-visible logs happens later.
type ActivityRecorder interface {
	PageAdded(ctx context.Context, bookID, pageID int64) error
	Completed(ctx context.Context, bookID, pageID int64) error
}

// Enqueuer schedules background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, command string, args ...string) error
}

// Service orchestrates the business logic for books: the record itself,
// the page ledger, and the publication metadata document.
type Service struct {
	repo     Repository
	pages    PageRepository
	metadata MetadataRepository
	images   ImageStore
	activity ActivityRecorder
	jobs     Enqueuer
	logger   *slog.Logger
}

// NewService constructs a new [Service] with its required collaborators.
func NewService(
	repo Repository,
	pages PageRepository,
	metadata MetadataRepository,
	images ImageStore,
	activity ActivityRecorder,
	jobs Enqueuer,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		pages:    pages,
		metadata: metadata,
		images:   images,
		activity: activity,
		jobs:     jobs,
		logger:   logger,
	}
}

// # Book Lookups

// GetBook fetches a book with its page ledger populated.
func (service *Service) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := service.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.Pages, err = service.pages.ListPages(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// SearchBooks matches query as a case-insensitive substring of active book
// titles.
func (service *Service) SearchBooks(ctx context.Context, query string, params pagination.Params) ([]*Book, int, error) {
	return service.repo.Search(ctx, query, params)
}

// ListByCreator returns a creator's active books, optionally restricted to
// released ones.
func (service *Service) ListByCreator(ctx context.Context, creatorID int64, onlyReleased bool) ([]*Book, error) {
	return service.repo.ListByCreator(ctx, creatorID, onlyReleased)
}

// # Book Management

/*
CreateBook initialises a new book record in the ongoing state.

Description: Performs business validation on the title, kind, numbering,
and license before persisting. The book starts active with no release
date; pages are added separately through the ledger.

Parameters:
  - ctx: context.Context
  - b: *Book (The entity to be persisted)

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) CreateBook(ctx context.Context, b *Book) error {
	if err := service.validateBook(b); err != nil {
		return err
	}

	if err := service.repo.Create(ctx, b); err != nil {
		return err
	}

	service.logger.Info("book_created",
		slog.Int64("book_id", b.ID),
		slog.Int64("creator_id", b.CreatorID),
		slog.String("title", b.Title),
	)

	return nil
}

// UpdateBook applies modifications to a book's descriptive fields. The
// release state, archive, and torrent refs are owned by the release driver
// and are not touched here.
func (service *Service) UpdateBook(ctx context.Context, b *Book) error {
	if err := service.validateBook(b); err != nil {
		return err
	}

	if err := service.repo.Update(ctx, b); err != nil {
		return err
	}

	service.logger.Info("book_updated", slog.Int64("book_id", b.ID))
	return nil
}

/*
DisableBook withdraws a book from the site.

Description: The row is flipped to status=disabled rather than physically
deleted, and a delete_book job is enqueued to remove the archive, torrent,
page images, and finally the rows themselves in the background.

Parameters:
  - ctx: context.Context
  - id: int64

Returns:
  - error: Persistence or enqueue errors
*/
func (service *Service) DisableBook(ctx context.Context, id int64) error {
	if _, err := service.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := service.repo.SetStatus(ctx, id, StatusDisabled); err != nil {
		return err
	}

	if err := service.jobs.Enqueue(ctx, "delete_book", strconv.FormatInt(id, 10)); err != nil {
		return err
	}

	service.logger.Warn("book_disabled", slog.Int64("book_id", id))
	return nil
}

// # Publication Metadata

// GetMetadata returns the publication metadata document, or NotFound when
// the book has none.
func (service *Service) GetMetadata(ctx context.Context, bookID int64) (*Metadata, error) {
	return service.metadata.GetMetadata(ctx, bookID)
}

/*
SetMetadata replaces the publication metadata document atomically.

Description: The record, its serial segments, and its derivative source
are written as one unit. A book may carry at most one document; repeated
calls overwrite the previous one.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - m: *Metadata (The full document)

Returns:
  - error: Validation or persistence errors
*/
func (service *Service) SetMetadata(ctx context.Context, bookID int64, m *Metadata) error {
	if _, err := service.repo.GetByID(ctx, bookID); err != nil {
		return err
	}

	validator := &validate.Validator{}
	if !m.IsOriginal {
		validator.Required("published_name", m.PublishedName)
	}
	for i, serial := range m.Serials {
		validator.Custom("serials", serial.Sequence != i+1, "Serial sequence numbers must be 1..N in order")
	}
	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.metadata.ReplaceMetadata(ctx, bookID, m); err != nil {
		return err
	}

	service.logger.Info("book_metadata_set", slog.Int64("book_id", bookID))
	return nil
}

// DeleteMetadata removes the document. The book becomes unreleasable until
// a new one is set.
func (service *Service) DeleteMetadata(ctx context.Context, bookID int64) error {
	return service.metadata.DeleteMetadata(ctx, bookID)
}

// # Internal Helpers

func (service *Service) validateBook(b *Book) error {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, b.Title).MaxLen(FieldTitle, b.Title, 500)
	validator.OneOf(FieldKind, string(b.Kind),
		string(KindOneShot),
		string(KindOngoing),
		string(KindMiniSeries),
	)
	validator.Custom(FieldNumber, b.Number < 0, "Must not be negative")
	if b.Kind == KindMiniSeries {
		validator.Custom(FieldNumber, b.Number < 1 || b.Number > b.OfNumber,
			"Must be between 1 and the of-number")
	}
	if b.Year != 0 {
		validator.Range(FieldYear, b.Year, 1900, time.Now().Year()+1)
	}
	return validator.Err()
}

// mustNotBeReleasing guards ledger mutations during a release in flight.
func mustNotBeReleasing(b *Book) error {
	if b.Releasing {
		return apperr.Conflict("Book is being released; try again shortly")
	}
	return nil
}

package book

import (
	"context"
	"log/slog"

	"github.com/zcomx/zcomix/internal/platform/apperr"
)

// ImageFieldPage is the owning field recorded in page image refs.
const ImageFieldPage = "book_page.image"

// # Page Ledger

/*
AddPage stores an uploaded image and appends it to the book's ledger.

Description: The image is ingested through the image store (which renders
derivatives), and a BookPage row is inserted at page number max+1. A
tentative page-added activity log is written synchronously so the edit
becomes feed-visible after the next coalescer cycle.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - path: string (Filesystem path of the uploaded file)
  - filename: string (The name the uploader gave the file)

Returns:
  - *Page: The appended page
  - error: Image validation, storage, or persistence errors
*/
func (service *Service) AddPage(ctx context.Context, bookID int64, path, filename string) (*Page, error) {
	b, err := service.repo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := mustNotBeReleasing(b); err != nil {
		return nil, err
	}

	ref, err := service.images.Store(ImageFieldPage, path, filename)
	if err != nil {
		return nil, err
	}

	max, err := service.pages.MaxPageNo(ctx, bookID)
	if err != nil {
		return nil, err
	}

	page := &Page{
		BookID: bookID,
		PageNo: max + 1,
		Image:  ref.String(),
	}
	if err := service.pages.InsertPage(ctx, page); err != nil {
		return nil, err
	}

	if err := service.activity.PageAdded(ctx, bookID, page.ID); err != nil {
		return nil, err
	}

	service.logger.Info("page_added",
		slog.Int64("book_id", bookID),
		slog.Int64("page_id", page.ID),
		slog.Int("page_no", page.PageNo),
	)

	return page, nil
}

/*
DeletePage removes one page from the ledger.

Description: The row is deleted and an image-deletion job is enqueued.
Page numbers are deliberately not renumbered here: callers deleting
several pages invoke Reorder once afterwards with the surviving ids.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - pageID: int64

Returns:
  - error: NotFound when the page does not belong to the book
*/
func (service *Service) DeletePage(ctx context.Context, bookID, pageID int64) error {
	b, err := service.repo.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if err := mustNotBeReleasing(b); err != nil {
		return err
	}

	page, err := service.pages.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	if page.BookID != bookID {
		return apperr.NotFound("Page")
	}

	if err := service.pages.DeletePage(ctx, pageID); err != nil {
		return err
	}

	if err := service.jobs.Enqueue(ctx, "delete_img", page.Image); err != nil {
		return err
	}

	service.logger.Info("page_deleted",
		slog.Int64("book_id", bookID),
		slog.Int64("page_id", pageID),
	)
	return nil
}

/*
Reorder renumbers a book's pages to 1..N following orderedIDs.

Description: Pages belonging to the book but absent from the list are
deleted, and image-deletion jobs are enqueued for them. Ids that do not
belong to the book, and duplicates, are refused outright; a skipped
position would leave the surviving pages numbered with a gap. The
renumber and deletions run in one transaction, so readers never observe
a sparse ledger across the call.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - orderedIDs: []int64 (Surviving page ids, cover first)

Returns:
  - error: Validation, persistence, or enqueue errors
*/
func (service *Service) Reorder(ctx context.Context, bookID int64, orderedIDs []int64) error {
	b, err := service.repo.GetByID(ctx, bookID)
	if err != nil {
		return err
	}
	if err := mustNotBeReleasing(b); err != nil {
		return err
	}

	pages, err := service.pages.ListPages(ctx, bookID)
	if err != nil {
		return err
	}
	live := make(map[int64]bool, len(pages))
	for _, page := range pages {
		live[page.ID] = true
	}
	seen := make(map[int64]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !live[id] || seen[id] {
			return apperr.ValidationError("Page order contains unknown or duplicate page ids")
		}
		seen[id] = true
	}

	deleted, err := service.pages.Renumber(ctx, bookID, orderedIDs)
	if err != nil {
		return err
	}

	for _, page := range deleted {
		if err := service.jobs.Enqueue(ctx, "delete_img", page.Image); err != nil {
			return err
		}
	}

	service.logger.Info("pages_reordered",
		slog.Int64("book_id", bookID),
		slog.Int("count", len(orderedIDs)),
		slog.Int("deleted", len(deleted)),
	)
	return nil
}

/*
PostImageUpload finalises an upload batch.

Description: Applies the reordering the uploader settled on, then queues
a lossless optimize job for every page image. Optimization never runs
inline with requests.

Parameters:
  - ctx: context.Context
  - bookID: int64
  - orderedIDs: []int64 (Full page order; empty leaves the order as-is)

Returns:
  - error: Persistence or enqueue errors
*/
func (service *Service) PostImageUpload(ctx context.Context, bookID int64, orderedIDs []int64) error {
	if len(orderedIDs) > 0 {
		if err := service.Reorder(ctx, bookID, orderedIDs); err != nil {
			return err
		}
	}

	pages, err := service.pages.ListPages(ctx, bookID)
	if err != nil {
		return err
	}

	for _, page := range pages {
		if err := service.jobs.Enqueue(ctx, "optimize_img", page.Image); err != nil {
			return err
		}
	}

	service.logger.Info("post_image_upload",
		slog.Int64("book_id", bookID),
		slog.Int("pages", len(pages)),
	)
	return nil
}

// FirstPage returns the cover page.
func (service *Service) FirstPage(ctx context.Context, bookID int64) (*Page, error) {
	return service.pages.FirstPage(ctx, bookID)
}

// LastPage returns the page with the highest page number.
func (service *Service) LastPage(ctx context.Context, bookID int64) (*Page, error) {
	return service.pages.LastPage(ctx, bookID)
}

// PageCount reports the ledger size.
func (service *Service) PageCount(ctx context.Context, bookID int64) (int, error) {
	return service.pages.CountPages(ctx, bookID)
}

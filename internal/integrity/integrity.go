// Package integrity audits the invariants the publishing pipeline is
// supposed to maintain and logs every violation it finds.
package integrity

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/image"
)

// BookStore lists released books for auditing.
type BookStore interface {
	ListReleased(ctx context.Context) ([]*book.Book, error)
}

// PageLister lists a book's pages in page order.
type PageLister interface {
	ListPages(ctx context.Context, bookID int64) ([]*book.Page, error)
}

// ImageChecker verifies stored originals exist.
type ImageChecker interface {
	HasSize(ref image.Ref, size image.Size) bool
}

// StaleRecoverer clears stranded releasing flags.
type StaleRecoverer interface {
	RecoverStale(ctx context.Context) error
}

// Checker is the integrity job body. It never mutates pipeline state
// beyond stale-flag recovery; violations are reported, not repaired.
type Checker struct {
	books       BookStore
	pages       PageLister
	images      ImageChecker
	recoverer   StaleRecoverer
	archiveRoot string
	logger      *slog.Logger
}

// NewChecker constructs a [Checker].
func NewChecker(books BookStore, pages PageLister, images ImageChecker, recoverer StaleRecoverer, archiveRoot string, logger *slog.Logger) *Checker {
	return &Checker{
		books:       books,
		pages:       pages,
		images:      images,
		recoverer:   recoverer,
		archiveRoot: archiveRoot,
		logger:      logger,
	}
}

// Run audits every released book and recovers stranded releasing flags.
// It returns an error only when the audit itself cannot proceed; found
// violations are logged and counted.
func (checker *Checker) Run(ctx context.Context) error {
	if err := checker.recoverer.RecoverStale(ctx); err != nil {
		return err
	}

	books, err := checker.books.ListReleased(ctx)
	if err != nil {
		return err
	}

	violations := 0
	for _, b := range books {
		violations += checker.checkArtifacts(b)
		count, err := checker.checkLedger(ctx, b)
		if err != nil {
			return err
		}
		violations += count
	}

	checker.logger.Info("integrity_checked",
		slog.Int("released_books", len(books)),
		slog.Int("violations", violations),
	)
	return nil
}

// checkArtifacts verifies a released book's archive and torrent refs are
// set and point at existing files.
func (checker *Checker) checkArtifacts(b *book.Book) int {
	violations := 0
	for name, ref := range map[string]*string{"archive": b.Archive, "torrent": b.Torrent} {
		if ref == nil {
			checker.violation(b, "released book missing "+name+" reference")
			violations++
			continue
		}
		path := filepath.Join(checker.archiveRoot, filepath.FromSlash(*ref))
		if _, err := os.Stat(path); err != nil {
			checker.violation(b, name+" file missing: "+*ref)
			violations++
		}
	}
	return violations
}

// checkLedger verifies page numbers form a dense 1..N sequence and every
// page's original image file exists.
func (checker *Checker) checkLedger(ctx context.Context, b *book.Book) (int, error) {
	pages, err := checker.pages.ListPages(ctx, b.ID)
	if err != nil {
		return 0, err
	}

	violations := 0
	for i, page := range pages {
		if page.PageNo != i+1 {
			checker.violation(b, "page numbers are not dense")
			violations++
			break
		}
	}

	for _, page := range pages {
		ref, err := image.ParseRef(page.Image)
		if err != nil || !checker.images.HasSize(ref, image.SizeOriginal) {
			checker.violation(b, "original image missing: "+page.Image)
			violations++
		}
	}
	return violations, nil
}

func (checker *Checker) violation(b *book.Book, detail string) {
	checker.logger.Warn("integrity_violation",
		slog.Int64("book_id", b.ID),
		slog.String("detail", detail),
	)
}

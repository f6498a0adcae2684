// Package archive builds the downloadable cbz file for a released book.
//
// A cbz is a plain ZIP whose members are the page images at cbz size,
// named so they sort lexicographically in page order. Archives live under
// <root>/cbz/<Letter>/<CreatorSlug>/<bookfile>.cbz and are written
// atomically via a sibling temp file.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/pkg/atomicfile"
)

// BookStore is the slice of the book repository the builder needs.
type BookStore interface {
	GetByID(ctx context.Context, id int64) (*book.Book, error)
	SetArchive(ctx context.Context, id int64, archive *string) error
}

// PageLister lists a book's pages in page order.
type PageLister interface {
	ListPages(ctx context.Context, bookID int64) ([]*book.Page, error)
}

// CreatorStore resolves the creator owning a book.
type CreatorStore interface {
	GetByID(ctx context.Context, id int64) (*creator.Creator, error)
}

// ImageResolver maps an image reference to the on-disk derivative to pack,
// falling back to the original when the derivative is absent.
type ImageResolver interface {
	Resolve(ref image.Ref, size image.Size) (path string, served image.Size, err error)
}

// Builder assembles cbz archives. It is the create_cbz job body.
type Builder struct {
	books    BookStore
	pages    PageLister
	creators CreatorStore
	images   ImageResolver
	root     string
	logger   *slog.Logger
}

// NewBuilder constructs a [Builder] rooted at the archive directory.
func NewBuilder(books BookStore, pages PageLister, creators CreatorStore, images ImageResolver, root string, logger *slog.Logger) *Builder {
	return &Builder{
		books:    books,
		pages:    pages,
		creators: creators,
		images:   images,
		root:     root,
		logger:   logger,
	}
}

/*
BuildBook assembles the archive for a book and records its reference.

Description: Page images are packed at cbz size under lexicographic
member names (001.jpg, 002.jpg, ...). Images arrive already compressed,
so members are stored rather than deflated. The build is idempotent: an
existing archive newer than every source image is reused. The archive
reference is persisted on the book row either way.

Returns:
  - string: The archive path relative to the archive root, in slash form
  - error: Validation when the book has no pages
*/
func (builder *Builder) BuildBook(ctx context.Context, bookID int64) (string, error) {
	b, err := builder.books.GetByID(ctx, bookID)
	if err != nil {
		return "", err
	}

	c, err := builder.creators.GetByID(ctx, b.CreatorID)
	if err != nil {
		return "", err
	}

	pages, err := builder.pages.ListPages(ctx, bookID)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", apperr.ValidationError("Book has no pages to archive")
	}

	members, err := builder.resolveMembers(pages)
	if err != nil {
		return "", err
	}

	rel := path.Join("cbz", c.Letter(), c.Slug, b.ArchiveName())
	dst := filepath.Join(builder.root, filepath.FromSlash(rel))

	fresh, err := isFresh(dst, members)
	if err != nil {
		return "", err
	}
	if fresh {
		builder.logger.Debug("cbz_reused", slog.String("archive", rel))
		return rel, builder.books.SetArchive(ctx, bookID, &rel)
	}

	comment := fmt.Sprintf("%s by %s | zco.mx", b.Name(), c.Name)
	err = atomicfile.WriteTo(dst, func(tmpPath string) error {
		return writeZip(tmpPath, members, comment)
	})
	if err != nil {
		return "", fmt.Errorf("archive: build %s: %w", rel, err)
	}

	if err := builder.books.SetArchive(ctx, bookID, &rel); err != nil {
		return "", err
	}

	builder.logger.Info("cbz_built",
		slog.Int64("book_id", bookID),
		slog.String("archive", rel),
		slog.Int("pages", len(members)),
	)
	return rel, nil
}

// member pairs a source image file with its name inside the archive.
type member struct {
	src  string
	name string
}

// resolveMembers maps each page to its packed derivative. Member names use
// the derivative's extension, which can differ from the upload's.
func (builder *Builder) resolveMembers(pages []*book.Page) ([]member, error) {
	members := make([]member, 0, len(pages))
	for i, page := range pages {
		ref, err := image.ParseRef(page.Image)
		if err != nil {
			return nil, fmt.Errorf("archive: page %d: %w", page.PageNo, err)
		}

		src, _, err := builder.images.Resolve(ref, image.SizeCBZ)
		if err != nil {
			return nil, fmt.Errorf("archive: page %d: %w", page.PageNo, err)
		}

		members = append(members, member{
			src:  src,
			name: fmt.Sprintf("%03d%s", i+1, filepath.Ext(src)),
		})
	}
	return members, nil
}

// isFresh reports whether dst exists and is newer than every source file.
func isFresh(dst string, members []member) (bool, error) {
	info, err := os.Stat(dst)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	for _, m := range members {
		src, err := os.Stat(m.src)
		if err != nil {
			return false, err
		}
		if src.ModTime().After(info.ModTime()) {
			return false, nil
		}
	}
	return true, nil
}

func writeZip(dstPath string, members []member, comment string) error {
	file, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := zip.NewWriter(file)
	if err := writer.SetComment(comment); err != nil {
		return err
	}

	for _, m := range members {
		if err := packMember(writer, m); err != nil {
			return err
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	return file.Close()
}

func packMember(writer *zip.Writer, m member) error {
	src, err := os.Open(m.src)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	header := &zip.FileHeader{
		Name: m.name,
		// Page images are already compressed; deflating them buys nothing.
		Method:   zip.Store,
		Modified: info.ModTime(),
	}

	dst, err := writer.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

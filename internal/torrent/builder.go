package torrent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/pkg/atomicfile"
)

// allTorrentRel is the site-wide torrent, relative to the archive root.
const allTorrentRel = "tor/zco.mx/zco.mx.torrent"

// BookStore is the slice of the book repository the builder needs.
type BookStore interface {
	GetByID(ctx context.Context, id int64) (*book.Book, error)
	SetTorrent(ctx context.Context, id int64, torrent *string) error
	ListByCreator(ctx context.Context, creatorID int64, onlyReleased bool) ([]*book.Book, error)
	ListReleased(ctx context.Context) ([]*book.Book, error)
}

// CreatorStore is the slice of the creator repository the builder and the
// download handler need.
type CreatorStore interface {
	GetByID(ctx context.Context, id int64) (*creator.Creator, error)
	GetBySlug(ctx context.Context, slug string) (*creator.Creator, error)
	SetTorrent(ctx context.Context, id int64, torrent *string) error
	MarkRebuildTorrent(ctx context.Context, id int64, rebuild bool) error
	ListRebuildTorrent(ctx context.Context) ([]*creator.Creator, error)
}

// Builder produces the three torrent kinds over the archive tree. It is
// the create_torrent and purge_torrents job body.
type Builder struct {
	books    BookStore
	creators CreatorStore
	root     string
	trackers []string
	logger   *slog.Logger

	// now is stubbed in tests so creation dates are deterministic.
	now func() time.Time
}

// NewBuilder constructs a [Builder] rooted at the archive directory.
func NewBuilder(books BookStore, creators CreatorStore, root string, trackers []string, logger *slog.Logger) *Builder {
	return &Builder{
		books:    books,
		creators: creators,
		root:     root,
		trackers: trackers,
		logger:   logger,
		now:      time.Now,
	}
}

/*
BuildBook produces the single-file torrent for a released book's archive
and records its reference on the book row.

Returns:
  - string: The torrent path relative to the archive root, in slash form
  - error: Validation when the book has no archive yet
*/
func (builder *Builder) BuildBook(ctx context.Context, bookID int64) (string, error) {
	b, err := builder.books.GetByID(ctx, bookID)
	if err != nil {
		return "", err
	}
	if b.Archive == nil {
		return "", apperr.ValidationError("Book has no archive to seed")
	}

	c, err := builder.creators.GetByID(ctx, b.CreatorID)
	if err != nil {
		return "", err
	}

	rel := path.Join("tor", c.Letter(), c.Slug, b.FileName()+".torrent")
	entries := []entry{{
		src:  filepath.Join(builder.root, filepath.FromSlash(*b.Archive)),
		path: []string{b.ArchiveName()},
	}}

	if err := builder.write(rel, b.ArchiveName(), entries); err != nil {
		return "", err
	}
	if err := builder.books.SetTorrent(ctx, bookID, &rel); err != nil {
		return "", err
	}

	builder.logger.Info("torrent_built",
		slog.String("kind", "book"),
		slog.Int64("book_id", bookID),
		slog.String("torrent", rel),
	)
	return rel, nil
}

/*
BuildCreator produces the multi-file torrent over all of a creator's
released archives and clears their rebuild flag.

Description: A creator with no released archives has no torrent; any
existing file is removed and the reference nulled. This is how
unreleasing a creator's last book retires their torrent.

Returns:
  - string: The torrent path relative to the archive root, empty when the
    torrent was retired
*/
func (builder *Builder) BuildCreator(ctx context.Context, creatorID int64) (string, error) {
	c, err := builder.creators.GetByID(ctx, creatorID)
	if err != nil {
		return "", err
	}

	books, err := builder.books.ListByCreator(ctx, creatorID, true)
	if err != nil {
		return "", err
	}

	entries := make([]entry, 0, len(books))
	for _, b := range books {
		if b.Archive == nil {
			continue
		}
		entries = append(entries, entry{
			src:  filepath.Join(builder.root, filepath.FromSlash(*b.Archive)),
			path: []string{b.ArchiveName()},
		})
	}

	rel := path.Join("tor", c.Letter(), c.TorrentName())

	if len(entries) == 0 {
		if err := builder.retire(ctx, c, rel); err != nil {
			return "", err
		}
		return "", nil
	}

	sortEntries(entries)
	if err := builder.write(rel, c.Slug, entries); err != nil {
		return "", err
	}
	if err := builder.creators.SetTorrent(ctx, creatorID, &rel); err != nil {
		return "", err
	}
	if err := builder.creators.MarkRebuildTorrent(ctx, creatorID, false); err != nil {
		return "", err
	}

	builder.logger.Info("torrent_built",
		slog.String("kind", "creator"),
		slog.Int64("creator_id", creatorID),
		slog.String("torrent", rel),
		slog.Int("archives", len(entries)),
	)
	return rel, nil
}

// BuildAll produces the site-wide torrent over every released archive,
// with content paths of the form <CreatorSlug>/<bookfile>.cbz. With
// nothing released the file is removed instead.
func (builder *Builder) BuildAll(ctx context.Context) (string, error) {
	books, err := builder.books.ListReleased(ctx)
	if err != nil {
		return "", err
	}

	slugs := map[int64]string{}
	entries := make([]entry, 0, len(books))
	for _, b := range books {
		if b.Archive == nil {
			continue
		}
		cSlug, ok := slugs[b.CreatorID]
		if !ok {
			c, err := builder.creators.GetByID(ctx, b.CreatorID)
			if err != nil {
				return "", err
			}
			cSlug = c.Slug
			slugs[b.CreatorID] = cSlug
		}
		entries = append(entries, entry{
			src:  filepath.Join(builder.root, filepath.FromSlash(*b.Archive)),
			path: []string{cSlug, b.ArchiveName()},
		})
	}

	if len(entries) == 0 {
		if err := builder.remove(allTorrentRel); err != nil {
			return "", err
		}
		return "", nil
	}

	sortEntries(entries)
	if err := builder.write(allTorrentRel, "zco.mx", entries); err != nil {
		return "", err
	}

	builder.logger.Info("torrent_built",
		slog.String("kind", "all"),
		slog.Int("archives", len(entries)),
	)
	return allTorrentRel, nil
}

// Purge rebuilds every stale creator torrent and the site-wide torrent.
// It is the purge_torrents job body; rebuilds batch here instead of
// running once per released book.
func (builder *Builder) Purge(ctx context.Context) error {
	stale, err := builder.creators.ListRebuildTorrent(ctx)
	if err != nil {
		return err
	}

	for _, c := range stale {
		if _, err := builder.BuildCreator(ctx, c.ID); err != nil {
			return fmt.Errorf("torrent: rebuild creator %d: %w", c.ID, err)
		}
	}

	if _, err := builder.BuildAll(ctx); err != nil {
		return err
	}

	builder.logger.Info("torrents_purged", slog.Int("creators", len(stale)))
	return nil
}

func (builder *Builder) write(rel, name string, entries []entry) error {
	data, err := metainfo(name, entries, builder.trackers, builder.now())
	if err != nil {
		return err
	}

	dst := filepath.Join(builder.root, filepath.FromSlash(rel))
	return atomicfile.WriteTo(dst, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0o644)
	})
}

// retire removes a creator's torrent file and nulls their reference.
func (builder *Builder) retire(ctx context.Context, c *creator.Creator, rel string) error {
	if err := builder.remove(rel); err != nil {
		return err
	}
	if err := builder.creators.SetTorrent(ctx, c.ID, nil); err != nil {
		return err
	}
	if err := builder.creators.MarkRebuildTorrent(ctx, c.ID, false); err != nil {
		return err
	}

	builder.logger.Info("torrent_retired", slog.Int64("creator_id", c.ID))
	return nil
}

func (builder *Builder) remove(rel string) error {
	err := os.Remove(filepath.Join(builder.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("torrent: remove %s: %w", rel, err)
	}
	return nil
}

// sortEntries orders content files by their in-torrent path so rebuilds
// are byte-stable for unchanged content.
func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return path.Join(entries[i].path...) < path.Join(entries[j].path...)
	})
}

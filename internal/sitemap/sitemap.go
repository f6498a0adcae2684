// Package sitemap emits the sitemap.xml covering creator pages and
// released books.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/pkg/atomicfile"
)

// BookStore lists released books for sitemap entries.
type BookStore interface {
	ListReleased(ctx context.Context) ([]*book.Book, error)
}

// CreatorStore resolves creators for slugs and lists them.
type CreatorStore interface {
	GetByID(ctx context.Context, id int64) (*creator.Creator, error)
	List(ctx context.Context) ([]*creator.Creator, error)
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	NS      string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Generator is the sitemap job body.
type Generator struct {
	books    BookStore
	creators CreatorStore
	siteURL  string
	dest     string
	logger   *slog.Logger
}

// NewGenerator constructs a [Generator] writing to dest.
func NewGenerator(books BookStore, creators CreatorStore, siteURL, dest string, logger *slog.Logger) *Generator {
	return &Generator{
		books:    books,
		creators: creators,
		siteURL:  strings.TrimRight(siteURL, "/"),
		dest:     dest,
		logger:   logger,
	}
}

// Run regenerates the sitemap file atomically.
func (generator *Generator) Run(ctx context.Context) error {
	set := urlSet{NS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, urlEntry{Loc: generator.siteURL})

	creators, err := generator.creators.List(ctx)
	if err != nil {
		return err
	}
	slugs := make(map[int64]string, len(creators))
	for _, c := range creators {
		slugs[c.ID] = c.Slug
		set.URLs = append(set.URLs, urlEntry{Loc: generator.siteURL + "/" + c.Slug})
	}

	books, err := generator.books.ListReleased(ctx)
	if err != nil {
		return err
	}
	for _, b := range books {
		slug, ok := slugs[b.CreatorID]
		if !ok {
			continue
		}
		entry := urlEntry{Loc: generator.siteURL + "/" + slug + "/" + b.FileName()}
		if b.ReleaseDate != nil {
			entry.LastMod = b.ReleaseDate.Format(time.DateOnly)
		}
		set.URLs = append(set.URLs, entry)
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("sitemap: marshal: %w", err)
	}
	document := append([]byte(xml.Header), body...)

	err = atomicfile.WriteTo(generator.dest, func(tmpPath string) error {
		return os.WriteFile(tmpPath, document, 0o644)
	})
	if err != nil {
		return err
	}

	generator.logger.Info("sitemap_written",
		slog.String("dest", generator.dest),
		slog.Int("urls", len(set.URLs)),
	)
	return nil
}

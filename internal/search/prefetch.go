// Package search warms the Redis cache with the name lists backing
// search-as-you-type: creator names and released book titles.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/platform/constants"
	"github.com/zcomx/zcomix/pkg/slice"
)

// prefetchTTL keeps stale lists from living past a missed refresh cycle.
const prefetchTTL = 24 * time.Hour

// BookStore lists released books for the title index.
type BookStore interface {
	ListReleased(ctx context.Context) ([]*book.Book, error)
}

// CreatorStore lists creators for the name index.
type CreatorStore interface {
	List(ctx context.Context) ([]*creator.Creator, error)
}

// Entry is one prefetched search candidate.
type Entry struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Prefetcher is the search_prefetch job body.
type Prefetcher struct {
	books    BookStore
	creators CreatorStore
	rdb      *redis.Client
	logger   *slog.Logger
}

// NewPrefetcher constructs a [Prefetcher].
func NewPrefetcher(books BookStore, creators CreatorStore, rdb *redis.Client, logger *slog.Logger) *Prefetcher {
	return &Prefetcher{books: books, creators: creators, rdb: rdb, logger: logger}
}

// Run rebuilds both name lists in Redis.
func (prefetcher *Prefetcher) Run(ctx context.Context) error {
	creators, err := prefetcher.creators.List(ctx)
	if err != nil {
		return err
	}
	creatorEntries := slice.Map(creators, func(c *creator.Creator) Entry {
		return Entry{ID: c.ID, Label: c.Name, Slug: c.Slug}
	})
	if err := prefetcher.store(ctx, "creators", creatorEntries); err != nil {
		return err
	}

	books, err := prefetcher.books.ListReleased(ctx)
	if err != nil {
		return err
	}
	bookEntries := slice.Map(books, func(b *book.Book) Entry {
		return Entry{ID: b.ID, Label: b.Name(), Slug: b.FileName()}
	})
	if err := prefetcher.store(ctx, "books", bookEntries); err != nil {
		return err
	}

	prefetcher.logger.Info("search_prefetched",
		slog.Int("creators", len(creatorEntries)),
		slog.Int("books", len(bookEntries)),
	)
	return nil
}

func (prefetcher *Prefetcher) store(ctx context.Context, key string, entries []Entry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("search: encode %s: %w", key, err)
	}

	fullKey := constants.RedisPrefixSearchPrefetch + key
	if err := prefetcher.rdb.Set(ctx, fullKey, payload, prefetchTTL).Err(); err != nil {
		return fmt.Errorf("search: store %s: %w", fullKey, err)
	}
	return nil
}

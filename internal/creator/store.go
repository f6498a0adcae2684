package creator

import (
	"context"

	"github.com/zcomx/zcomix/pkg/pagination"
)

// Repository is the data-access boundary for creators.
type Repository interface {
	Create(ctx context.Context, c *Creator) error
	GetByID(ctx context.Context, id int64) (*Creator, error)
	// GetBySlug resolves a creator by the folded form of the slug, so
	// lookups are case-insensitive and accent-insensitive.
	GetBySlug(ctx context.Context, slug string) (*Creator, error)
	Update(ctx context.Context, c *Creator) error

	// Search matches the query as a case-insensitive substring of the name.
	Search(ctx context.Context, query string, params pagination.Params) ([]*Creator, int, error)
	List(ctx context.Context) ([]*Creator, error)

	SetPortrait(ctx context.Context, id int64, ref *string) error
	SetIndicia(ctx context.Context, id int64, ref *string) error
	SetTorrent(ctx context.Context, id int64, torrent *string) error

	// MarkRebuildTorrent flags the creator torrent stale.
	MarkRebuildTorrent(ctx context.Context, id int64, rebuild bool) error
	// ListRebuildTorrent returns creators whose torrent is stale.
	ListRebuildTorrent(ctx context.Context) ([]*Creator, error)
}

package worker

import (
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zcomx/zcomix/internal/activity"
	"github.com/zcomx/zcomix/internal/archive"
	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/integrity"
	"github.com/zcomx/zcomix/internal/jobq"
	"github.com/zcomx/zcomix/internal/link"
	"github.com/zcomx/zcomix/internal/platform/config"
	"github.com/zcomx/zcomix/internal/release"
	"github.com/zcomx/zcomix/internal/search"
	"github.com/zcomx/zcomix/internal/sitemap"
	"github.com/zcomx/zcomix/internal/torrent"
)

// App is the wired object graph shared by the api and worker binaries.
// Both processes need the same repositories, services, and job registry;
// only the outermost layer differs (HTTP server versus worker pool).
type App struct {
	Services Services
	Registry *jobq.Registry
	Queue    *jobq.Queue
	Jobs     *jobq.PostgresRepository

	Books    *book.PostgresRepository
	Creators *creator.PostgresRepository
	Links    *link.PostgresRepository
	Activity *activity.PostgresRepository
	Images   *image.Store
	Recorder *activity.Recorder
}

// Wire builds the full object graph from the shared infrastructure
// handles. The registry is created empty, the queue and driver are wired
// through it, and commands are bound last.
func Wire(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log *slog.Logger) *App {
	bookRepo := book.NewPostgresRepository(pool)
	creatorRepo := creator.NewPostgresRepository(pool)
	linkRepo := link.NewPostgresRepository(pool)
	activityRepo := activity.NewPostgresRepository(pool)
	jobRepo := jobq.NewPostgresRepository(pool)

	registry := jobq.NewRegistry()
	queue := jobq.NewQueue(jobRepo, registry, log)

	processor := image.NewProcessor()
	imageStore := image.NewStore(cfg.UploadsRoot, processor, processor, log)
	optimizer := image.NewOptimizeService(imageStore, nil, rdb, log)

	recorder := activity.NewRecorder(activityRepo, log)
	gate := release.NewGate(bookRepo, bookRepo, bookRepo, imageStore)
	driver := release.NewDriver(bookRepo, bookRepo, gate, creatorRepo, recorder, queue, cfg.ArchiveRoot, log)

	services := Services{
		Driver:     driver,
		Archive:    archive.NewBuilder(bookRepo, bookRepo, creatorRepo, imageStore, cfg.ArchiveRoot, log),
		Torrents:   torrent.NewBuilder(bookRepo, creatorRepo, cfg.ArchiveRoot, cfg.TrackerURLs, log),
		Images:     imageStore,
		Optimizer:  optimizer,
		Creators:   creatorRepo,
		Coalescer:  activity.NewCoalescer(activityRepo, rdb, log),
		Prefetcher: search.NewPrefetcher(bookRepo, creatorRepo, rdb, log),
		Sitemap:    sitemap.NewGenerator(bookRepo, creatorRepo, cfg.SiteURL, filepath.Join(cfg.ArchiveRoot, "sitemap.xml"), log),
		Integrity:  integrity.NewChecker(bookRepo, bookRepo, imageStore, driver, cfg.ArchiveRoot, log),
		Logger:     log,
	}
	services.RegisterAll(registry)

	return &App{
		Services: services,
		Registry: registry,
		Queue:    queue,
		Jobs:     jobRepo,
		Books:    bookRepo,
		Creators: creatorRepo,
		Links:    linkRepo,
		Activity: activityRepo,
		Images:   imageStore,
		Recorder: recorder,
	}
}

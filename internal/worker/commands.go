// Package worker wires the closed job-command set to the services that
// implement each command. Both the API process (to enqueue with correct
// descriptors) and the worker process (to execute) build their registry
// here, so the two can never disagree about what a command means.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/zcomx/zcomix/internal/activity"
	"github.com/zcomx/zcomix/internal/archive"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/integrity"
	"github.com/zcomx/zcomix/internal/jobq"
	"github.com/zcomx/zcomix/internal/platform/constants"
	"github.com/zcomx/zcomix/internal/release"
	"github.com/zcomx/zcomix/internal/search"
	"github.com/zcomx/zcomix/internal/sitemap"
	"github.com/zcomx/zcomix/internal/torrent"
)

// Services collects everything the job commands need. All fields are
// required; a nil service panics at first use, which is a wiring bug.
type Services struct {
	Driver     *release.Driver
	Archive    *archive.Builder
	Torrents   *torrent.Builder
	Images     *image.Store
	Optimizer  *image.OptimizeService
	Creators   creator.Repository
	Coalescer  *activity.Coalescer
	Prefetcher *search.Prefetcher
	Sitemap    *sitemap.Generator
	Integrity  *integrity.Checker
	Logger     *slog.Logger
}

// BuildRegistry returns a fresh registry with every command bound.
func BuildRegistry(s Services) *jobq.Registry {
	registry := jobq.NewRegistry()
	s.RegisterAll(registry)
	return registry
}

// RegisterAll binds every command onto registry. It is split from
// [BuildRegistry] because the release driver enqueues through the queue
// while the queue validates commands against the registry; wiring creates
// the empty registry first, then the queue, then the services, and binds
// commands last.
func (s Services) RegisterAll(registry *jobq.Registry) {
	// Pipeline steps run ahead of maintenance so a release in flight is
	// never starved by background churn.
	registry.Register(jobq.CommandReleaseBook, jobq.Descriptor{Priority: jobq.PriorityHigh}, s.releaseBook)
	registry.Register(jobq.CommandCreateCBZ, jobq.Descriptor{Priority: jobq.PriorityHigh}, s.createCBZ)
	registry.Register(jobq.CommandCreateTorrent, jobq.Descriptor{Priority: jobq.PriorityHigh}, s.createTorrent)

	registry.Register(jobq.CommandDeleteBook, jobq.Descriptor{Priority: jobq.PriorityNormal}, s.deleteBook)
	registry.Register(jobq.CommandDeleteImg, jobq.Descriptor{Priority: jobq.PriorityNormal}, s.deleteImg)
	registry.Register(jobq.CommandPurgeTorrents, jobq.Descriptor{Priority: jobq.PriorityNormal}, s.purgeTorrents)

	registry.Register(jobq.CommandOptimizeRelease, jobq.Descriptor{
		Priority:      jobq.PriorityNormal,
		Fingerprinted: true,
		Ignorable:     s.imageGone,
	}, s.optimizeForRelease)
	registry.Register(jobq.CommandOptimizeImg, jobq.Descriptor{
		Priority:      jobq.PriorityLow,
		Fingerprinted: true,
		Ignorable:     s.imageGone,
	}, s.optimizeImg)
	registry.Register(jobq.CommandUpdateIndicia, jobq.Descriptor{
		Priority:      jobq.PriorityNormal,
		Fingerprinted: true,
	}, s.updateIndicia)

	registry.Register(jobq.CommandProcessActivity, jobq.Descriptor{Priority: jobq.PriorityLow}, s.processActivity)
	registry.Register(jobq.CommandSearchPrefetch, jobq.Descriptor{Priority: jobq.PriorityLow}, s.searchPrefetch)
	registry.Register(jobq.CommandSitemap, jobq.Descriptor{
		Priority:      jobq.PriorityLow,
		Fingerprinted: true,
	}, s.runSitemap)
	registry.Register(jobq.CommandIntegrity, jobq.Descriptor{Priority: jobq.PriorityLow}, s.runIntegrity)
}

// # Pipeline Commands

func (s Services) releaseBook(ctx context.Context, args []string) error {
	requeues, maxRequeues, rest := jobq.ParseRequeues(args, constants.MaxJobRequeues)

	reverse := false
	positional := make([]string, 0, len(rest))
	for _, arg := range rest {
		if arg == "--reverse" {
			reverse = true
			continue
		}
		positional = append(positional, arg)
	}

	bookID, err := idArg(positional, jobq.CommandReleaseBook)
	if err != nil {
		return err
	}

	if reverse {
		return s.Driver.Reverse(ctx, bookID)
	}
	if requeues > maxRequeues {
		return fmt.Errorf("worker: release of book %d exceeded %d requeues", bookID, maxRequeues)
	}
	return s.Driver.Step(ctx, bookID, requeues)
}

func (s Services) createCBZ(ctx context.Context, args []string) error {
	bookID, err := idArg(args, jobq.CommandCreateCBZ)
	if err != nil {
		return err
	}
	_, err = s.Archive.BuildBook(ctx, bookID)
	return err
}

func (s Services) createTorrent(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("worker: %s needs a kind argument", jobq.CommandCreateTorrent)
	}

	switch args[0] {
	case "book":
		id, err := idArg(args[1:], jobq.CommandCreateTorrent)
		if err != nil {
			return err
		}
		_, err = s.Torrents.BuildBook(ctx, id)
		return err
	case "creator":
		id, err := idArg(args[1:], jobq.CommandCreateTorrent)
		if err != nil {
			return err
		}
		_, err = s.Torrents.BuildCreator(ctx, id)
		return err
	case "all":
		_, err := s.Torrents.BuildAll(ctx)
		return err
	default:
		return fmt.Errorf("worker: unknown torrent kind %q", args[0])
	}
}

func (s Services) deleteBook(ctx context.Context, args []string) error {
	bookID, err := idArg(args, jobq.CommandDeleteBook)
	if err != nil {
		return err
	}
	return s.Driver.DeleteBook(ctx, bookID)
}

// # Image Commands

func (s Services) deleteImg(_ context.Context, args []string) error {
	ref, err := refArg(args, jobq.CommandDeleteImg)
	if err != nil {
		return err
	}
	return s.Images.Delete(ref)
}

func (s Services) optimizeImg(ctx context.Context, args []string) error {
	ref, err := refArg(args, jobq.CommandOptimizeImg)
	if err != nil {
		return err
	}
	return s.Optimizer.OptimizeRef(ctx, ref)
}

// optimizeForRelease renders any derivative still missing before the
// lossless pass, so release-bound books get their full size ladder.
func (s Services) optimizeForRelease(ctx context.Context, args []string) error {
	ref, err := refArg(args, jobq.CommandOptimizeRelease)
	if err != nil {
		return err
	}
	if err := s.Images.EnsureDerivatives(ref); err != nil {
		return err
	}
	return s.Optimizer.OptimizeRef(ctx, ref)
}

// imageGone makes optimize requests moot when their original has been
// deleted between enqueue and dequeue.
func (s Services) imageGone(_ context.Context, args []string) bool {
	if len(args) == 0 {
		return true
	}
	ref, err := image.ParseRef(args[0])
	if err != nil {
		return true
	}
	return !s.Images.HasSize(ref, image.SizeOriginal)
}

func (s Services) updateIndicia(ctx context.Context, args []string) error {
	creatorID, err := idArg(args, jobq.CommandUpdateIndicia)
	if err != nil {
		return err
	}

	c, err := s.Creators.GetByID(ctx, creatorID)
	if err != nil {
		return err
	}
	if c.Indicia == nil {
		s.Logger.Debug("indicia_not_set", slog.Int64("creator_id", creatorID))
		return nil
	}

	ref, err := image.ParseRef(*c.Indicia)
	if err != nil {
		return err
	}
	if err := s.Images.EnsureDerivatives(ref); err != nil {
		return err
	}
	return s.Optimizer.OptimizeRef(ctx, ref)
}

// # Maintenance Commands

func (s Services) purgeTorrents(ctx context.Context, _ []string) error {
	return s.Torrents.Purge(ctx)
}

func (s Services) processActivity(ctx context.Context, _ []string) error {
	return s.Coalescer.Run(ctx)
}

func (s Services) searchPrefetch(ctx context.Context, _ []string) error {
	return s.Prefetcher.Run(ctx)
}

func (s Services) runSitemap(ctx context.Context, _ []string) error {
	return s.Sitemap.Run(ctx)
}

func (s Services) runIntegrity(ctx context.Context, _ []string) error {
	return s.Integrity.Run(ctx)
}

// # Argument Helpers

func idArg(args []string, command string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("worker: %s needs an id argument", command)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("worker: %s: bad id %q", command, args[0])
	}
	return id, nil
}

func refArg(args []string, command string) (image.Ref, error) {
	if len(args) == 0 {
		return image.Ref{}, fmt.Errorf("worker: %s needs an image reference", command)
	}
	ref, err := image.ParseRef(args[0])
	if err != nil {
		return image.Ref{}, fmt.Errorf("worker: %s: %w", command, err)
	}
	return ref, nil
}

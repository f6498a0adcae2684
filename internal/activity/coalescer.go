package activity

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zcomx/zcomix/internal/platform/constants"
)

// coalescerLockTTL bounds one coalescer cycle; a crashed run frees the
// lock after this long.
const coalescerLockTTL = 10 * time.Minute

// Coalescer folds tentative activity logs into reader-visible entries.
//
// It is the single writer of the activity log; single-writer status is
// enforced with a Redis lock so only one worker runs a cycle at a time.
// Readers are eventually consistent: new activity appears after the next
// cycle.
type Coalescer struct {
	repo      Repository
	rdb       *redis.Client
	threshold time.Duration
	logger    *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// NewCoalescer constructs a [Coalescer] with the default age threshold.
func NewCoalescer(repo Repository, rdb *redis.Client, logger *slog.Logger) *Coalescer {
	return &Coalescer{
		repo:      repo,
		rdb:       rdb,
		threshold: constants.CoalesceThreshold,
		logger:    logger,
		now:       time.Now,
	}
}

/*
Run executes one coalescer cycle.

Description: For every book holding a tentative log older than the
threshold, all of that book's tentative logs are absorbed: page-added
records become one entry listing the page set, completed records become
one entry referencing the cover. Each entry is timestamped at the
youngest absorbed tentative. The cycle then reconciles page deletions
(association rows flip to deleted) and prunes entries with no live pages.

Returns:
  - error: The first persistence error; the cycle stops there and the
    remaining work is picked up by the next run.
*/
func (coalescer *Coalescer) Run(ctx context.Context) error {
	if coalescer.rdb != nil {
		acquired, err := coalescer.rdb.SetNX(ctx, constants.RedisKeyCoalescerLock, "1", coalescerLockTTL).Result()
		if err == nil && !acquired {
			coalescer.logger.Debug("coalescer_already_running")
			return nil
		}
		// On Redis errors proceed without the lock; the database keeps the
		// work idempotent.
		defer coalescer.rdb.Del(context.WithoutCancel(ctx), constants.RedisKeyCoalescerLock)
	}

	cutoff := coalescer.now().Add(-coalescer.threshold)
	bookIDs, err := coalescer.repo.BooksWithTentativeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, bookID := range bookIDs {
		if err := coalescer.coalesceBook(ctx, bookID); err != nil {
			return err
		}
	}

	rewritten, err := coalescer.repo.MarkDeletedPages(ctx)
	if err != nil {
		return err
	}
	pruned, err := coalescer.repo.PruneEmpty(ctx)
	if err != nil {
		return err
	}

	coalescer.logger.Info("coalescer_cycle",
		slog.Int("books", len(bookIDs)),
		slog.Int64("pages_rewritten", rewritten),
		slog.Int64("logs_pruned", pruned),
	)
	return nil
}

func (coalescer *Coalescer) coalesceBook(ctx context.Context, bookID int64) error {
	tentatives, err := coalescer.repo.ListTentativeByBook(ctx, bookID)
	if err != nil {
		return err
	}
	if len(tentatives) == 0 {
		return nil
	}

	var pageAdds, completed []*Tentative
	for _, tentative := range tentatives {
		if tentative.Action == ActionCompleted {
			completed = append(completed, tentative)
		} else {
			pageAdds = append(pageAdds, tentative)
		}
	}

	if len(pageAdds) > 0 {
		if err := coalescer.emitPageAdds(ctx, bookID, pageAdds); err != nil {
			return err
		}
	}
	if len(completed) > 0 {
		if err := coalescer.emitCompleted(ctx, bookID, completed); err != nil {
			return err
		}
	}
	return nil
}

func (coalescer *Coalescer) emitPageAdds(ctx context.Context, bookID int64, tentatives []*Tentative) error {
	pageIDs := make([]int64, 0, len(tentatives))
	seen := make(map[int64]bool, len(tentatives))
	for _, tentative := range tentatives {
		if !seen[tentative.BookPageID] {
			seen[tentative.BookPageID] = true
			pageIDs = append(pageIDs, tentative.BookPageID)
		}
	}

	numbers, err := coalescer.repo.PageNumbers(ctx, pageIDs)
	if err != nil {
		return err
	}

	pages := make([]LogPage, 0, len(pageIDs))
	for _, pageID := range pageIDs {
		pageNo, alive := numbers[pageID]
		pages = append(pages, LogPage{
			BookPageID: pageID,
			PageNo:     pageNo,
			// Pages deleted before the cycle still get a row, flagged, so
			// the entry remains renderable.
			Deleted: !alive,
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].PageNo < pages[j].PageNo })

	action := ActionPageAdded
	if len(pages) > 1 {
		action = ActionPagesAdded
	}

	log := &Log{
		BookID:    bookID,
		Action:    action,
		TimeStamp: youngest(tentatives),
		Pages:     pages,
	}
	return coalescer.repo.Coalesce(ctx, log, tentativeIDs(tentatives))
}

func (coalescer *Coalescer) emitCompleted(ctx context.Context, bookID int64, tentatives []*Tentative) error {
	// The cover is whatever page the release recorded; usually page 1.
	coverID := tentatives[len(tentatives)-1].BookPageID
	numbers, err := coalescer.repo.PageNumbers(ctx, []int64{coverID})
	if err != nil {
		return err
	}
	pageNo, alive := numbers[coverID]

	log := &Log{
		BookID:    bookID,
		Action:    ActionCompleted,
		TimeStamp: youngest(tentatives),
		Pages: []LogPage{{
			BookPageID: coverID,
			PageNo:     pageNo,
			Deleted:    !alive,
		}},
	}
	return coalescer.repo.Coalesce(ctx, log, tentativeIDs(tentatives))
}

// youngest returns the most recent tentative timestamp.
func youngest(tentatives []*Tentative) time.Time {
	latest := tentatives[0].TimeStamp
	for _, tentative := range tentatives[1:] {
		if tentative.TimeStamp.After(latest) {
			latest = tentative.TimeStamp
		}
	}
	return latest
}

func tentativeIDs(tentatives []*Tentative) []int64 {
	ids := make([]int64, len(tentatives))
	for i, tentative := range tentatives {
		ids[i] = tentative.ID
	}
	return ids
}

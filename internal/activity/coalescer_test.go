package activity

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository for coalescer tests.
type fakeRepo struct {
	tentatives  map[int64]*Tentative
	logs        []*Log
	pageNumbers map[int64]int
	nextID      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tentatives:  map[int64]*Tentative{},
		pageNumbers: map[int64]int{},
	}
}

func (f *fakeRepo) InsertTentative(_ context.Context, t *Tentative) error {
	f.nextID++
	t.ID = f.nextID
	f.tentatives[t.ID] = t
	return nil
}

func (f *fakeRepo) BooksWithTentativeOlderThan(_ context.Context, cutoff time.Time) ([]int64, error) {
	seen := map[int64]bool{}
	ids := make([]int64, 0)
	for _, t := range f.tentatives {
		if t.TimeStamp.Before(cutoff) && !seen[t.BookID] {
			seen[t.BookID] = true
			ids = append(ids, t.BookID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) ListTentativeByBook(_ context.Context, bookID int64) ([]*Tentative, error) {
	out := make([]*Tentative, 0)
	for _, t := range f.tentatives {
		if t.BookID == bookID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) Coalesce(_ context.Context, log *Log, absorbedIDs []int64) error {
	f.nextID++
	log.ID = f.nextID
	f.logs = append(f.logs, log)
	for _, id := range absorbedIDs {
		delete(f.tentatives, id)
	}
	return nil
}

func (f *fakeRepo) ListByBook(_ context.Context, bookID int64, since time.Time) ([]*Log, error) {
	out := make([]*Log, 0)
	for _, log := range f.logs {
		if log.BookID == bookID && !log.TimeStamp.Before(since) {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByCreator(_ context.Context, _ int64, _ time.Time) ([]*Log, error) {
	return f.logs, nil
}

func (f *fakeRepo) ListAll(_ context.Context, _ time.Time) ([]*Log, error) {
	return f.logs, nil
}

func (f *fakeRepo) PageNumbers(_ context.Context, pageIDs []int64) (map[int64]int, error) {
	out := map[int64]int{}
	for _, id := range pageIDs {
		if pageNo, ok := f.pageNumbers[id]; ok {
			out[id] = pageNo
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkDeletedPages(_ context.Context) (int64, error) {
	var count int64
	for _, log := range f.logs {
		for i := range log.Pages {
			page := &log.Pages[i]
			if _, ok := f.pageNumbers[page.BookPageID]; !ok && !page.Deleted {
				page.Deleted = true
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeRepo) PruneEmpty(_ context.Context) (int64, error) {
	kept := f.logs[:0]
	var pruned int64
	for _, log := range f.logs {
		if len(log.LivePages()) > 0 {
			kept = append(kept, log)
		} else {
			pruned++
		}
	}
	f.logs = kept
	return pruned, nil
}

func (f *fakeRepo) DeleteByBook(_ context.Context, bookID int64) error {
	return nil
}

func newTestCoalescer(repo *fakeRepo, now time.Time) *Coalescer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCoalescer(repo, nil, logger)
	c.now = func() time.Time { return now }
	return c
}

/*
TestCoalescer_PageAddsFoldIntoOne verifies the threshold boundary: logs at
ages 3h and 5h with a 4h threshold fold into one "pages added" entry
timestamped at the younger log.
*/
func TestCoalescer_PageAddsFoldIntoOne(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pageNumbers[101] = 1
	repo.pageNumbers[102] = 2

	older := now.Add(-5 * time.Hour)
	younger := now.Add(-3 * time.Hour)
	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 101, Action: ActionPageAdded, TimeStamp: older}))
	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 102, Action: ActionPageAdded, TimeStamp: younger}))

	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, ActionPagesAdded, log.Action)
	assert.True(t, log.TimeStamp.Equal(younger), "timestamp must be the youngest tentative's")
	require.Len(t, log.Pages, 2)
	assert.Equal(t, 1, log.Pages[0].PageNo)
	assert.Equal(t, 2, log.Pages[1].PageNo)

	assert.Empty(t, repo.tentatives, "absorbed tentatives must be deleted")
}

/*
TestCoalescer_SinglePageIsSingular verifies a lone page yields "page added".
*/
func TestCoalescer_SinglePageIsSingular(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pageNumbers[101] = 1

	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 101, Action: ActionPageAdded, TimeStamp: now.Add(-5 * time.Hour)}))

	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))

	require.Len(t, repo.logs, 1)
	assert.Equal(t, ActionPageAdded, repo.logs[0].Action)
}

/*
TestCoalescer_YoungTentativesWait verifies logs younger than the threshold
are left alone.
*/
func TestCoalescer_YoungTentativesWait(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pageNumbers[101] = 1

	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 101, Action: ActionPageAdded, TimeStamp: now.Add(-time.Hour)}))

	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))

	assert.Empty(t, repo.logs)
	assert.Len(t, repo.tentatives, 1)
}

/*
TestCoalescer_CompletedReferencesCover verifies release records emit one
completed entry pointing at the cover page.
*/
func TestCoalescer_CompletedReferencesCover(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pageNumbers[101] = 1

	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 101, Action: ActionCompleted, TimeStamp: now.Add(-5 * time.Hour)}))

	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, ActionCompleted, log.Action)
	require.Len(t, log.Pages, 1)
	assert.Equal(t, int64(101), log.Pages[0].BookPageID)
	assert.Equal(t, 1, log.Pages[0].PageNo)
}

/*
TestCoalescer_DeletedPagesRewritten verifies association rows flip to
deleted after content churn, and empty entries are pruned.
*/
func TestCoalescer_DeletedPagesRewritten(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	repo.pageNumbers[101] = 1
	repo.pageNumbers[102] = 2

	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 101, Action: ActionPageAdded, TimeStamp: now.Add(-5 * time.Hour)}))
	require.NoError(t, repo.InsertTentative(context.Background(),
		&Tentative{BookID: 7, BookPageID: 102, Action: ActionPageAdded, TimeStamp: now.Add(-5 * time.Hour)}))
	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))
	require.Len(t, repo.logs, 1)

	// Page 101 is deleted; the next cycle rewrites the association.
	delete(repo.pageNumbers, 101)
	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))

	require.Len(t, repo.logs, 1)
	live := repo.logs[0].LivePages()
	require.Len(t, live, 1)
	assert.Equal(t, int64(102), live[0].BookPageID)

	// Deleting the last page prunes the whole entry.
	delete(repo.pageNumbers, 102)
	require.NoError(t, newTestCoalescer(repo, now).Run(context.Background()))
	assert.Empty(t, repo.logs)
}

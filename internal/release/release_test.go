package release

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
	"github.com/zcomx/zcomix/pkg/pagination"
	"github.com/zcomx/zcomix/pkg/slug"
)

// # Fakes

type fakeBooks struct {
	books  map[int64]*book.Book
	nextID int64
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{books: map[int64]*book.Book{}}
}

func (f *fakeBooks) Create(_ context.Context, b *book.Book) error {
	f.nextID++
	b.ID = f.nextID
	b.Status = book.StatusActive
	f.books[b.ID] = b
	return nil
}

func (f *fakeBooks) GetByID(_ context.Context, id int64) (*book.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperr.NotFound("Book")
	}
	clone := *b
	return &clone, nil
}

func (f *fakeBooks) Update(_ context.Context, b *book.Book) error {
	f.books[b.ID] = b
	return nil
}

func (f *fakeBooks) Delete(_ context.Context, id int64) error {
	delete(f.books, id)
	return nil
}

func (f *fakeBooks) Search(_ context.Context, _ string, _ pagination.Params) ([]*book.Book, int, error) {
	return nil, 0, nil
}

func (f *fakeBooks) ListByCreator(_ context.Context, _ int64, _ bool) ([]*book.Book, error) {
	return nil, nil
}

func (f *fakeBooks) ListReleased(_ context.Context) ([]*book.Book, error) {
	return nil, nil
}

func (f *fakeBooks) ReleasedDupes(_ context.Context, creatorID int64, titleFold string, excludeID int64) ([]*book.Book, error) {
	out := make([]*book.Book, 0)
	for _, b := range f.books {
		if b.ID == excludeID || b.CreatorID != creatorID || !b.Released() {
			continue
		}
		if slug.Fold(b.Title) == titleFold {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBooks) BeginReleasing(_ context.Context, id int64) (bool, error) {
	b := f.books[id]
	if b.Releasing {
		return false, nil
	}
	now := time.Now()
	b.Releasing = true
	b.ReleasingSetAt = &now
	return true, nil
}

func (f *fakeBooks) ClearReleasing(_ context.Context, id int64) error {
	b := f.books[id]
	b.Releasing = false
	b.ReleasingSetAt = nil
	return nil
}

func (f *fakeBooks) SetReleased(_ context.Context, id int64, at time.Time) error {
	b := f.books[id]
	b.ReleaseDate = &at
	b.Releasing = false
	b.ReleasingSetAt = nil
	return nil
}

func (f *fakeBooks) ClearRelease(_ context.Context, id int64) error {
	b := f.books[id]
	b.ReleaseDate = nil
	b.Archive = nil
	b.Torrent = nil
	b.Releasing = false
	b.ReleasingSetAt = nil
	return nil
}

func (f *fakeBooks) SetArchive(_ context.Context, id int64, archive *string) error {
	f.books[id].Archive = archive
	return nil
}

func (f *fakeBooks) SetTorrent(_ context.Context, id int64, torrent *string) error {
	f.books[id].Torrent = torrent
	return nil
}

func (f *fakeBooks) SetStatus(_ context.Context, id int64, status book.Status) error {
	f.books[id].Status = status
	return nil
}

func (f *fakeBooks) StaleReleasing(_ context.Context, cutoff time.Time) ([]*book.Book, error) {
	out := make([]*book.Book, 0)
	for _, b := range f.books {
		if b.Releasing && b.ReleasingSetAt != nil && b.ReleasingSetAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakePages struct {
	pages  map[int64]*book.Page
	nextID int64
}

func newFakePages() *fakePages {
	return &fakePages{pages: map[int64]*book.Page{}}
}

func (f *fakePages) InsertPage(_ context.Context, p *book.Page) error {
	f.nextID++
	p.ID = f.nextID
	f.pages[p.ID] = p
	return nil
}

func (f *fakePages) GetPage(_ context.Context, id int64) (*book.Page, error) {
	p, ok := f.pages[id]
	if !ok {
		return nil, apperr.NotFound("Page")
	}
	return p, nil
}

func (f *fakePages) DeletePage(_ context.Context, id int64) error {
	delete(f.pages, id)
	return nil
}

func (f *fakePages) ListPages(_ context.Context, bookID int64) ([]*book.Page, error) {
	out := make([]*book.Page, 0)
	for _, p := range f.pages {
		if p.BookID == bookID {
			out = append(out, p)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].PageNo < out[i].PageNo {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakePages) CountPages(ctx context.Context, bookID int64) (int, error) {
	pages, _ := f.ListPages(ctx, bookID)
	return len(pages), nil
}

func (f *fakePages) MaxPageNo(ctx context.Context, bookID int64) (int, error) {
	pages, _ := f.ListPages(ctx, bookID)
	max := 0
	for _, p := range pages {
		if p.PageNo > max {
			max = p.PageNo
		}
	}
	return max, nil
}

func (f *fakePages) FirstPage(ctx context.Context, bookID int64) (*book.Page, error) {
	pages, _ := f.ListPages(ctx, bookID)
	if len(pages) == 0 {
		return nil, apperr.NotFound("Page")
	}
	return pages[0], nil
}

func (f *fakePages) LastPage(ctx context.Context, bookID int64) (*book.Page, error) {
	pages, _ := f.ListPages(ctx, bookID)
	if len(pages) == 0 {
		return nil, apperr.NotFound("Page")
	}
	return pages[len(pages)-1], nil
}

func (f *fakePages) Renumber(ctx context.Context, bookID int64, orderedIDs []int64) ([]*book.Page, error) {
	keep := map[int64]int{}
	for i, id := range orderedIDs {
		keep[id] = i + 1
	}
	deleted := make([]*book.Page, 0)
	for id, p := range f.pages {
		if p.BookID != bookID {
			continue
		}
		if pageNo, ok := keep[id]; ok {
			p.PageNo = pageNo
		} else {
			deleted = append(deleted, p)
			delete(f.pages, id)
		}
	}
	return deleted, nil
}

type fakeMetadata struct {
	docs map[int64]*book.Metadata
}

func (f *fakeMetadata) GetMetadata(_ context.Context, bookID int64) (*book.Metadata, error) {
	m, ok := f.docs[bookID]
	if !ok {
		return nil, apperr.NotFound("Metadata")
	}
	return m, nil
}

func (f *fakeMetadata) HasMetadata(_ context.Context, bookID int64) (bool, error) {
	_, ok := f.docs[bookID]
	return ok, nil
}

func (f *fakeMetadata) ReplaceMetadata(_ context.Context, bookID int64, m *book.Metadata) error {
	f.docs[bookID] = m
	return nil
}

func (f *fakeMetadata) DeleteMetadata(_ context.Context, bookID int64) error {
	delete(f.docs, bookID)
	return nil
}

// fakeImages reports a cbz derivative for every ref except those listed in
// tooSmall, whose original width it reports instead.
type fakeImages struct {
	tooSmall map[string]int
}

func (f *fakeImages) HasSize(ref image.Ref, _ image.Size) bool {
	_, small := f.tooSmall[ref.String()]
	return !small
}

func (f *fakeImages) OriginalDescriptor(ref image.Ref) (image.Descriptor, error) {
	width := f.tooSmall[ref.String()]
	return image.Descriptor{Width: width, Height: width * 2, Orientation: image.OrientationPortrait}, nil
}

type fakeCreators struct {
	rebuild map[int64]bool
}

func (f *fakeCreators) MarkRebuildTorrent(_ context.Context, id int64, rebuild bool) error {
	if f.rebuild == nil {
		f.rebuild = map[int64]bool{}
	}
	f.rebuild[id] = rebuild
	return nil
}

type fakeActivity struct {
	completed []struct{ bookID, pageID int64 }
}

func (f *fakeActivity) Completed(_ context.Context, bookID, pageID int64) error {
	f.completed = append(f.completed, struct{ bookID, pageID int64 }{bookID, pageID})
	return nil
}

type fakeJobs struct {
	queued []struct {
		command string
		args    []string
	}
}

func (f *fakeJobs) Enqueue(_ context.Context, command string, args ...string) error {
	f.queued = append(f.queued, struct {
		command string
		args    []string
	}{command, args})
	return nil
}

func (f *fakeJobs) commands() []string {
	out := make([]string, len(f.queued))
	for i, job := range f.queued {
		out[i] = job.command
	}
	return out
}

// # Fixture

type fixture struct {
	books    *fakeBooks
	pages    *fakePages
	metadata *fakeMetadata
	images   *fakeImages
	creators *fakeCreators
	activity *fakeActivity
	jobs     *fakeJobs
	gate     *Gate
	driver   *Driver
	root     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		books:    newFakeBooks(),
		pages:    newFakePages(),
		metadata: &fakeMetadata{docs: map[int64]*book.Metadata{}},
		images:   &fakeImages{tooSmall: map[string]int{}},
		creators: &fakeCreators{},
		activity: &fakeActivity{},
		jobs:     &fakeJobs{},
		root:     t.TempDir(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.gate = NewGate(f.books, f.pages, f.metadata, f.images)
	f.driver = NewDriver(f.books, f.pages, f.gate, f.creators, f.activity, f.jobs, f.root, logger)
	return f
}

// releasableBook seeds a book that passes every gate check.
func (f *fixture) releasableBook(t *testing.T, title string) *book.Book {
	t.Helper()

	b := &book.Book{
		CreatorID: 1,
		Title:     title,
		Kind:      book.KindOneShot,
		Year:      2026,
		License:   "CC BY-SA",
	}
	require.NoError(t, f.books.Create(context.Background(), b))

	for i := 1; i <= 2; i++ {
		ref, err := image.NewRef("book_page.image", "page0"+strconv.Itoa(i)+".jpg")
		require.NoError(t, err)
		require.NoError(t, f.pages.InsertPage(context.Background(),
			&book.Page{BookID: b.ID, PageNo: i, Image: ref.String()}))
	}

	f.metadata.docs[b.ID] = &book.Metadata{BookID: b.ID, IsOriginal: true}
	return b
}

// # Gate Tests

/*
TestGate_CleanBookPasses verifies a complete book triggers no barriers.
*/
func TestGate_CleanBookPasses(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[b.ID], Eager)
	require.NoError(t, err)
	assert.Empty(t, barriers)
}

/*
TestGate_EagerCollectsAll verifies eager evaluation reports every barrier
at once for an empty book.
*/
func TestGate_EagerCollectsAll(t *testing.T) {
	f := newFixture(t)
	b := &book.Book{CreatorID: 1}
	require.NoError(t, f.books.Create(context.Background(), b))

	barriers, err := f.gate.Evaluate(context.Background(), b, Eager)
	require.NoError(t, err)

	codes := make([]BarrierCode, len(barriers))
	for i, barrier := range barriers {
		codes[i] = barrier.Code
	}
	assert.Equal(t, []BarrierCode{BarrierNoName, BarrierNoPages, BarrierNoLicence, BarrierNoMetadata}, codes)
}

/*
TestGate_FailFastStopsEarly verifies fail-fast mode returns only the first
triggered barrier.
*/
func TestGate_FailFastStopsEarly(t *testing.T) {
	f := newFixture(t)
	b := &book.Book{CreatorID: 1}
	require.NoError(t, f.books.Create(context.Background(), b))

	barriers, err := f.gate.Evaluate(context.Background(), b, FailFast)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierNoName, barriers[0].Code)
}

/*
TestGate_DupeDetectionFoldsAccents verifies the dupe comparison ignores
case and diacritics: "Cafe Tales" collides with a released "Café Tales".
*/
func TestGate_DupeDetectionFoldsAccents(t *testing.T) {
	f := newFixture(t)

	released := f.releasableBook(t, "Café Tales")
	now := time.Now()
	f.books.books[released.ID].ReleaseDate = &now
	f.books.books[released.ID].Kind = book.KindOngoing

	candidate := f.releasableBook(t, "Cafe Tales")

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[candidate.ID], Eager)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierDupeName, barriers[0].Code)
	require.Len(t, barriers[0].Fixes, 1)
	assert.Contains(t, barriers[0].Fixes[0], "Café Tales")
}

/*
TestGate_DupeNumber verifies same title, kind, and number blocks release.
*/
func TestGate_DupeNumber(t *testing.T) {
	f := newFixture(t)

	released := f.releasableBook(t, "Serial")
	now := time.Now()
	f.books.books[released.ID].ReleaseDate = &now

	candidate := f.releasableBook(t, "Serial")

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[candidate.ID], Eager)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierDupeNumber, barriers[0].Code)
}

/*
TestGate_AllRightsReserved verifies the ARR licence blocks release.
*/
func TestGate_AllRightsReserved(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	f.books.books[b.ID].License = book.LicenseAllRightsReserved

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[b.ID], Eager)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierLicenceARR, barriers[0].Code)
}

/*
TestGate_MissingFirstPage verifies a ledger without page one triggers the
invalid page number barrier.
*/
func TestGate_MissingFirstPage(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")

	pages, err := f.pages.ListPages(context.Background(), b.ID)
	require.NoError(t, err)
	pages[0].PageNo = 5

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[b.ID], Eager)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierInvalidPageNo, barriers[0].Code)
}

/*
TestGate_SmallImageNamesFileAndWidth verifies the cbz barrier fix names
the offending file and its pixel width.
*/
func TestGate_SmallImageNamesFileAndWidth(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")

	pages, err := f.pages.ListPages(context.Background(), b.ID)
	require.NoError(t, err)
	f.images.tooSmall[pages[1].Image] = 800

	barriers, err := f.gate.Evaluate(context.Background(), f.books.books[b.ID], Eager)
	require.NoError(t, err)
	require.Len(t, barriers, 1)
	assert.Equal(t, BarrierNoCBZImages, barriers[0].Code)
	require.Len(t, barriers[0].Fixes, 1)
	assert.Contains(t, barriers[0].Fixes[0], "page02.jpg")
	assert.Contains(t, barriers[0].Fixes[0], "800 px")
}

// # Driver Tests

/*
TestDriver_RequestRelease_Blocked verifies a gated book gets its barriers
back and no release state is touched.
*/
func TestDriver_RequestRelease_Blocked(t *testing.T) {
	f := newFixture(t)
	b := &book.Book{CreatorID: 1, Title: "Untitled"}
	require.NoError(t, f.books.Create(context.Background(), b))

	barriers, err := f.driver.RequestRelease(context.Background(), b.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, barriers)
	assert.False(t, f.books.books[b.ID].Releasing)
	assert.Empty(t, f.jobs.queued)
}

/*
TestDriver_RequestRelease_Queues verifies a clean book enters the
releasing state and a release job is queued.
*/
func TestDriver_RequestRelease_Queues(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")

	barriers, err := f.driver.RequestRelease(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, barriers)
	assert.True(t, f.books.books[b.ID].Releasing)

	require.Len(t, f.jobs.queued, 1)
	assert.Equal(t, "release_book", f.jobs.queued[0].command)
	assert.Equal(t, strconv.FormatInt(b.ID, 10), f.jobs.queued[0].args[0])

	// A second request conflicts while the first is in flight.
	_, err = f.driver.RequestRelease(context.Background(), b.ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestDriver_Step_FullPipeline walks the re-entrant pipeline to completion,
simulating the archive and torrent builders between steps.
*/
func TestDriver_Step_FullPipeline(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	_, err := f.driver.RequestRelease(ctx, b.ID)
	require.NoError(t, err)

	// Step 0: optimization fan-out plus the archive build.
	require.NoError(t, f.driver.Step(ctx, b.ID, 0))
	assert.Contains(t, f.jobs.commands(), "optimize_img_for_release")
	assert.Contains(t, f.jobs.commands(), "create_cbz")

	archive := "cbz/M/FirstLast/MyBook.cbz"
	require.NoError(t, f.books.SetArchive(ctx, b.ID, &archive))

	// Step 1: the torrent build.
	require.NoError(t, f.driver.Step(ctx, b.ID, 1))
	assert.Contains(t, f.jobs.commands(), "create_torrent")

	torrent := "tor/M/MyBook.torrent"
	require.NoError(t, f.books.SetTorrent(ctx, b.ID, &torrent))

	// Step 2: finalize.
	require.NoError(t, f.driver.Step(ctx, b.ID, 2))

	got := f.books.books[b.ID]
	assert.True(t, got.Released())
	assert.False(t, got.Releasing)
	assert.True(t, f.creators.rebuild[b.CreatorID])
	assert.Contains(t, f.jobs.commands(), "purge_torrents")

	require.Len(t, f.activity.completed, 1)
	cover, err := f.pages.FirstPage(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, cover.ID, f.activity.completed[0].pageID)

	// Re-entry after completion is a no-op.
	before := len(f.jobs.queued)
	require.NoError(t, f.driver.Step(ctx, b.ID, 3))
	assert.Len(t, f.jobs.queued, before)
}

/*
TestDriver_Step_GateFailure verifies a failing re-check surfaces a
BarrierError and clears the releasing flag so the book stays ongoing.
*/
func TestDriver_Step_GateFailure(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	_, err := f.driver.RequestRelease(ctx, b.ID)
	require.NoError(t, err)

	// The licence is withdrawn between request and job run.
	f.books.books[b.ID].License = ""

	err = f.driver.Step(ctx, b.ID, 0)
	var barrierErr *BarrierError
	require.ErrorAs(t, err, &barrierErr)
	assert.Equal(t, BarrierNoLicence, barrierErr.Barriers[0].Code)
	assert.False(t, f.books.books[b.ID].Releasing)
	assert.Nil(t, f.books.books[b.ID].ReleaseDate)
}

/*
TestDriver_Reverse verifies un-releasing removes both artifact files and
nulls the release columns while the page ledger survives.
*/
func TestDriver_Reverse(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	archive := "cbz/M/FirstLast/MyBook.cbz"
	torrent := "tor/M/MyBook.torrent"
	for _, rel := range []string{archive, torrent} {
		path := filepath.Join(f.root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	require.NoError(t, f.books.SetArchive(ctx, b.ID, &archive))
	require.NoError(t, f.books.SetTorrent(ctx, b.ID, &torrent))
	require.NoError(t, f.books.SetReleased(ctx, b.ID, time.Now()))

	require.NoError(t, f.driver.Reverse(ctx, b.ID))

	got := f.books.books[b.ID]
	assert.Nil(t, got.ReleaseDate)
	assert.Nil(t, got.Archive)
	assert.Nil(t, got.Torrent)
	assert.NoFileExists(t, filepath.Join(f.root, filepath.FromSlash(archive)))
	assert.NoFileExists(t, filepath.Join(f.root, filepath.FromSlash(torrent)))

	count, err := f.pages.CountPages(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "page ledger must survive un-release")
	assert.True(t, f.creators.rebuild[b.CreatorID])
}

/*
TestDriver_DeleteBook verifies the delete job removes pages, artifacts,
and release state, and queues image deletion plus log rewriting.
*/
func TestDriver_DeleteBook(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	require.NoError(t, f.driver.DeleteBook(ctx, b.ID))

	count, err := f.pages.CountPages(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	commands := f.jobs.commands()
	assert.Contains(t, commands, "delete_img")
	assert.Contains(t, commands, "process_activity_logs")
	assert.Contains(t, commands, "purge_torrents")
}

/*
TestDriver_RecoverStale verifies flags older than the TTL are cleared.
*/
func TestDriver_RecoverStale(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	_, err := f.books.BeginReleasing(ctx, b.ID)
	require.NoError(t, err)
	old := time.Now().Add(-48 * time.Hour)
	f.books.books[b.ID].ReleasingSetAt = &old

	require.NoError(t, f.driver.RecoverStale(ctx))
	assert.False(t, f.books.books[b.ID].Releasing)
}

/*
TestDriver_RequeueBound verifies a pipeline that never converges gives up
after the bounded number of requeues and clears the flag.
*/
func TestDriver_RequeueBound(t *testing.T) {
	f := newFixture(t)
	b := f.releasableBook(t, "My Book")
	ctx := context.Background()

	_, err := f.driver.RequestRelease(ctx, b.ID)
	require.NoError(t, err)

	// The archive never materializes; requeues exhaust the budget.
	err = f.driver.Step(ctx, b.ID, 25)
	require.Error(t, err)
	assert.False(t, f.books.books[b.ID].Releasing)
}

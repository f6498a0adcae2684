package feed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcomx/zcomix/internal/activity"
	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/image"
	"github.com/zcomx/zcomix/internal/platform/apperr"
)

type fakeActivity struct {
	logs []*activity.Log
}

func (f *fakeActivity) filter(since time.Time, match func(*activity.Log) bool) []*activity.Log {
	out := make([]*activity.Log, 0)
	for _, log := range f.logs {
		if !log.TimeStamp.Before(since) && match(log) {
			out = append(out, log)
		}
	}
	return out
}

func (f *fakeActivity) ListAll(_ context.Context, since time.Time) ([]*activity.Log, error) {
	return f.filter(since, func(*activity.Log) bool { return true }), nil
}

func (f *fakeActivity) ListByBook(_ context.Context, bookID int64, since time.Time) ([]*activity.Log, error) {
	return f.filter(since, func(l *activity.Log) bool { return l.BookID == bookID }), nil
}

func (f *fakeActivity) ListByCreator(_ context.Context, _ int64, since time.Time) ([]*activity.Log, error) {
	return f.filter(since, func(*activity.Log) bool { return true }), nil
}

type fakeBooks struct {
	books map[int64]*book.Book
}

func (f *fakeBooks) GetByID(_ context.Context, id int64) (*book.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperr.NotFound("Book")
	}
	return b, nil
}

type fakePages struct {
	pages map[int64]*book.Page
}

func (f *fakePages) GetPage(_ context.Context, id int64) (*book.Page, error) {
	p, ok := f.pages[id]
	if !ok {
		return nil, apperr.NotFound("Page")
	}
	return p, nil
}

type fakeCreators struct {
	creators map[int64]*creator.Creator
}

func (f *fakeCreators) GetByID(_ context.Context, id int64) (*creator.Creator, error) {
	c, ok := f.creators[id]
	if !ok {
		return nil, apperr.NotFound("Creator")
	}
	return c, nil
}

func (f *fakeCreators) GetBySlug(_ context.Context, slug string) (*creator.Creator, error) {
	for _, c := range f.creators {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, apperr.NotFound("Creator")
}

type fakeImages struct {
	path string
}

func (f *fakeImages) Resolve(_ image.Ref, _ image.Size) (string, image.Size, error) {
	return f.path, image.SizeWeb, nil
}

type feedFixture struct {
	activity *fakeActivity
	renderer *Renderer
	now      time.Time
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()

	ref, err := image.NewRef("book_page.image", "cover.jpg")
	require.NoError(t, err)

	webFile := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(webFile, []byte("jpeg bytes"), 0o644))

	f := &feedFixture{
		activity: &fakeActivity{},
		now:      time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
	}

	books := &fakeBooks{books: map[int64]*book.Book{
		7: {ID: 7, CreatorID: 5, Title: "My Book", Kind: book.KindOngoing, Number: 1},
	}}
	pages := &fakePages{pages: map[int64]*book.Page{
		101: {ID: 101, BookID: 7, PageNo: 1, Image: ref.String()},
		102: {ID: 102, BookID: 7, PageNo: 2, Image: ref.String()},
	}}
	creators := &fakeCreators{creators: map[int64]*creator.Creator{
		5: {ID: 5, Name: "First Last", Slug: "FirstLast"},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.renderer = NewRenderer(f.activity, books, pages, creators, &fakeImages{path: webFile}, "https://zco.mx", logger)
	f.renderer.now = func() time.Time { return f.now }
	return f
}

/*
TestRenderer_BookChannel verifies the per-book channel: title with the
run list, non-perma guid, pubDate at the log timestamp, an enclosure with
MIME and length, and the atom self link.
*/
func TestRenderer_BookChannel(t *testing.T) {
	f := newFeedFixture(t)
	stamp := f.now.Add(-2 * time.Hour)
	f.activity.logs = append(f.activity.logs, &activity.Log{
		ID: 42, BookID: 7, Action: activity.ActionPagesAdded, TimeStamp: stamp,
		Pages: []activity.LogPage{
			{BookPageID: 101, PageNo: 1},
			{BookPageID: 102, PageNo: 2},
		},
	})

	body, err := f.renderer.Render(context.Background(), KindBook, "7")
	require.NoError(t, err)
	doc := string(body)

	assert.Contains(t, doc, "<title>&#39;My Book 001&#39; p01 p02 by First Last</title>")
	assert.Contains(t, doc, "<guid isPermaLink=\"false\">zcomx-000000042</guid>")
	assert.Contains(t, doc, "<pubDate>"+stamp.Format(time.RFC1123Z)+"</pubDate>")
	assert.Contains(t, doc, "atom:link href=\"https://zco.mx/rss/book/7\" rel=\"self\"")
	assert.Contains(t, doc, "type=\"image/jpeg\"")
	assert.Contains(t, doc, "length=\"10\"")
	assert.Contains(t, doc, "https://zco.mx/FirstLast/MyBook-001")
}

/*
TestRenderer_CompletedTitle verifies release entries read as
"'<book>' complete by <creator>".
*/
func TestRenderer_CompletedTitle(t *testing.T) {
	f := newFeedFixture(t)
	f.activity.logs = append(f.activity.logs, &activity.Log{
		ID: 43, BookID: 7, Action: activity.ActionCompleted, TimeStamp: f.now.Add(-time.Hour),
		Pages: []activity.LogPage{{BookPageID: 101, PageNo: 1}},
	})

	body, err := f.renderer.Render(context.Background(), KindAll, "")
	require.NoError(t, err)
	assert.Contains(t, string(body), "&#39;My Book 001&#39; complete by First Last")
}

/*
TestRenderer_AllWindow verifies the site-wide channel drops items older
than seven days while the book channel keeps them for thirty.
*/
func TestRenderer_AllWindow(t *testing.T) {
	f := newFeedFixture(t)
	f.activity.logs = append(f.activity.logs, &activity.Log{
		ID: 44, BookID: 7, Action: activity.ActionPageAdded, TimeStamp: f.now.Add(-10 * 24 * time.Hour),
		Pages: []activity.LogPage{{BookPageID: 101, PageNo: 1}},
	})

	body, err := f.renderer.Render(context.Background(), KindAll, "")
	require.NoError(t, err)
	assert.NotContains(t, string(body), "zcomx-000000044")

	body, err = f.renderer.Render(context.Background(), KindBook, "7")
	require.NoError(t, err)
	assert.Contains(t, string(body), "zcomx-000000044")
}

/*
TestRenderer_CreatorBySlug verifies creator channels resolve slug refs.
*/
func TestRenderer_CreatorBySlug(t *testing.T) {
	f := newFeedFixture(t)

	body, err := f.renderer.Render(context.Background(), KindCreator, "FirstLast")
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>zco.mx: First Last</title>")
}

/*
TestRunList verifies run list formatting, including the abridged form.
*/
func TestRunList(t *testing.T) {
	pages := func(numbers ...int) []activity.LogPage {
		out := make([]activity.LogPage, len(numbers))
		for i, n := range numbers {
			out[i] = activity.LogPage{PageNo: n}
		}
		return out
	}

	tests := []struct {
		name  string
		pages []activity.LogPage
		want  string
	}{
		{"single", pages(3), "p03"},
		{"run with gap", pages(3, 4, 5, 7), "p03 p04 p05 p07"},
		{"unsorted input", pages(5, 3, 4), "p03 p04 p05"},
		{"abridged", pages(1, 2, 3, 4, 5, 6, 7, 8), "p01 p02 p03 p04 ... p08"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, runList(tc.pages))
		})
	}
}

/*
TestParseKind rejects unknown channel kinds.
*/
func TestParseKind(t *testing.T) {
	_, err := ParseKind("everything")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)
}

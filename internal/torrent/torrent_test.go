package torrent

import (
	"bytes"
	"context"
	"crypto/sha1"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackpal/bencode-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcomx/zcomix/internal/book"
	"github.com/zcomx/zcomix/internal/creator"
	"github.com/zcomx/zcomix/internal/platform/apperr"
)

var testTrackers = []string{"http://tracker.zco.mx:6969/announce", "udp://tracker.example.org:80"}

func decodeTorrent(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	doc, err := bencode.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	m, ok := doc.(map[string]interface{})
	require.True(t, ok, "torrent document must be a dict")
	return m
}

/*
TestMetainfo_SingleFile verifies the single-file form: name and length
come from the lone entry and the pieces are the SHA1 of its content.
*/
func TestMetainfo_SingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.cbz")
	content := []byte("archive content")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	data, err := metainfo("MyBook-001.cbz", []entry{{src: src, path: []string{"MyBook-001.cbz"}}}, testTrackers, createdAt)
	require.NoError(t, err)

	doc := decodeTorrent(t, data)
	assert.Equal(t, testTrackers[0], doc["announce"])
	assert.Equal(t, createdAt.Unix(), doc["creation date"])

	info := doc["info"].(map[string]interface{})
	assert.Equal(t, "MyBook-001.cbz", info["name"])
	assert.Equal(t, int64(len(content)), info["length"])
	assert.Equal(t, int64(pieceLength), info["piece length"])

	sum := sha1.Sum(content)
	assert.Equal(t, string(sum[:]), info["pieces"])
}

/*
TestMetainfo_MultiFile verifies pieces span file boundaries: two small
files hash as one concatenated stream.
*/
func TestMetainfo_MultiFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.cbz")
	second := filepath.Join(dir, "b.cbz")
	require.NoError(t, os.WriteFile(first, []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("bb"), 0o644))

	entries := []entry{
		{src: first, path: []string{"Alice", "a.cbz"}},
		{src: second, path: []string{"Bob", "b.cbz"}},
	}
	data, err := metainfo("zco.mx", entries, testTrackers, time.Now())
	require.NoError(t, err)

	info := decodeTorrent(t, data)["info"].(map[string]interface{})
	assert.Equal(t, "zco.mx", info["name"])

	files := info["files"].([]interface{})
	require.Len(t, files, 2)
	firstFile := files[0].(map[string]interface{})
	assert.Equal(t, int64(4), firstFile["length"])
	assert.Equal(t, []interface{}{"Alice", "a.cbz"}, firstFile["path"])

	sum := sha1.Sum([]byte("aaaabb"))
	assert.Equal(t, string(sum[:]), info["pieces"])
}

/*
TestMetainfo_NoTrackers verifies an empty tracker list is refused rather
than producing a document with no announce URL.
*/
func TestMetainfo_NoTrackers(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.cbz")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err := metainfo("a.cbz", []entry{{src: src, path: []string{"a.cbz"}}}, nil, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trackers")
}

// # Builder fakes

type fakeBooks struct {
	books    map[int64]*book.Book
	torrents map[int64]*string
}

func (f *fakeBooks) GetByID(_ context.Context, id int64) (*book.Book, error) {
	b, ok := f.books[id]
	if !ok {
		return nil, apperr.NotFound("Book")
	}
	return b, nil
}

func (f *fakeBooks) SetTorrent(_ context.Context, id int64, torrent *string) error {
	f.torrents[id] = torrent
	f.books[id].Torrent = torrent
	return nil
}

func (f *fakeBooks) ListByCreator(_ context.Context, creatorID int64, onlyReleased bool) ([]*book.Book, error) {
	out := make([]*book.Book, 0)
	for _, b := range f.books {
		if b.CreatorID == creatorID && (!onlyReleased || b.Released()) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBooks) ListReleased(_ context.Context) ([]*book.Book, error) {
	out := make([]*book.Book, 0)
	for _, b := range f.books {
		if b.Released() {
			out = append(out, b)
		}
	}
	return out, nil
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

func (f *fakeCreators) SetTorrent(_ context.Context, id int64, torrent *string) error {
	f.creators[id].Torrent = torrent
	return nil
}

func (f *fakeCreators) MarkRebuildTorrent(_ context.Context, id int64, rebuild bool) error {
	f.creators[id].RebuildTorrent = rebuild
	return nil
}

func (f *fakeCreators) ListRebuildTorrent(_ context.Context) ([]*creator.Creator, error) {
	out := make([]*creator.Creator, 0)
	for _, c := range f.creators {
		if c.RebuildTorrent {
			out = append(out, c)
		}
	}
	return out, nil
}

type torrentFixture struct {
	books    *fakeBooks
	creators *fakeCreators
	builder  *Builder
	root     string
}

func newTorrentFixture(t *testing.T) *torrentFixture {
	t.Helper()

	f := &torrentFixture{
		books:    &fakeBooks{books: map[int64]*book.Book{}, torrents: map[int64]*string{}},
		creators: &fakeCreators{creators: map[int64]*creator.Creator{}},
		root:     t.TempDir(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.builder = NewBuilder(f.books, f.creators, f.root, testTrackers, logger)
	return f
}

// releasedBook seeds a released book with a real archive file on disk.
func (f *torrentFixture) releasedBook(t *testing.T, id, creatorID int64, title string) *book.Book {
	t.Helper()

	now := time.Now()
	b := &book.Book{
		ID:          id,
		CreatorID:   creatorID,
		Title:       title,
		Kind:        book.KindOneShot,
		ReleaseDate: &now,
	}
	c := f.creators.creators[creatorID]

	rel := "cbz/" + c.Letter() + "/" + c.Slug + "/" + b.ArchiveName()
	abs := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte("cbz bytes for "+title), 0o644))
	b.Archive = &rel

	f.books.books[id] = b
	return b
}

/*
TestBuilder_BuildBook verifies the book torrent lands beside the
creator's archives and its reference is recorded.
*/
func TestBuilder_BuildBook(t *testing.T) {
	f := newTorrentFixture(t)
	f.creators.creators[5] = &creator.Creator{ID: 5, Name: "First Last", Slug: "FirstLast"}
	f.releasedBook(t, 1, 5, "My Book")

	rel, err := f.builder.BuildBook(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "tor/F/FirstLast/MyBook.torrent", rel)
	require.NotNil(t, f.books.torrents[1])
	assert.Equal(t, rel, *f.books.torrents[1])

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	info := decodeTorrent(t, data)["info"].(map[string]interface{})
	assert.Equal(t, "MyBook.cbz", info["name"])
}

/*
TestBuilder_BuildBook_NoArchive verifies a book without an archive is
refused.
*/
func TestBuilder_BuildBook_NoArchive(t *testing.T) {
	f := newTorrentFixture(t)
	f.creators.creators[5] = &creator.Creator{ID: 5, Slug: "FirstLast"}
	f.books.books[1] = &book.Book{ID: 1, CreatorID: 5, Title: "My Book"}

	_, err := f.builder.BuildBook(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", apperr.As(err).Code)
}

/*
TestBuilder_BuildCreator verifies the multi-file creator torrent covers
every released archive and clears the rebuild flag.
*/
func TestBuilder_BuildCreator(t *testing.T) {
	f := newTorrentFixture(t)
	f.creators.creators[5] = &creator.Creator{ID: 5, Name: "First Last", Slug: "FirstLast", RebuildTorrent: true}
	f.releasedBook(t, 1, 5, "Alpha")
	f.releasedBook(t, 2, 5, "Beta")

	rel, err := f.builder.BuildCreator(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "tor/F/FirstLast.torrent", rel)

	c := f.creators.creators[5]
	assert.False(t, c.RebuildTorrent)
	require.NotNil(t, c.Torrent)

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	info := decodeTorrent(t, data)["info"].(map[string]interface{})
	assert.Equal(t, "FirstLast", info["name"])
	files := info["files"].([]interface{})
	require.Len(t, files, 2)
	assert.Equal(t, []interface{}{"Alpha.cbz"}, files[0].(map[string]interface{})["path"])
	assert.Equal(t, []interface{}{"Beta.cbz"}, files[1].(map[string]interface{})["path"])
}

/*
TestBuilder_BuildCreator_Retires verifies a creator with nothing released
loses their torrent file and reference.
*/
func TestBuilder_BuildCreator_Retires(t *testing.T) {
	f := newTorrentFixture(t)
	stale := "tor/F/FirstLast.torrent"
	f.creators.creators[5] = &creator.Creator{
		ID: 5, Slug: "FirstLast", Torrent: &stale, RebuildTorrent: true,
	}
	abs := filepath.Join(f.root, filepath.FromSlash(stale))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte("old"), 0o644))

	rel, err := f.builder.BuildCreator(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, rel)

	c := f.creators.creators[5]
	assert.Nil(t, c.Torrent)
	assert.False(t, c.RebuildTorrent)
	assert.NoFileExists(t, abs)
}

/*
TestBuilder_Purge verifies stale creators are rebuilt and the site-wide
torrent spans everyone's archives under <CreatorSlug>/ paths.
*/
func TestBuilder_Purge(t *testing.T) {
	f := newTorrentFixture(t)
	f.creators.creators[5] = &creator.Creator{ID: 5, Slug: "FirstLast", RebuildTorrent: true}
	f.creators.creators[6] = &creator.Creator{ID: 6, Slug: "OtherOne", RebuildTorrent: false}
	f.releasedBook(t, 1, 5, "Alpha")
	f.releasedBook(t, 2, 6, "Gamma")

	require.NoError(t, f.builder.Purge(context.Background()))

	assert.False(t, f.creators.creators[5].RebuildTorrent)
	assert.NotNil(t, f.creators.creators[5].Torrent)
	assert.Nil(t, f.creators.creators[6].Torrent, "unflagged creators are not rebuilt")

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(allTorrentRel)))
	require.NoError(t, err)
	info := decodeTorrent(t, data)["info"].(map[string]interface{})
	assert.Equal(t, "zco.mx", info["name"])

	files := info["files"].([]interface{})
	require.Len(t, files, 2)
	assert.Equal(t, []interface{}{"FirstLast", "Alpha.cbz"}, files[0].(map[string]interface{})["path"])
	assert.Equal(t, []interface{}{"OtherOne", "Gamma.cbz"}, files[1].(map[string]interface{})["path"])
}

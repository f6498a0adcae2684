package image

import (
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG renders a blank PNG of the given dimensions at path.
func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, width, height))))
}

// fakeResizer records resize calls and writes a marker file.
type fakeResizer struct {
	calls []int
}

func (f *fakeResizer) Resize(srcPath, dstPath string, longEdge int) error {
	f.calls = append(f.calls, longEdge)
	return os.WriteFile(dstPath, []byte("resized"), 0o644)
}

func newTestStore(t *testing.T, resizer Resizer) *Store {
	t.Helper()
	return NewStore(t.TempDir(), NewProcessor(), resizer, slog.Default())
}

/*
TestStore_StoreAndRetrieve covers the original round-trip law: bytes read
back from the original derivative equal the upload.
*/
func TestStore_StoreAndRetrieve(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "cover.png")
	writePNG(t, src, 2600, 3400)

	uploaded, err := os.ReadFile(src)
	require.NoError(t, err)

	ref, err := store.Store("book_page.image", src, "cover.png")
	require.NoError(t, err)

	filename, path, err := store.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "cover.png", filename)

	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uploaded, stored)
}

/*
TestStore_KeepsUploadedFilename verifies the reference is named after the
upload, not the spool file it arrives on.
*/
func TestStore_KeepsUploadedFilename(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "upload-83712.png")
	writePNG(t, src, 800, 1000)

	ref, err := store.Store("book_page.image", src, "sunday-strip.png")
	require.NoError(t, err)
	assert.Equal(t, "sunday-strip.png", ref.Filename)

	filename, _, err := store.Retrieve(ref)
	require.NoError(t, err)
	assert.Equal(t, "sunday-strip.png", filename)
}

/*
TestStore_DerivativePolicy verifies which size classes are rendered for a
portrait original that meets cbz minima.
*/
func TestStore_DerivativePolicy(t *testing.T) {
	resizer := &fakeResizer{}
	store := newTestStore(t, resizer)

	src := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, src, 2600, 3400)

	ref, err := store.Store("book_page.image", src, "page.png")
	require.NoError(t, err)

	assert.True(t, store.HasSize(ref, SizeOriginal))
	assert.True(t, store.HasSize(ref, SizeCBZ))
	assert.True(t, store.HasSize(ref, SizeWeb))
	assert.True(t, store.HasSize(ref, SizeTbn))

	// Portrait targets: cbz 1600, web 750, tbn 170.
	assert.Equal(t, []int{1600, 750, 170}, resizer.calls)
}

/*
TestStore_SkipsCBZBelowMinimum verifies that a small-but-acceptable upload
produces no cbz derivative.
*/
func TestStore_SkipsCBZBelowMinimum(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "small.png")
	writePNG(t, src, 800, 1000)

	ref, err := store.Store("book_page.image", src, "small.png")
	require.NoError(t, err)

	assert.False(t, store.HasSize(ref, SizeCBZ))
	assert.True(t, store.HasSize(ref, SizeWeb))
}

/*
TestStore_RejectsBelowWebMinimum verifies that undersized uploads fail with
a TooSmallError naming the file.
*/
func TestStore_RejectsBelowWebMinimum(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "tiny.png")
	writePNG(t, src, 300, 400)

	_, err := store.Store("book_page.image", src, "tiny.png")
	require.Error(t, err)

	var tooSmall *TooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, "tiny.png", tooSmall.Filename)
	assert.Equal(t, 300, tooSmall.Width)
}

/*
TestStore_ResolveFallsBackToOriginal covers the boundary behavior: asking
for a derivative that was skipped serves the original, never a 404.
*/
func TestStore_ResolveFallsBackToOriginal(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "small.png")
	writePNG(t, src, 800, 1000)

	ref, err := store.Store("book_page.image", src, "small.png")
	require.NoError(t, err)

	path, served, err := store.Resolve(ref, SizeCBZ)
	require.NoError(t, err)
	assert.Equal(t, SizeOriginal, served)
	assert.Equal(t, store.Path(ref, SizeOriginal), path)
}

/*
TestStore_DeleteIdempotent verifies that delete removes every size class
and tolerates repeat calls.
*/
func TestStore_DeleteIdempotent(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "page.png")
	writePNG(t, src, 2600, 3400)

	ref, err := store.Store("book_page.image", src, "page.png")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ref))
	for _, size := range Sizes {
		assert.False(t, store.HasSize(ref, size))
	}

	// Second delete is a no-op.
	assert.NoError(t, store.Delete(ref))
}

/*
TestStore_RejectsNonImage verifies corrupt uploads fail with format errors.
*/
func TestStore_RejectsNonImage(t *testing.T) {
	store := newTestStore(t, &fakeResizer{})

	src := filepath.Join(t.TempDir(), "fake.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	_, err := store.Store("book_page.image", src, "fake.png")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

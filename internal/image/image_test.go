package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestRef_RoundTrip verifies that references survive encode/parse cycles.
*/
func TestRef_RoundTrip(t *testing.T) {
	ref, err := NewRef("book_page.image", "My Cover Page.JPEG")
	require.NoError(t, err)

	assert.Equal(t, "book_page", ref.Table)
	assert.Equal(t, "image", ref.Field)
	assert.Len(t, ref.Key, 16)
	assert.Equal(t, "My Cover Page.jpg", ref.Filename)

	parsed, err := ParseRef(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

/*
TestRef_RejectsUnsupported verifies that non-image uploads are refused.
*/
func TestRef_RejectsUnsupported(t *testing.T) {
	_, err := NewRef("book_page.image", "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseRef("not-a-ref")
	assert.Error(t, err)
}

/*
TestRef_DerivativeExt verifies the GIF-to-PNG derivative rule.
*/
func TestRef_DerivativeExt(t *testing.T) {
	ref, err := NewRef("creator.portrait", "avatar.gif")
	require.NoError(t, err)

	assert.Equal(t, ".gif", ref.DerivativeExt(SizeOriginal))
	assert.Equal(t, ".png", ref.DerivativeExt(SizeWeb))
	assert.Equal(t, ".png", ref.DerivativeExt(SizeCBZ))
}

/*
TestOrient covers the aspect-ratio classification.
*/
func TestOrient(t *testing.T) {
	assert.Equal(t, OrientationLandscape, Orient(200, 100))
	assert.Equal(t, OrientationPortrait, Orient(100, 200))
	assert.Equal(t, OrientationSquare, Orient(150, 150))
}

/*
TestMeetsMinimum exercises the size policy: derivatives are never upscaled.
*/
func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		size   Size
		want   bool
	}{
		{"large_portrait_cbz", 2600, 3400, SizeCBZ, true},
		{"small_portrait_cbz", 800, 1000, SizeCBZ, false},
		{"small_portrait_web", 800, 1000, SizeWeb, true},
		{"tiny_portrait_web", 300, 500, SizeWeb, false},
		{"landscape_cbz_edge", 2560, 1200, SizeCBZ, true},
		{"landscape_cbz_short", 2000, 1200, SizeCBZ, false},
		{"landscape_web", 1200, 700, SizeWeb, true},
		{"square_web", 750, 750, SizeWeb, true},
		{"anything_original", 10, 10, SizeOriginal, true},
		{"thumbnail", 200, 300, SizeTbn, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{Width: tt.width, Height: tt.height, Orientation: Orient(tt.width, tt.height)}
			assert.Equal(t, tt.want, MeetsMinimum(d, tt.size))
		})
	}
}

/*
TestTooSmallError_Message verifies the fix-hint wording names the file and width.
*/
func TestTooSmallError_Message(t *testing.T) {
	err := &TooSmallError{Filename: "page01.jpg", Width: 800, Height: 1000, Size: SizeCBZ}
	assert.Contains(t, err.Error(), "page01.jpg")
	assert.Contains(t, err.Error(), "800 px")
}

/*
TestParseSize verifies fallback behavior for unknown size parameters.
*/
func TestParseSize(t *testing.T) {
	assert.Equal(t, SizeCBZ, ParseSize("cbz"))
	assert.Equal(t, SizeOriginal, ParseSize(""))
	assert.Equal(t, SizeOriginal, ParseSize("huge"))
}

package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestProcessor_Descriptor verifies dimension and orientation measurement.
*/
func TestProcessor_Descriptor(t *testing.T) {
	processor := NewProcessor()

	path := filepath.Join(t.TempDir(), "img.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 300, 200))))
	require.NoError(t, file.Close())

	descriptor, err := processor.Descriptor(path)
	require.NoError(t, err)
	assert.Equal(t, 300, descriptor.Width)
	assert.Equal(t, 200, descriptor.Height)
	assert.Equal(t, OrientationLandscape, descriptor.Orientation)
}

/*
TestProcessor_Resize verifies aspect-preserving long-edge scaling.
*/
func TestProcessor_Resize(t *testing.T) {
	processor := NewProcessor()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src.png")
	file, err := os.Create(srcPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 400, 100))))
	require.NoError(t, file.Close())

	dstPath := filepath.Join(dir, "dst.png")
	require.NoError(t, processor.Resize(srcPath, dstPath, 100))

	descriptor, err := processor.Descriptor(dstPath)
	require.NoError(t, err)
	assert.Equal(t, 100, descriptor.Width)
	assert.Equal(t, 25, descriptor.Height)
}

/*
TestProcessor_ResizeGIFToPNG verifies the derivative format switch: a .gif
source resized to a .png destination decodes as PNG.
*/
func TestProcessor_ResizeGIFToPNG(t *testing.T) {
	processor := NewProcessor()
	dir := t.TempDir()

	srcPath := filepath.Join(dir, "src.png")
	file, err := os.Create(srcPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, image.NewRGBA(image.Rect(0, 0, 80, 80))))
	require.NoError(t, file.Close())

	dstPath := filepath.Join(dir, "dst.png")
	require.NoError(t, processor.Resize(srcPath, dstPath, 40))

	data, err := os.ReadFile(dstPath)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

/*
TestPPM_RoundTrip exercises the local netpbm codec (P6 binary form).
*/
func TestPPM_RoundTrip(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	src.SetRGBA(2, 1, color.RGBA{0, 0, 255, 255})

	var buf bytes.Buffer
	require.NoError(t, encodePPM(&buf, src))

	decoded, err := decodePPM(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), decoded.Bounds())

	r, _, _, _ := decoded.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

/*
TestPPM_DecodeConfigViaImage verifies registration with the image package.
*/
func TestPPM_DecodeConfigViaImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodePPM(&buf, image.NewRGBA(image.Rect(0, 0, 5, 7))))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "ppm", format)
	assert.Equal(t, 5, cfg.Width)
	assert.Equal(t, 7, cfg.Height)
}

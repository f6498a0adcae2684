package image

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	// The named codec imports also register their decoders with image.Decode.
	// PPM registration lives in ppm.go.
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// jpegQuality is the encode quality for resized JPEG derivatives.
const jpegQuality = 90

// Resizer renders a derivative of a source image at a target long edge.
// The production implementation decodes and resamples in-process; tests
// substitute fakes.
type Resizer interface {
	Resize(srcPath, dstPath string, longEdge int) error
}

// Optimizer applies best-effort lossless size reduction to an image file.
type Optimizer interface {
	Optimize(path string) error
}

// Processor measures, decodes, resizes, and re-encodes images. It is
// stateless and safe for concurrent use.
type Processor struct{}

// NewProcessor returns a ready Processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Descriptor decodes only the header of the file at path and returns its
// dimensions and orientation.
func (p *Processor) Descriptor(path string) (Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("image: open %s: %w", path, err)
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return Descriptor{}, ErrUnsupportedFormat
	}

	return Descriptor{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: Orient(cfg.Width, cfg.Height),
	}, nil
}

// Decode fully decodes the image at path.
func (p *Processor) Decode(path string) (image.Image, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("image: open %s: %w", path, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, "", ErrUnsupportedFormat
	}
	return img, format, nil
}

// Resize renders the image at srcPath scaled so its long edge equals
// longEdge, preserving aspect ratio, and encodes it to dstPath. The output
// format follows the destination extension. The source is never upscaled;
// callers must check [MeetsMinimum] first.
func (p *Processor) Resize(srcPath, dstPath string, longEdge int) error {
	src, _, err := p.Decode(srcPath)
	if err != nil {
		return err
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var dstW, dstH int
	if width >= height {
		dstW = longEdge
		dstH = height * longEdge / width
	} else {
		dstH = longEdge
		dstW = width * longEdge / height
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	// Resample with Catmull-Rom into an sRGB buffer. draw.CatmullRom is
	// the highest-quality kernel x/image offers.
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return p.encode(dst, dstPath)
}

// encode writes img to path in the format implied by the path extension.
func (p *Processor) encode(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("image: create %s: %w", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: jpegQuality})
	case ".png":
		err = png.Encode(file, img)
	case ".gif":
		err = gif.Encode(file, img, nil)
	case ".bmp":
		err = bmp.Encode(file, img)
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".ppm":
		err = encodePPM(file, img)
	default:
		err = fmt.Errorf("image: cannot encode %s", path)
	}
	if err != nil {
		return err
	}

	return file.Close()
}

// MIMEType returns the content type for an image file extension.
func MIMEType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tif", "tiff":
		return "image/tiff"
	case "ppm":
		return "image/x-portable-pixmap"
	default:
		return "application/octet-stream"
	}
}

// clampColor converts a color to 8-bit RGB channels for the PPM encoder.
func clampColor(c color.Color) (r, g, b uint8) {
	r16, g16, b16, _ := c.RGBA()
	return uint8(r16 >> 8), uint8(g16 >> 8), uint8(b16 >> 8)
}

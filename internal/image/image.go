// Package image implements the content-addressed image store and the
// derivative-rendering processor.
//
// Every upload is stored as an immutable original plus derivatives at fixed
// size classes. Derivatives are never upscaled: a size class whose minimum
// the original does not meet is simply absent.
package image

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Size identifies a derivative size class.
type Size string

const (
	SizeOriginal Size = "original"
	SizeCBZ      Size = "cbz"
	SizeWeb      Size = "web"
	SizeTbn      Size = "tbn"
)

// Sizes lists all size classes, original first.
var Sizes = []Size{SizeOriginal, SizeCBZ, SizeWeb, SizeTbn}

// ParseSize validates a size query parameter. Unknown values fall back to
// the original.
func ParseSize(s string) Size {
	switch Size(s) {
	case SizeCBZ, SizeWeb, SizeTbn:
		return Size(s)
	default:
		return SizeOriginal
	}
}

// Orientation classifies an image by its aspect ratio.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationSquare    Orientation = "square"
)

// Descriptor holds the measured dimensions of an image file.
type Descriptor struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Orientation Orientation `json:"orientation"`
}

// LongEdge returns the larger of width and height.
func (d Descriptor) LongEdge() int {
	if d.Width > d.Height {
		return d.Width
	}
	return d.Height
}

// Orient classifies the given dimensions.
func Orient(width, height int) Orientation {
	switch {
	case width > height:
		return OrientationLandscape
	case width < height:
		return OrientationPortrait
	default:
		return OrientationSquare
	}
}

// TargetLongEdge returns the long-edge pixel target for a size class given
// the orientation of the source. Zero means "keep as-is" (original).
func TargetLongEdge(size Size, orientation Orientation) int {
	switch size {
	case SizeCBZ:
		if orientation == OrientationLandscape {
			return 2560
		}
		return 1600
	case SizeWeb:
		if orientation == OrientationLandscape {
			return 1200
		}
		return 750
	case SizeTbn:
		return 170
	default:
		return 0
	}
}

// MeetsMinimum reports whether an original with descriptor d is large
// enough to render the given size class. Derivatives are never upscaled.
func MeetsMinimum(d Descriptor, size Size) bool {
	target := TargetLongEdge(size, d.Orientation)
	if target == 0 {
		return true
	}
	return d.LongEdge() >= target
}

// acceptedExtensions maps recognised upload extensions to their canonical form.
var acceptedExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".bmp":  ".bmp",
	".tif":  ".tiff",
	".tiff": ".tiff",
	".ppm":  ".ppm",
}

// ErrUnsupportedFormat is returned when an upload is not an image of an
// acceptable kind, or fails to decode.
var ErrUnsupportedFormat = errors.New("image: unsupported or corrupt image file")

// TooSmallError reports an upload whose dimensions do not meet the minimum
// for a size class. The message names the offending file and its width so
// it can be surfaced verbatim as a release-barrier fix hint.
type TooSmallError struct {
	Filename string
	Width    int
	Height   int
	Size     Size
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("%s is too small for %s size (%d px)", e.Filename, e.Size, e.Width)
}

// Ref is an opaque image reference of the form
//
//	<table>.<field>.<key>.<hexname>.<ext>
//
// where key is a random 16-hex-digit identifier and hexname is the
// hex-encoded original filename (without extension). The reference both
// names the database row field that owns the image and addresses its files
// on disk.
type Ref struct {
	Table    string
	Field    string
	Key      string
	Filename string
}

// NewRef allocates a reference for an upload. field is the owning column in
// "table.field" form (e.g. "book_page.image").
func NewRef(field, filename string) (Ref, error) {
	table, column, ok := strings.Cut(field, ".")
	if !ok {
		return Ref{}, fmt.Errorf("image: invalid field %q (want table.field)", field)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	canonical, ok := acceptedExtensions[ext]
	if !ok {
		return Ref{}, ErrUnsupportedFormat
	}

	key := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	return Ref{
		Table:    table,
		Field:    column,
		Key:      key,
		Filename: base + canonical,
	}, nil
}

// ParseRef decodes an opaque reference string.
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 5 {
		return Ref{}, fmt.Errorf("image: malformed reference %q", s)
	}

	nameBytes, err := hex.DecodeString(parts[3])
	if err != nil {
		return Ref{}, fmt.Errorf("image: malformed reference %q: %w", s, err)
	}

	return Ref{
		Table:    parts[0],
		Field:    parts[1],
		Key:      parts[2],
		Filename: string(nameBytes) + "." + parts[4],
	}, nil
}

// String encodes the reference into its opaque string form.
func (r Ref) String() string {
	base := strings.TrimSuffix(r.Filename, filepath.Ext(r.Filename))
	ext := strings.TrimPrefix(filepath.Ext(r.Filename), ".")
	return strings.Join([]string{
		r.Table, r.Field, r.Key, hex.EncodeToString([]byte(base)), ext,
	}, ".")
}

// FieldName returns the owning column in "table.field" form.
func (r Ref) FieldName() string {
	return r.Table + "." + r.Field
}

// Shard returns the two-hex-digit directory shard for the key.
func (r Ref) Shard() string {
	if len(r.Key) < 2 {
		return "00"
	}
	return r.Key[:2]
}

// Ext returns the original file extension, including the dot.
func (r Ref) Ext() string {
	return strings.ToLower(filepath.Ext(r.Filename))
}

// DerivativeExt returns the on-disk extension for the given size class.
// Resizing a GIF produces a PNG; other formats keep their extension.
func (r Ref) DerivativeExt(size Size) string {
	ext := r.Ext()
	if size != SizeOriginal && ext == ".gif" {
		return ".png"
	}
	return ext
}
